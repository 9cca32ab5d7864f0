package response

type ErrorCode int

const (
	OK ErrorCode = 0

	InvalidRequest   ErrorCode = 40001
	ValidationFailed ErrorCode = 40002
	Unauthorized     ErrorCode = 40100
	TokenExpired     ErrorCode = 40101
	InvalidToken     ErrorCode = 40103
	NotFound         ErrorCode = 40401
	AlreadyGone      ErrorCode = 40402
	PayloadTooLarge  ErrorCode = 41301
	TooManyRequests  ErrorCode = 42901

	InternalError      ErrorCode = 50001
	StorageUnavailable ErrorCode = 50301
)
