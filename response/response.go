package response

import (
	"net/http"

	"projtrack/logutils"

	"github.com/gin-gonic/gin"
)

// Issue describes one rejected input field.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorBody is the JSON shape of every non-2xx response.
type ErrorBody struct {
	Code   ErrorCode `json:"code"`
	Msg    string    `json:"msg"`
	Issues []Issue   `json:"issues,omitempty"`
}

// Success sends data with 200.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created sends data with 201.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// NoContent sends an empty 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// HTTPError aborts the request with the given status, message and error code.
func HTTPError(c *gin.Context, httpCode int, msg string, errorCode ErrorCode) {
	c.AbortWithStatusJSON(httpCode, ErrorBody{Code: errorCode, Msg: msg})
}

// BadRequestError is used when path or query parameters cannot be parsed.
func BadRequestError(c *gin.Context, msg string) {
	HTTPError(c, http.StatusBadRequest, msg, InvalidRequest)
}

// ValidationError reports a rejected body with its per-field issues.
func ValidationError(c *gin.Context, issues []Issue) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{
		Code:   ValidationFailed,
		Msg:    "validation failed",
		Issues: issues,
	})
}

func NotFoundError(c *gin.Context, msg string) {
	HTTPError(c, http.StatusNotFound, msg, NotFound)
}

// GoneError reports a delete of a row that no longer exists.
func GoneError(c *gin.Context, msg string) {
	HTTPError(c, http.StatusNotFound, msg, AlreadyGone)
}

func UnauthorizedError(c *gin.Context, msg string, errorCode ErrorCode) {
	HTTPError(c, http.StatusUnauthorized, msg, errorCode)
}

// InternalServerError logs err with fields and answers with a generic message.
func InternalServerError(c *gin.Context, err error, msg string, fields logutils.Fields) {
	entry := logutils.Log.WithError(err).WithField("path", c.FullPath())
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Error(msg)
	HTTPError(c, http.StatusInternalServerError, "internal server error", InternalError)
}

// StorageUnavailableError logs a blob storage failure and answers 503.
func StorageUnavailableError(c *gin.Context, err error, fields logutils.Fields) {
	logutils.Log.WithError(err).WithFields(fields).Error("file storage failed")
	HTTPError(c, http.StatusServiceUnavailable, "file storage unavailable", StorageUnavailable)
}
