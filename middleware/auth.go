package middleware

import (
	"errors"
	"strings"

	"projtrack/response"
	"projtrack/util"

	"github.com/gin-gonic/gin"
)

// SubjectKey holds the authenticated token subject on the gin context.
const SubjectKey = "x-subject"

// TokenChecker validates a bearer token and returns its subject.
type TokenChecker interface {
	CheckToken(token string) (string, error)
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(tokens TokenChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.UnauthorizedError(c, "missing bearer token", response.Unauthorized)
			return
		}

		subject, err := tokens.CheckToken(strings.TrimSpace(token))
		if err != nil {
			if errors.Is(err, util.ErrTokenExpired) {
				response.UnauthorizedError(c, "token expired", response.TokenExpired)
			} else {
				response.UnauthorizedError(c, "invalid token", response.InvalidToken)
			}
			return
		}
		c.Set(SubjectKey, subject)
		c.Next()
	}
}
