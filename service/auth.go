package service

import (
	"crypto/subtle"
	"net/http"
	"time"

	"projtrack/response"
	"projtrack/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// PasswordChecker verifies the shared team password, either against a
// bcrypt hash or, when no hash is configured, the plain value.
type PasswordChecker struct {
	plain []byte
	hash  []byte
}

func NewPasswordChecker(plain, hash string) *PasswordChecker {
	return &PasswordChecker{plain: []byte(plain), hash: []byte(hash)}
}

func (pc *PasswordChecker) Check(password string) bool {
	if len(pc.hash) > 0 {
		return bcrypt.CompareHashAndPassword(pc.hash, []byte(password)) == nil
	}
	if len(pc.plain) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(pc.plain, []byte(password)) == 1
}

// HashPassword returns the bcrypt hash stored in auth.passwordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

type LoginReq struct {
	Password string `json:"password" binding:"required"`
}

type LoginResp struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AuthHandler struct {
	passwords *PasswordChecker
	tokens    *util.TokenManager
}

func NewAuthHandler(passwords *PasswordChecker, tokens *util.TokenManager) *AuthHandler {
	return &AuthHandler{passwords: passwords, tokens: tokens}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, []response.Issue{{Field: "password", Message: "is required"}})
		return
	}
	if !h.passwords.Check(req.Password) {
		response.UnauthorizedError(c, "wrong password", response.Unauthorized)
		return
	}
	token, expiresAt, err := h.tokens.CreateToken(util.AdminSubject)
	if err != nil {
		response.InternalServerError(c, err, "failed to sign token", nil)
		return
	}
	response.Success(c, LoginResp{Token: token, ExpiresAt: expiresAt.UTC()})
}

// ServiceName is reported by the health probe.
const ServiceName = "projtrack"

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"service": ServiceName,
		"ts":      time.Now().UTC().Format(time.RFC3339),
	})
}
