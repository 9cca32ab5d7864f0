package service

import (
	"projtrack/config"
	"projtrack/logutils"
	"projtrack/middleware"
	"projtrack/storage"
	"projtrack/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Deps are the long-lived clients the handlers share. They are built and
// closed by the caller.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Store    storage.BlobStore
	Tokens   *util.TokenManager
	Registry *prometheus.Registry
}

// loginBurst lets a user retry a mistyped password a few times in a row.
const loginBurst = 5

// NewRouter wires every route under the configured base path. /health and
// /login are public; /metrics sits outside the base path.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(d.Config.Server.TrustedProxies); err != nil {
		logutils.Log.WithError(err).Error("invalid trusted proxies, using peer addresses")
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), middleware.AccessLog())
	r.Use(middleware.CORSMiddleware(d.Config.Server.CORSOrigin))

	if d.Registry != nil {
		metrics := middleware.NewMetrics(d.Registry)
		r.Use(metrics.Middleware())
		r.GET("/metrics", metrics.Handler())
	}

	api := r.Group(d.Config.Server.BasePath)
	api.GET("/health", Health)

	auth := NewAuthHandler(NewPasswordChecker(d.Config.Auth.Password, d.Config.Auth.PasswordHash), d.Tokens)
	api.POST("/login", middleware.RateLimitMiddleware(d.Config.Auth.LoginPerMinute, loginBurst), auth.Login)

	private := api.Group("", middleware.AuthMiddleware(d.Tokens))
	NewProjectHandler(d.DB, d.Store).Register(private)
	NewAssignmentHandler(d.DB).Register(private)
	NewContactHandler(d.DB).Register(private)
	NewFileHandler(d.DB, d.Store, d.Config.MaxFileSize()).Register(private)
	NewBackupHandler(d.DB, d.Store).Register(private)
	return r
}
