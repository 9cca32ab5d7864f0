package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"projtrack/config"
	"projtrack/dao/query/querytest"
	"projtrack/service"
	"projtrack/storage"
	"projtrack/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/webdav"
)

func TestRunCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Auth.JWTSecret = "check-secret"
	cfg.Auth.Password = "pw-check"

	srv := httptest.NewServer(service.NewRouter(service.Deps{
		Config: cfg,
		DB:     querytest.Open(t),
		Store:  storage.NewFSStore(webdav.NewMemFS()),
		Tokens: util.NewTokenManager(cfg.Auth.JWTSecret, time.Hour),
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := runCheck(context.Background(), srv.Client(), srv.URL+"/api", "pw-check", &out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.String(), "ok: 0 projects"), out.String())

	err = runCheck(context.Background(), srv.Client(), srv.URL+"/api", "wrong", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login")
}

func TestHashPasswordCommand(t *testing.T) {
	var out bytes.Buffer
	hashPasswordCmd.SetOut(&out)
	hashPasswordCmd.SetIn(strings.NewReader("from-stdin\n"))
	require.NoError(t, hashPasswordCmd.RunE(hashPasswordCmd, nil))

	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("from-stdin")))
}

func TestConfigCommandMasksSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  jwtSecret: very-secret\n"), 0o600))
	t.Setenv("PROJTRACK_PORT", "9191")

	prev := configPath
	configPath = path
	t.Cleanup(func() { configPath = prev })

	var out bytes.Buffer
	configCmd.SetOut(&out)
	require.NoError(t, configCmd.RunE(configCmd, nil))

	assert.NotContains(t, out.String(), "very-secret")
	assert.Contains(t, out.String(), "********")
	assert.Contains(t, out.String(), `port: "9191"`)
}
