package service

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"projtrack/config"
	"projtrack/dao/query/querytest"
	"projtrack/storage"
	"projtrack/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/webdav"
	"gorm.io/gorm"
)

const testPassword = "letmein"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	store  *storage.FSStore
	router *gin.Engine
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.Password = testPassword
	cfg.Upload.MaxFileSizeMB = 1

	db := querytest.Open(t)
	store := storage.NewFSStore(webdav.NewMemFS())
	tokens := util.NewTokenManager(cfg.Auth.JWTSecret, time.Hour)
	token, _, err := tokens.CreateToken(util.AdminSubject)
	require.NoError(t, err)

	return &testEnv{
		t:     t,
		db:    db,
		store: store,
		router: NewRouter(Deps{
			Config:   cfg,
			DB:       db,
			Store:    store,
			Tokens:   tokens,
			Registry: prometheus.NewRegistry(),
		}),
		token: token,
	}
}

// do sends body as JSON (or raw when it is a string) with the bearer token.
func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, "/api"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// createProject posts body and returns the decoded project.
func (e *testEnv) createProject(body map[string]any) map[string]any {
	e.t.Helper()
	w := e.do(http.MethodPost, "/projects", body)
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]any](e.t, w)
}

func idOf(v map[string]any) int {
	return int(v["id"].(float64))
}
