package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"projtrack/response"
	"projtrack/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(tm *util.TokenManager) *gin.Engine {
	r := gin.New()
	r.GET("/private", AuthMiddleware(tm), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(SubjectKey))
	})
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthMiddleware(t *testing.T) {
	tm := util.NewTokenManager("secret", time.Hour)
	token, _, err := tm.CreateToken(util.AdminSubject)
	require.NoError(t, err)
	expired, _, err := util.NewTokenManager("secret", -time.Hour).CreateToken(util.AdminSubject)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantErr  response.ErrorCode
	}{
		{name: "valid", header: "Bearer " + token, wantCode: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + token, wantCode: http.StatusOK},
		{name: "missing", header: "", wantCode: http.StatusUnauthorized, wantErr: response.Unauthorized},
		{name: "wrong scheme", header: "Basic abc", wantCode: http.StatusUnauthorized, wantErr: response.Unauthorized},
		{name: "garbage", header: "Bearer abc.def.ghi", wantCode: http.StatusUnauthorized, wantErr: response.InvalidToken},
		{name: "expired", header: "Bearer " + expired, wantCode: http.StatusUnauthorized, wantErr: response.TokenExpired},
	}
	r := newAuthRouter(tm)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantErr != 0 {
				assert.Equal(t, tt.wantErr, decodeError(t, w).Code)
			} else {
				assert.Equal(t, util.AdminSubject, w.Body.String())
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/login", RateLimitMiddleware(1, 2), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/login", http.NoBody)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// another client has its own bucket
	req := httptest.NewRequest(http.MethodPost, "/login", http.NoBody)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware("https://ui.example"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://ui.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/7", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `projtrack_http_requests_total{method="GET",route="/items/:id",status="200"} 1`), body)
}

func TestRateLimiterDropsIdleClients(t *testing.T) {
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(rate.Every(time.Minute/10), 5)
	rl.now = func() time.Time { return clock }

	for i := range 50 {
		rl.getLimiter(fmt.Sprintf("10.0.0.%d", i))
	}
	require.Equal(t, 50, rl.Len())

	// exhaust one client shortly before the others go idle
	clock = clock.Add(rl.idle - time.Second)
	busy := rl.getLimiter("10.0.0.1")
	for busy.AllowN(clock, 1) {
	}

	clock = clock.Add(2 * time.Second)
	rl.getLimiter("192.0.2.1")
	assert.Equal(t, 2, rl.Len(), "only recently seen clients remain")
	assert.False(t, rl.getLimiter("10.0.0.1").AllowN(clock, 1), "kept client keeps its state")
}
