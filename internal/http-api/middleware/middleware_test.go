package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"yamdb/internal/http-api/dto"
	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/permission"
	"yamdb/internal/http-api/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAuthService mocks the AuthService interface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Signup(ctx context.Context, username, email string) (*models.User, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) ObtainToken(ctx context.Context, username, code string) (string, string, error) {
	args := m.Called(ctx, username, code)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func whoami(c *gin.Context) {
	caller := CurrentCaller(c)
	if caller == nil {
		c.String(http.StatusOK, "anonymous")
		return
	}
	c.String(http.StatusOK, caller.Username)
}

func doRequest(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewBuffer(nil))
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	auth := new(MockAuthService)
	router := setupRouter()
	router.Use(Authenticate(auth))
	router.GET("/whoami", whoami)

	auth.On("Authenticate", mock.Anything, "good").Return(&models.User{ID: 1, Username: "alice", Role: models.RoleUser}, nil)
	auth.On("Authenticate", mock.Anything, "stale").Return(nil, service.ErrInvalidToken)
	auth.On("Authenticate", mock.Anything, "boom").Return(nil, errors.New("db down"))

	w := doRequest(router, http.MethodGet, "/whoami", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())

	w = doRequest(router, http.MethodGet, "/whoami", "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())

	w = doRequest(router, http.MethodGet, "/whoami", "Bearer stale")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unauthorized", body.Error)

	w = doRequest(router, http.MethodGet, "/whoami", "Token good")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, http.MethodGet, "/whoami", "Bearer boom")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequirePolicy(t *testing.T) {
	router := setupRouter()
	router.Use(func(c *gin.Context) {
		switch c.GetHeader("X-Test-Role") {
		case "admin":
			c.Set(callerKey, &permission.Caller{ID: 1, Username: "root", Role: models.RoleAdmin})
		case "user":
			c.Set(callerKey, &permission.Caller{ID: 2, Username: "alice", Role: models.RoleUser})
		}
		c.Next()
	})
	router.Use(RequirePolicy(permission.CatalogWrite))
	router.GET("/genres", whoami)
	router.POST("/genres", whoami)

	cases := []struct {
		method string
		role   string
		want   int
	}{
		{http.MethodGet, "", http.StatusOK},
		{http.MethodPost, "", http.StatusUnauthorized},
		{http.MethodPost, "user", http.StatusForbidden},
		{http.MethodPost, "admin", http.StatusOK},
	}
	for _, tc := range cases {
		req, _ := http.NewRequest(tc.method, "/genres", nil)
		req.Header.Set("X-Test-Role", tc.role)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, "%s as %q", tc.method, tc.role)
	}
}

func TestRequestID(t *testing.T) {
	router := setupRouter()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := doRequest(router, http.MethodGet, "/", "")
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "7f1b2a4e-3c55-4c1e-9a58-1d2b3c4d5e6f")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "7f1b2a4e-3c55-4c1e-9a58-1d2b3c4d5e6f", w.Header().Get(RequestIDHeader))

	req.Header.Set(RequestIDHeader, "<script>")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Header().Get(RequestIDHeader))
}

func TestLogger_WritesAccessLine(t *testing.T) {
	var buf bytes.Buffer
	router := setupRouter()
	router.Use(RequestID(), Logger(slog.New(slog.NewJSONHandler(&buf, nil))))
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	doRequest(router, http.MethodGet, "/missing", "")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "/missing", line["path"])
	assert.EqualValues(t, 404, line["status"])
	assert.NotEmpty(t, line["request_id"])
}

func TestMemoryRateLimit(t *testing.T) {
	router := setupRouter()
	router.Use(RateLimit(RateLimitConfig{RPS: 0.001, Burst: 2, Prefix: "test"}, nil, slog.New(slog.DiscardHandler)))
	router.POST("/signup", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/signup", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/signup", "").Code)

	w := doRequest(router, http.MethodPost, "/signup", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "ratelimit:auth:ip:10.0.0.1", rateLimitKey("ratelimit:auth", "10.0.0.1"))
	assert.Equal(t, "ratelimit:auth:ip:10.0.0.1", rateLimitKey("ratelimit:auth:", "10.0.0.1"))
	assert.NotContains(t, rateLimitKey("ratelimit:auth:", "::1"), "auth::")
}

func TestRedisRateLimit_FailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	router := setupRouter()
	router.Use(RateLimit(RateLimitConfig{RPS: 1, Burst: 1, Prefix: "test"}, rdb, slog.New(slog.DiscardHandler)))
	router.POST("/signup", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/signup", "").Code)
	}
}
