package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"civic-reports/internal/models"
	"civic-reports/pkg/auth"
	"civic-reports/pkg/logger"
	"civic-reports/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func newAuthRouter(jwtManager *auth.JWTManager, guards ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware(jwtManager)}, guards...)
	handlers = append(handlers, func(c *gin.Context) {
		id, ok := UserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id.Hex(), "ok": ok, "role": Role(c)})
	})
	r.GET("/protected", handlers...)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	userID := primitive.NewObjectID()
	token, err := jwtManager.GenerateToken(userID, "citizen@city.test", models.RoleCitizen)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}

	router := newAuthRouter(jwtManager)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, userID.Hex(), body["user_id"])
				assert.Equal(t, true, body["ok"])
				assert.Equal(t, "citizen", body["role"])
			} else {
				assert.False(t, decode(t, w).Success)
			}
		})
	}
}

func TestRoleGuards(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	tokenFor := func(role models.UserRole) string {
		token, err := jwtManager.GenerateToken(primitive.NewObjectID(), "u@city.test", role)
		require.NoError(t, err)
		return token
	}

	cases := []struct {
		name   string
		guard  gin.HandlerFunc
		role   models.UserRole
		status int
	}{
		{"admin passes admin guard", RequireRole(models.RoleAdmin), models.RoleAdmin, http.StatusOK},
		{"employee blocked by admin guard", RequireRole(models.RoleAdmin), models.RoleEmployee, http.StatusForbidden},
		{"admin passes employee guard", RequireRole(models.RoleEmployee), models.RoleAdmin, http.StatusOK},
		{"citizen blocked by employee guard", RequireRole(models.RoleEmployee), models.RoleCitizen, http.StatusForbidden},
		{"any role match", RequireAnyRole(models.RoleCitizen, models.RoleAdmin), models.RoleCitizen, http.StatusOK},
		{"any role miss", RequireAnyRole(models.RoleCitizen, models.RoleAdmin), models.RoleEmployee, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newAuthRouter(jwtManager, tc.guard)
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+tokenFor(tc.role))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRequireRoleWithoutAuth(t *testing.T) {
	r := gin.New()
	r.GET("/admin", RequireRole(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, call().Code)
	assert.Equal(t, http.StatusOK, call().Code)

	w := call()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.False(t, decode(t, w).Success)

	now = now.Add(61 * time.Second)
	assert.Equal(t, http.StatusOK, call().Code)

	now = now.Add(10 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.requests)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}

func TestLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger.Set(zap.New(core))
	defer logger.Set(nil)

	r := gin.New()
	r.Use(RequestID(), Logger(), Metrics())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.FilterMessage("Request completed").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "/boom", entries[1].ContextMap()["path"])
	assert.NotEmpty(t, entries[1].ContextMap()["request_id"])
}
