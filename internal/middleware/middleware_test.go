package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/metrics"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeValidator struct {
	users map[string]*models.User
}

func (f *fakeValidator) ValidateToken(token string) (*models.TokenInfo, *models.User, error) {
	u, ok := f.users[token]
	if !ok {
		return nil, nil, errors.New("bad token")
	}
	return &models.TokenInfo{UserID: u.ID, Email: u.Email}, u, nil
}

type fakeKeys struct{}

func (fakeKeys) ValidateAPIKey(key string) (*models.User, error) {
	if key == "bdk_good" {
		return &models.User{ID: "key-owner"}, nil
	}
	return nil, apperror.Unauthorized("Invalid API key")
}

func newAuthRouter() *gin.Engine {
	v := &fakeValidator{users: map[string]*models.User{
		"owner-token": {ID: "owner", Email: "owner@acme.test"},
		"admin-token": {ID: "admin", Email: "admin@bizdoc.test", IsAdmin: true},
	}}
	r := gin.New()
	api := r.Group("/api")
	api.Use(NewAPIKeyMiddleware(fakeKeys{}).APIKeyAuthMiddleware())
	api.Use(NewBearerTokenMiddleware(v).BearerTokenAuthMiddleware())
	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c), "auth_type": c.GetString(ContextAuthType)})
	})
	api.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func do(r http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestBearerTokenMiddleware(t *testing.T) {
	r := newAuthRouter()

	w := do(r, http.MethodGet, "/api/me", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Authorization header is required", body["error"])

	w = do(r, http.MethodGet, "/api/me", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/me", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid or expired token", decode(t, w)["error"])

	w = do(r, http.MethodGet, "/api/me", "Bearer owner-token")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "owner", body["user_id"])
	assert.Equal(t, "bearer", body["auth_type"])
}

func TestAPIKeyMiddleware(t *testing.T) {
	r := newAuthRouter()

	w := do(r, http.MethodGet, "/api/me", "ApiKey bdk_good")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "key-owner", body["user_id"])
	assert.Equal(t, "api_key", body["auth_type"])

	w = do(r, http.MethodGet, "/api/me", "ApiKey bdk_bad")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid API key", decode(t, w)["error"])

	w = do(r, http.MethodGet, "/api/me", "ApiKey ")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	r := newAuthRouter()

	w := do(r, http.MethodGet, "/api/admin", "Bearer owner-token")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Admin access required", decode(t, w)["error"])

	w = do(r, http.MethodGet, "/api/admin", "Bearer admin-token")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func limitedRouter(l *RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-User"); id != "" {
			c.Set(ContextUserID, id)
		}
		c.Next()
	})
	r.POST("/generate", l.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func post(r http.Handler, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/generate", nil)
	req.Header.Set("X-User", user)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRedisRateLimiterFixedWindow(t *testing.T) {
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer client.Close()

	now := time.Date(2025, 6, 30, 10, 0, 5, 0, time.UTC)
	l := NewRateLimiter(client, "generate", 2, 0, time.Minute)
	l.now = func() time.Time { return now }
	r := limitedRouter(l)

	assert.Equal(t, http.StatusOK, post(r, "alice").Code)
	assert.Equal(t, http.StatusOK, post(r, "alice").Code)

	w := post(r, "alice")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Rate limit exceeded", body["error"])

	// budgets are per user
	assert.Equal(t, http.StatusOK, post(r, "bob").Code)

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusOK, post(r, "alice").Code)
}

func TestMemoryRateLimiterWithoutRedis(t *testing.T) {
	l := NewRateLimiter(nil, "generate", 1, 1, time.Minute)
	r := limitedRouter(l)

	before := testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues("memory"))
	assert.Equal(t, http.StatusOK, post(r, "carol").Code)
	assert.Equal(t, http.StatusOK, post(r, "carol").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(r, "carol").Code)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues("memory")))
}

func TestRateLimiterFallsBackWhenRedisFails(t *testing.T) {
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	defer client.Close()
	m.Close()

	l := NewRateLimiter(client, "generate", 1, 0, time.Minute)
	r := limitedRouter(l)

	assert.Equal(t, http.StatusOK, post(r, "dave").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(r, "dave").Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/projects/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/projects/:id", "200")
	before := testutil.ToFloat64(counter)
	do(r, http.MethodGet, "/projects/abc", "")
	do(r, http.MethodGet, "/projects/def", "")
	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}
