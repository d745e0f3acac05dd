package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func token(t *testing.T, claims Claims, key string) string {
	t.Helper()
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func venueRouter(secret string) *gin.Engine {
	r := gin.New()
	g := r.Group("/venues/:venueId", Auth(secret))
	g.GET("/score", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	admin := r.Group("/admin", Auth(secret), RequireAdmin(secret))
	admin.GET("", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func do(r http.Handler, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := venueRouter(secret)

	tests := []struct {
		name   string
		path   string
		bearer string
		want   int
	}{
		{"no token", "/venues/v1/score", "", http.StatusUnauthorized},
		{"garbage", "/venues/v1/score", "abc.def.ghi", http.StatusUnauthorized},
		{"wrong key", "/venues/v1/score", token(t, Claims{VenueID: "v1"}, "other"), http.StatusUnauthorized},
		{"expired", "/venues/v1/score", token(t, Claims{VenueID: "v1", RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}, secret), http.StatusUnauthorized},
		{"own venue", "/venues/v1/score", token(t, Claims{VenueID: "v1"}, secret), http.StatusOK},
		{"other venue", "/venues/v2/score", token(t, Claims{VenueID: "v1"}, secret), http.StatusForbidden},
		{"admin any venue", "/venues/v2/score", token(t, Claims{Role: RoleAdmin}, secret), http.StatusOK},
		{"admin route", "/admin", token(t, Claims{Role: RoleAdmin}, secret), http.StatusOK},
		{"venue on admin route", "/admin", token(t, Claims{VenueID: "v1"}, secret), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, do(r, tt.path, tt.bearer).Code)
		})
	}
}

func TestAuthDisabled(t *testing.T) {
	r := venueRouter("")
	assert.Equal(t, http.StatusOK, do(r, "/venues/v1/score", "").Code)
	assert.Equal(t, http.StatusOK, do(r, "/admin", "").Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2024, 3, 8, 22, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("a")
	assert.True(t, ok)
	ok, _ = rl.Allow("a")
	assert.True(t, ok)
	ok, wait := rl.Allow("a")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, wait)

	ok, _ = rl.Allow("b")
	assert.True(t, ok, "limits are per key")

	now = now.Add(time.Minute)
	ok, _ = rl.Allow("a")
	assert.True(t, ok, "window slid past the first requests")
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(1, time.Minute))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, "/", "").Code)
	w := do(r, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	off := gin.New()
	off.Use(RateLimit(0, time.Minute))
	off.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(off, "/", "").Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Logger())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := do(r, "/", "")
	id := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, w.Body.String())

	given := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, given)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, given, w.Header().Get(RequestIDHeader))
}
