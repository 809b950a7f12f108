package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/01moynul/modelshop/internal/auth"
	"github.com/01moynul/modelshop/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func newIssuer(t *testing.T) *auth.Issuer {
	t.Helper()
	iss, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	return iss
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	iss := newIssuer(t)
	r := gin.New()
	r.GET("/me", AuthMiddleware(iss), func(c *gin.Context) {
		claims, ok := GetUserFromContext(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.UserID)
	})

	tok, err := iss.GenerateToken("u-1", "a@b.co", "Ada", false)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", w.Body.String())

	for _, header := range []string{"", "Token " + tok, "Bearer ", "Bearer garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code, header)
	}
}

func TestAdminMiddleware(t *testing.T) {
	iss := newIssuer(t)
	r := gin.New()
	r.GET("/admin", AdminMiddleware(auth.AdminCredentials{ID: "root", Password: "s3cret"}, iss), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("adminID"))
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.SetBasicAuth("root", "s3cret")
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.SetBasicAuth("root", "wrong")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	userTok, err := iss.GenerateToken("u-1", "", "", false)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userTok)
	w := serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))

	adminTok, err := iss.GenerateToken("root", "", "admin", true)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminTok)
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}

func TestLoginRateLimiter(t *testing.T) {
	r := gin.New()
	r.POST("/login", NewLoginRateLimiter(2).Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = serve(r, httptest.NewRequest(http.MethodPost, "/login", nil)).Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestMetricsMiddleware(t *testing.T) {
	m := metrics.New("mw")
	r := gin.New()
	r.Use(MetricsMiddleware(m))
	r.GET("/products/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	serve(r, httptest.NewRequest(http.MethodGet, "/products/abc", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/products/xyz", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("/products/:id", "404")))
}
