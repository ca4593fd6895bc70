package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func protegido(secret string, roles ...string) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(), RequestID())
	handlers := []gin.HandlerFunc{JWTAuth(secret)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		claims := GetClaims(c)
		c.String(http.StatusOK, claims.SucursalID+"/"+claims.Username)
	})
	r.GET("/x", handlers...)
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := protegido("s3cret")

	token, err := IssueToken("s3cret", "centro", "ana", RolCocina, time.Hour)
	require.NoError(t, err)
	w := get(r, "/x", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "centro/ana", w.Body.String())

	otro, err := IssueToken("otro", "centro", "ana", RolCocina, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/x", otro).Code)

	vencido, err := IssueToken("s3cret", "centro", "ana", RolCocina, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/x", vencido).Code)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/x", "").Code)
}

func TestJWTAuth_TokenSinSucursal(t *testing.T) {
	claims := JWTClaims{Username: "ana", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(protegido("s3cret"), "/x", token).Code)
}

func TestRequireRole(t *testing.T) {
	r := protegido("s3cret", RolAdmin, RolEncargado)

	cocina, _ := IssueToken("s3cret", "centro", "ana", RolCocina, time.Hour)
	assert.Equal(t, http.StatusForbidden, get(r, "/x", cocina).Code)

	admin, _ := IssueToken("s3cret", "centro", "ana", RolAdmin, time.Hour)
	assert.Equal(t, http.StatusOK, get(r, "/x", admin).Code)
}

func TestRequestID(t *testing.T) {
	r := protegido("s3cret")

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	assert.NotEmpty(t, get(r, "/x", "").Header().Get(RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	w := get(protegido("s3cret"), "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Error interno")
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.GET("/x", RateLimiter("test", 2, time.Minute, PorIP), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/x", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/x", "").Code)
	w := get(r, "/x", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestCORS_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
