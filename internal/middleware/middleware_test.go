package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image-translator-backend/internal/config"
	"image-translator-backend/internal/middleware"
)

const jwtSecret = "test-secret-key-for-jwt-signing-must-be-long-enough"

func newRouter(cfg *config.Config, seen *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.AuthMiddleware(cfg))
	router.GET("/test", func(c *gin.Context) {
		*seen = middleware.AccountKey(c)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	var seen string
	router := newRouter(&config.Config{JWTSecret: jwtSecret}, &seen)

	req, _ := http.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, seen)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	var seen string
	router := newRouter(&config.Config{JWTSecret: jwtSecret}, &seen)

	req, _ := http.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	var seen string
	router := newRouter(&config.Config{JWTSecret: jwtSecret}, &seen)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	tokenString, err := token.SignedString([]byte(jwtSecret))
	require.NoError(t, err)

	req, _ := http.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "expired")
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	var seen string
	router := newRouter(&config.Config{JWTSecret: jwtSecret}, &seen)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-123"})
	tokenString, err := token.SignedString([]byte(jwtSecret))
	require.NoError(t, err)

	req, _ := http.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-123", seen)
}

func TestAuthMiddleware_HeaderAccountWithoutSecret(t *testing.T) {
	var seen string
	router := newRouter(&config.Config{}, &seen)

	req, _ := http.NewRequest("GET", "/test", nil)
	req.Header.Set(middleware.AccountKeyHeader, "shop-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "shop-42", seen)

	req, _ = http.NewRequest("GET", "/test", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, middleware.AnonymousAccount, seen)
}

func TestRequestIDAndLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(logger))
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req, _ := http.NewRequest("GET", "/missing?secret=1", nil)
	req.Header.Set(middleware.RequestIDHeader, "rid-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "rid-1", w.Header().Get(middleware.RequestIDHeader))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "rid-1", entry.Data["request_id"])
	assert.Equal(t, "/missing", entry.Data["path"])
}
