package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRateLimiter_PerUser(t *testing.T) {
	f := newFixture(t, 2)
	alice := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 1})
	bob := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 2})

	for range 2 {
		assert.Equal(t, http.StatusOK, f.doAs(t, alice, http.MethodGet, "/api/languages", "").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, f.doAs(t, alice, http.MethodGet, "/api/languages", "").Code)
	assert.Equal(t, http.StatusOK, f.doAs(t, bob, http.MethodGet, "/api/languages", "").Code)
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Len(t, w.Header().Get(requestIDHeader), 36)
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery(zap.NewNop()))
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"internal"`)
}
