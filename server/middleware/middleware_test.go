package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func newTestEcho(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "ok") }, mw...)
	return e
}

func serve(e *echo.Echo, header string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(HeaderAPIKey, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestAPIKey(t *testing.T) {
	e := newTestEcho(APIKey("secret"))
	assert.Equal(t, http.StatusUnauthorized, serve(e, ""))
	assert.Equal(t, http.StatusUnauthorized, serve(e, "wrong"))
	assert.Equal(t, http.StatusOK, serve(e, "secret"))

	open := newTestEcho(APIKey(""))
	assert.Equal(t, http.StatusOK, serve(open, ""))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	e := newTestEcho(NewRateLimiter(1, 1).Middleware())
	assert.Equal(t, http.StatusOK, serve(e, ""))
	assert.Equal(t, http.StatusTooManyRequests, serve(e, ""))
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	assert.Equal(t, DefaultBurst, rl.burst)
	assert.Equal(t, 100*time.Millisecond, rl.every)
}
