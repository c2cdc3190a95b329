package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterAllowExhaustsBucket(t *testing.T) {
	l := NewLimiter()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("client-a", 3, 0), "request %d", i)
	}
	assert.False(t, l.Allow("client-a", 3, 0))
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := NewLimiter()

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow("client-a", 3, 0))
	}
	assert.False(t, l.Allow("client-a", 3, 0))
	assert.True(t, l.Allow("client-b", 3, 0))
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	e := echo.New()
	handler := RateLimit(1, 0)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/predict", nil)
		req.RemoteAddr = "10.0.0.7:1234"
		rec := httptest.NewRecorder()
		require.NoError(t, handler(e.NewContext(req, rec)))
		return rec
	}

	assert.Equal(t, http.StatusOK, do().Code)
	assert.Equal(t, http.StatusTooManyRequests, do().Code)
}
