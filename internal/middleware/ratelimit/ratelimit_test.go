package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiter_Allow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3, CleanupInterval: time.Hour})
	defer rl.Stop()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		require.True(t, rl.Allow("10.0.0.1"), "request %d", i+1)
	}
	require.False(t, rl.Allow("10.0.0.1"))
	require.True(t, rl.Allow("10.0.0.2"), "other clients have their own window")

	now = now.Add(time.Minute)
	require.True(t, rl.Allow("10.0.0.1"), "window resets after a minute")
	require.Equal(t, 2, rl.ActiveClients())
}

func TestLimiter_Cleanup(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 5, CleanupInterval: time.Hour})
	defer rl.Stop()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow("10.0.0.1")

	now = now.Add(11 * time.Minute)
	rl.Allow("10.0.0.2")
	rl.cleanupStaleEntries()
	require.Equal(t, 1, rl.ActiveClients())
}

func TestLimiter_DefaultsAndStop(t *testing.T) {
	rl := NewLimiter(Config{})
	require.Equal(t, 60, rl.requestsPerMinute)
	require.Equal(t, 5*time.Minute, rl.cleanupInterval)
	rl.Stop()
	rl.Stop()
}

func TestMiddleware(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Hour})
	defer rl.Stop()

	ip := func(*http.Request) string { return "192.0.2.1" }
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("default rejection", func(t *testing.T) {
		h := rl.Middleware(ip, nil)(ok)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusTooManyRequests, rr.Code)
		require.Equal(t, "60", rr.Header().Get("Retry-After"))
	})

	t.Run("custom rejection", func(t *testing.T) {
		called := false
		h := rl.Middleware(ip, func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusServiceUnavailable)
		})(ok)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		require.True(t, called)
		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}
