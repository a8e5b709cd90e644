package trace

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"ledger/internal/log"
)

func newTestLogger(buf *bytes.Buffer) *log.Logger {
	return log.New(log.Config{Level: slog.LevelDebug, Format: log.FormatJSON, Output: buf})
}

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(newTestLogger(&buf), func(*http.Request) string { return "203.0.113.7" })

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/people", nil))

	require.Equal(t, http.StatusCreated, rr.Code)
	require.NotEmpty(t, seen)
	require.Equal(t, seen, rr.Header().Get(HeaderRequestID))
	_, err := uuid.Parse(seen)
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, `"msg":"HTTP request completed"`)
	require.Contains(t, out, `"status_code":201`)
	require.Contains(t, out, `"client_ip":"203.0.113.7"`)
}

func TestMiddleware_IncomingRequestID(t *testing.T) {
	m := NewMiddleware(log.Discard(), nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r)
	}))

	valid := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, valid)
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, valid, seen)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "<script>"+strings.Repeat("x", 200))
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotEqual(t, valid, seen)
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		status int
		want   slog.Level
	}{
		{200, slog.LevelInfo},
		{204, slog.LevelInfo},
		{404, slog.LevelWarn},
		{422, slog.LevelWarn},
		{500, slog.LevelError},
	}
	for _, tt := range tests {
		if got := levelFor(tt.status); got != tt.want {
			t.Errorf("levelFor(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	require.Empty(t, GetRequestID(context.Background()))
}
