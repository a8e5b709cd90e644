package security

import (
	"bytes"
	"crypto/tls"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"ledger/internal/log"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct public peer", "203.0.113.5:4000", "", "", "203.0.113.5"},
		{"public peer cannot spoof", "203.0.113.5:4000", "198.51.100.1", "", "203.0.113.5"},
		{"trusted proxy forwards", "10.0.0.2:4000", "198.51.100.1, 10.0.0.9", "", "198.51.100.1"},
		{"trusted proxy real ip", "127.0.0.1:4000", "", "198.51.100.2", "198.51.100.2"},
		{"trusted proxy garbage header", "192.168.1.1:4000", "not-an-ip", "", "192.168.1.1"},
		{"no port", "203.0.113.9", "", "", "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			require.Equal(t, tt.want, d.ExtractClientIP(r))
		})
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector()
	require.Error(t, d.AddTrustedProxy("nope"))
	require.NoError(t, d.AddTrustedProxy("203.0.113.0/24"))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.5:4000"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	require.Equal(t, "198.51.100.1", d.ExtractClientIP(r))
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"normal api call", http.MethodGet, "/api/balances", "Mozilla/5.0", false},
		{"curl is fine", http.MethodPost, "/api/people", "curl/8.0", false},
		{"path traversal", http.MethodGet, "/api/../etc/passwd", "", true},
		{"dotenv probe", http.MethodGet, "/.env", "", true},
		{"query injection", http.MethodGet, "/api/expenses?q=union+select", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.agent)
			require.Equal(t, tt.want, d.DetectSuspiciousRequest(r))
		})
	}
	require.Equal(t, int64(5), d.SuspiciousRequests())
}

func TestDetectorMiddleware_LogsAndPasses(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelInfo, Format: log.FormatJSON, Output: &buf})
	d := NewDetector()

	h := d.Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, buf.String(), "Suspicious request detected")
	require.Contains(t, buf.String(), `"component":"security"`)
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/people", nil))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/api/people", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, "max-age=31536000; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
}
