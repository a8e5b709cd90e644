package trace

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ledger/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// HeaderRequestID carries the request ID in both directions.
	HeaderRequestID = "X-Request-ID"

	maxIncomingIDLen = 128
)

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *log.Logger
}

// NewMiddleware creates a new trace middleware. extractIP may be nil.
func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string) *Middleware {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentTrace)
	}
	return &Middleware{
		extractIP: extractIP,
		logger:    logger.WithComponent(log.ComponentTrace),
	}
}

// Middleware returns HTTP middleware for request tracing
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := incomingRequestID(r)
		if requestID == "" {
			requestID = GenerateRequestID()
		}
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		r = r.WithContext(ctx)
		w.Header().Set(HeaderRequestID, requestID)

		fields := log.NewFields().
			WithRequestID(requestID).
			WithClientIP(clientIP).
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"))
		m.logger.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		fields.WithHTTPResponse(rw.statusCode, time.Since(start).Milliseconds())
		m.logger.Log(ctx, levelFor(rw.statusCode), "HTTP request completed", fields.ToSlice()...)
	})
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// incomingRequestID accepts a caller-supplied ID only if it is a UUID, so
// arbitrary header content never reaches the logs.
func incomingRequestID(r *http.Request) string {
	id := r.Header.Get(HeaderRequestID)
	if id == "" || len(id) > maxIncomingIDLen {
		return ""
	}
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return id
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return uuid.NewString()
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// RequestID reads the ID assigned by Middleware. It matches the extractor
// signature expected by log.Middleware.
func RequestID(r *http.Request) string {
	return GetRequestID(r.Context())
}
