package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// quietPaths are not logged.
var quietPaths = []string{"/health", "/metrics"}

// sensitiveParams are redacted from logged query strings.
var sensitiveParams = map[string]bool{
	"key":          true,
	"api_key":      true,
	"apikey":       true,
	"x-api-key":    true,
	"token":        true,
	"secret":       true,
	"password":     true,
	"access_token": true,
}

// RequestLoggingMiddleware logs HTTP requests with timing and status information.
type RequestLoggingMiddleware struct {
	logger *slog.Logger
}

// NewRequestLoggingMiddleware creates a new request logging middleware.
func NewRequestLoggingMiddleware(logger *slog.Logger) *RequestLoggingMiddleware {
	return &RequestLoggingMiddleware{logger: logger}
}

// Handler returns middleware that logs all HTTP requests.
func (m *RequestLoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, p := range quietPaths {
			if r.URL.Path == p {
				next.ServeHTTP(w, r)
				return
			}
		}

		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		attrs := []any{
			"method", r.Method,
			"path", redactQuery(r.URL),
			"status", wrapped.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", wrapped.bytes,
			"ip", clientIP(r),
			"user_agent", r.UserAgent(),
		}

		switch {
		case wrapped.status >= 500:
			m.logger.Error("request", attrs...)
		case wrapped.status >= 400:
			m.logger.Warn("request", attrs...)
		default:
			m.logger.Info("request", attrs...)
		}
	})
}

// statusRecorder captures the status code and body size.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// redactQuery returns the path with sensitive query values replaced.
func redactQuery(u *url.URL) string {
	if u.RawQuery == "" {
		return u.Path
	}

	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return u.Path
	}
	for k := range values {
		if sensitiveParams[strings.ToLower(k)] {
			values[k] = []string{"[REDACTED]"}
		}
	}
	// Encode escapes the brackets; keep the marker readable.
	return u.Path + "?" + strings.ReplaceAll(values.Encode(), "%5BREDACTED%5D", "[REDACTED]")
}

// clientIP extracts the client IP from the request, considering proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
