package logging

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDMiddleware adds a request ID to each presentation request and logs
// request/response. SSE subscriptions are logged once at start only.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)

		w.Header().Set("X-Request-ID", requestID)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		start := time.Now()
		DebugContext(ctx, "request started",
			"method", r.Method,
			"path", r.URL.Path,
		)

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		if wrapped.statusCode >= 400 {
			WarnContext(ctx, "request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"durationMs", duration.Milliseconds(),
			)
			return
		}
		DebugContext(ctx, "request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"durationMs", duration.Milliseconds(),
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher for SSE support
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Transport tags outbound backend requests with an X-Request-ID and logs
// their outcome. Cancelled requests are logged at trace level.
type Transport struct {
	base http.RoundTripper
}

// NewTransport wraps base, or http.DefaultTransport when base is nil.
func NewTransport(base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	requestID := GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	req = req.Clone(WithRequestID(ctx, requestID))
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			TraceContext(req.Context(), "backend request cancelled", "path", req.URL.Path)
		} else {
			WarnContext(req.Context(), "backend request failed",
				"path", req.URL.Path,
				"error", err,
				"durationMs", duration.Milliseconds(),
			)
		}
		return nil, err
	}

	DebugContext(req.Context(), "backend request",
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"durationMs", duration.Milliseconds(),
	)
	return resp, nil
}
