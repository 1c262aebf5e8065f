package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// Logger emits one access-log line per request through the given slog
// logger. Catalog reads land at Info, client mistakes (4xx) at Warn, and
// server failures (5xx) at Error, so a quiet production log only shows
// what needs attention.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			level := slog.LevelInfo
			switch {
			case rec.status >= 500:
				level = slog.LevelError
			case rec.status >= 400:
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.bytes,
				"elapsed_ms", float64(time.Since(start).Microseconds())/1000.0,
				"request_id", GetRequestID(r.Context()),
				"remote", r.RemoteAddr,
			)
		})
	}
}

// statusRecorder captures the status code and body size a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status     int
	bytes      int
	headerSent bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.headerSent {
		return
	}
	w.headerSent = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.headerSent {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap exposes the wrapped writer so http.ResponseController and
// interface checks (http.Flusher and friends) still reach it.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
