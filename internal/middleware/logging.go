package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"journeyrewards/internal/contextutils"
)

// SlowRequestThreshold is the duration above which a request is logged at Warn
const SlowRequestThreshold = 2 * time.Second

// statusWriter records the status code and body size
type statusWriter struct {
	http.ResponseWriter
	status       int
	bytesWritten int64
	wroteHeader  bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(data []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(data)
	w.bytesWritten += int64(n)
	return n, err
}

// Hijack lets the websocket upgrader take over the connection
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	w.wroteHeader = true
	return hijacker.Hijack()
}

// Flush implements http.Flusher
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Logging logs one line per completed request
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := GetRequestStart(r.Context())
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			duration := time.Since(start)
			requestLogger := contextutils.Logger(r.Context(), logger)
			fields := []zap.Field{
				zap.Int("status", sw.status),
				zap.Duration("duration", duration),
				zap.Int64("response_size", sw.bytesWritten),
			}

			switch {
			case duration > SlowRequestThreshold:
				requestLogger.Warn("Slow request", fields...)
			case sw.status >= http.StatusInternalServerError:
				requestLogger.Error("Request failed", fields...)
			default:
				requestLogger.Info("Request completed", fields...)
			}
		})
	}
}
