package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"journeyrewards/internal/contextutils"
	"journeyrewards/internal/response"
	"journeyrewards/internal/services"
)

// Recovery turns a handler panic into a masked 500 response
func Recovery(builder *response.Builder, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					contextutils.Logger(r.Context(), logger).Error("Panic recovered",
						zap.Any("panic", rec),
						zap.ByteString("stack", debug.Stack()),
					)
					builder.WriteError(w, r, services.NewInternalError("panic recovered", nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
