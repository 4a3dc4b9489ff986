package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// Recovery turns a panic into a 500 for that request and reports it to Sentry
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				sentry.WithScope(func(scope *sentry.Scope) {
					scope.SetRequest(c.Request)
					scope.SetExtra("panic", rec)
					scope.SetExtra("stack", string(debug.Stack()))
					sentry.CaptureMessage("panic in request")
				})

				logger.ErrorContext(c.Request.Context(), "panic recovered",
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"panic", rec,
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()

		c.Next()
	}
}

// CaptureError reports an unexpected error with the request attached
func CaptureError(c *gin.Context, err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(c.Request)
		sentry.CaptureException(err)
	})
}
