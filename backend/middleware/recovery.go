package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery converts a handler panic into a 500 response. A panic in one
// wizard session must not take down the server for every other session.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID := GetRequestID(c)

				attrs := []any{
					"error", err,
					"request_id", requestID,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
				}
				if sessionID := c.Param("id"); sessionID != "" {
					attrs = append(attrs, "session_id", sessionID)
				}
				attrs = append(attrs, "stack", string(debug.Stack()))
				slog.Error("panic recovered", attrs...)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":      "Internal server error",
					"request_id": requestID,
				})
			}
		}()

		c.Next()
	}
}
