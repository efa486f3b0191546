package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"rwpay/internal/core/apperror"
	"rwpay/pkg/logger"
)

// Recovery turns a handler panic into a 500 response. It must be the outermost
// middleware; the stack goes to the log only.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
				)

				_ = c.Error(apperror.NewInternal(fmt.Errorf("panic: %v", err)))

				// ErrorHandler sits inside this frame and was unwound by the panic.
				body := gin.H{
					"code":    apperror.CodeInternal,
					"message": "Internal server error",
					"details": map[string]any{
						"request_id": c.GetString("request_id"),
					},
				}
				failIdempotency(c, http.StatusInternalServerError, body)
				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError, body)
					return
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}
