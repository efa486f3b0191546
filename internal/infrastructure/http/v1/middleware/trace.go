package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "rwpay/internal/core/context"
)

const HeaderRequestID = "X-Request-ID"

// Trace attaches a request ID to the context, reusing the client's X-Request-ID if sent.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		trace := appctx.NewTraceContext(c.Request.Context(), c.GetHeader(HeaderRequestID))

		ctx := appctx.WithTrace(c.Request.Context(), trace)
		c.Request = c.Request.WithContext(ctx)

		c.Set("request_id", trace.RequestID)
		c.Header(HeaderRequestID, trace.RequestID)

		c.Next()
	}
}
