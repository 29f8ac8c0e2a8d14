package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reqgate/reqgate/logger"
)

// Recovery turns a handler panic into a logged 500 instead of a dropped
// connection.
func Recovery(log *logger.CtxZapLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.ErrorCtx(c.Request.Context(), "panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.ByteString("stack", debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"detail": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
