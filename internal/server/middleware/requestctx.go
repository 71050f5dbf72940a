// Package middleware holds the gin middleware shared by all HTTP routes.
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/backend/internal/logger"
	"storefront/backend/internal/server/reqctx"
)

// RequestIDHeader is read from the request when present and always echoed on the response.
const RequestIDHeader = "X-Request-ID"

// RequestContext stores request id, client IP and user agent in the request context, attaches
// a request-scoped logger, and logs each completed request. Paths in quiet are not logged.
func RequestContext(base *zap.Logger, quiet ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(quiet))
	for _, p := range quiet {
		skip[p] = true
	}
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.New().String()
		}
		c.Header(RequestIDHeader, requestID)

		// Forwarded headers count only when the engine trusts the peer (gin.Engine.SetTrustedProxies).
		ip := c.ClientIP()
		log := base.With(zap.String("request_id", requestID))
		ctx := reqctx.WithClient(c.Request.Context(), requestID, ip, c.Request.UserAgent())
		ctx = logger.WithContext(ctx, log)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if skip[c.FullPath()] {
			return
		}
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", ip),
		)
	}
}

// Recovery turns panics into a logged JSON 500.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.FromContext(c.Request.Context()).Error("panic in HTTP handler",
			zap.Any("panic", recovered), zap.String("path", c.FullPath()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	})
}
