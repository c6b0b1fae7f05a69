// Package ratelimit throttles write endpoints per client.
package ratelimit

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Limiter decides whether the request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Middleware rejects requests over the limit with 429. When the limiter
// itself fails the request is let through and the failure logged.
func Middleware(limiter Limiter, scope string, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		key := scope + ":" + c.ClientIP()
		ok, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.WarnContext(c.Request.Context(), "rate limiter error", "scope", scope, "error", err)
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Muitas requisições, tente novamente em instantes."})
			return
		}
		c.Next()
	}
}
