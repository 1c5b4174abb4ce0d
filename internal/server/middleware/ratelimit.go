package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/listazap/gateway/internal/ratelimit"
)

const apiKeyHeader = "X-API-Key"

// SendRateLimit returns a middleware throttling the outbound send endpoints.
// Callers are identified by API key when one is presented, falling back to
// the client network address.
func SendRateLimit(limiter *ratelimit.Limiter, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		identity := callerIdentity(c)

		decision, err := limiter.Allow(c.Request.Context(), identity)
		if err != nil {
			// Counter store failure: let the call through rather than refuse
			// service over throttling bookkeeping.
			logger.Error("outbound rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			logger.Warn("send request rate limited",
				zap.String("caller", identity),
				zap.Int("retry_after_seconds", decision.RetryAfterSeconds()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many send requests, try again later",
				"retry_after": decision.RetryAfterSeconds(),
			})
			return
		}

		c.Next()
	}
}

func callerIdentity(c *gin.Context) string {
	if key := c.GetHeader(apiKeyHeader); key != "" {
		return "key:" + key
	}
	return "ip:" + c.ClientIP()
}
