package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/listazap/gateway/internal/config"
	"github.com/listazap/gateway/internal/ratelimit"
	"github.com/listazap/gateway/internal/server/handlers"
	"github.com/listazap/gateway/internal/server/middleware"
)

// New wires the Gin engine with routes and middlewares. Signature
// verification guards only the webhook POST; the send rate limiter guards
// only the send endpoints.
func New(
	cfg config.WhatsAppConfig,
	webhookHandler *handlers.WebhookHandler,
	sendHandler *handlers.SendHandler,
	sendLimiter *ratelimit.Limiter,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	wa := r.Group("/whatsapp")
	{
		wa.GET("/webhook", webhookHandler.Verify)
		wa.POST("/webhook",
			middleware.WebhookSignature(cfg.AppSecret, cfg.VerifySignature, logger),
			webhookHandler.Receive)

		send := wa.Group("", middleware.SendRateLimit(sendLimiter, logger))
		{
			send.POST("/send", sendHandler.SendText)
			send.POST("/send/template", sendHandler.SendTemplate)
			send.POST("/send/media", sendHandler.SendMedia)
		}
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
