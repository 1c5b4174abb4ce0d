package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/listazap/gateway/internal/config"
	"github.com/listazap/gateway/internal/domain/models"
	"github.com/listazap/gateway/internal/service/gateway"
)

// WebhookHandler handles the provider-facing webhook endpoints.
type WebhookHandler struct {
	svc    *gateway.Service
	cfg    config.WhatsAppConfig
	logger *zap.Logger
}

// NewWebhookHandler constructs the HTTP handler adapter.
func NewWebhookHandler(svc *gateway.Service, cfg config.WhatsAppConfig, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, cfg: cfg, logger: logger}
}

// Verify responds to Meta's webhook verification challenge. Both the dotted
// and underscored query parameter spellings are accepted.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := queryEither(c, "hub.mode", "hub_mode")
	token := queryEither(c, "hub.verify_token", "hub_verify_token")
	challenge := queryEither(c, "hub.challenge", "hub_challenge")

	resp, err := h.svc.VerifyWebhookToken(mode, token, challenge)
	if err != nil {
		h.logger.Warn("webhook verification failed", zap.Error(err))
		c.JSON(http.StatusForbidden, gin.H{"status": "error"})
		return
	}

	c.String(http.StatusOK, resp)
}

// Receive ingests webhook POST callbacks from Meta. Ingestion always acks
// with 200 once past the administrative gate; delivery failures on our side
// are logged, never surfaced, so the provider does not retry-storm.
func (h *WebhookHandler) Receive(c *gin.Context) {
	if !h.cfg.Enabled || !h.cfg.WebhookEnabled {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "webhook disabled"})
		return
	}

	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		// Undecodable envelopes get the same treatment as empty ones.
		h.logger.Warn("invalid webhook payload", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": string(gateway.OutcomeNoMessage)})
		return
	}

	outcome := h.svc.HandleWebhook(c.Request.Context(), payload)
	c.JSON(http.StatusOK, gin.H{"status": string(outcome)})
}

func queryEither(c *gin.Context, primary, alternate string) string {
	if v := c.Query(primary); v != "" {
		return v
	}
	return c.Query(alternate)
}
