package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/listazap/gateway/internal/config"
	"github.com/listazap/gateway/internal/domain/models"
	"github.com/listazap/gateway/internal/service/gateway"
)

// SendHandler handles the caller-facing outbound send endpoints.
type SendHandler struct {
	svc    *gateway.Service
	cfg    config.WhatsAppConfig
	logger *zap.Logger
}

// NewSendHandler constructs the HTTP handler adapter.
func NewSendHandler(svc *gateway.Service, cfg config.WhatsAppConfig, logger *zap.Logger) *SendHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendHandler{svc: svc, cfg: cfg, logger: logger}
}

// SendText sends a text message to one or more recipients.
func (h *SendHandler) SendText(c *gin.Context) {
	if !h.gateOpen(c) {
		return
	}

	var req models.SendTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	h.respond(c, h.svc.SendText(c.Request.Context(), req))
}

// SendTemplate sends an approved template message.
func (h *SendHandler) SendTemplate(c *gin.Context) {
	if !h.gateOpen(c) {
		return
	}

	var req models.SendTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid template payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	h.respond(c, h.svc.SendTemplate(c.Request.Context(), req))
}

// SendMedia sends a media message by URL.
func (h *SendHandler) SendMedia(c *gin.Context) {
	if !h.gateOpen(c) {
		return
	}

	var req models.SendMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid media payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	switch req.MediaType {
	case "image", "video", "audio", "document":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "media_type must be image, video, audio or document"})
		return
	}

	h.respond(c, h.svc.SendMedia(c.Request.Context(), req))
}

func (h *SendHandler) gateOpen(c *gin.Context) bool {
	if !h.cfg.Enabled {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "whatsapp integration is disabled"})
		return false
	}
	return true
}

func (h *SendHandler) respond(c *gin.Context, batch models.BatchResult) {
	if len(batch.Results) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":            "no valid recipient numbers",
			"rejected_numbers": batch.Rejected,
		})
		return
	}

	c.JSON(http.StatusOK, batch)
}
