// Package gateway orchestrates the inbound webhook flow and the outbound
// send flow.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/listazap/gateway/internal/config"
	"github.com/listazap/gateway/internal/domain/models"
	"github.com/listazap/gateway/internal/phone"
	"github.com/listazap/gateway/internal/ratelimit"
	"github.com/listazap/gateway/internal/repository/messagelog"
	"github.com/listazap/gateway/internal/webhook"
	"github.com/listazap/gateway/pkg/clients/whatsapp"
)

// Outcome is the terminal status of one inbound webhook delivery. It is
// reported to the provider with HTTP 200 regardless of reply-send failures,
// so the provider never retry-storms the gateway.
type Outcome string

const (
	OutcomeNoMessage    Outcome = "no message"
	OutcomeAcknowledged Outcome = "acknowledged"
	OutcomeRateLimited  Outcome = "rate limited"
	OutcomeEmptyMessage Outcome = "empty message"
	OutcomeProcessed    Outcome = "processed"
)

// Responder produces a reply string for a prompt. Implemented by ai.Router.
type Responder interface {
	Respond(ctx context.Context, prompt, backend, model string) string
}

// Service wires parser, rate limiter, AI router and dispatcher into the two
// gateway flows.
type Service struct {
	cfg            config.WhatsAppConfig
	parser         *webhook.Parser
	responder      Responder
	dispatcher     whatsapp.Dispatcher
	inboundLimiter *ratelimit.Limiter
	msgLog         messagelog.Store
	logger         *zap.Logger

	pacing time.Duration
	pause  func(ctx context.Context, d time.Duration)
}

// NewService wires a gateway service. msgLog may be nil; a no-op store is
// substituted.
func NewService(
	cfg config.WhatsAppConfig,
	parser *webhook.Parser,
	responder Responder,
	dispatcher whatsapp.Dispatcher,
	inboundLimiter *ratelimit.Limiter,
	msgLog messagelog.Store,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if msgLog == nil {
		msgLog = messagelog.NopStore{}
	}

	return &Service{
		cfg:            cfg,
		parser:         parser,
		responder:      responder,
		dispatcher:     dispatcher,
		inboundLimiter: inboundLimiter,
		msgLog:         msgLog,
		logger:         logger,
		pacing:         500 * time.Millisecond,
		pause: func(ctx context.Context, d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		},
	}
}

// VerifyWebhookToken validates Meta's webhook verification handshake and
// returns the challenge to echo back.
func (s *Service) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub mode %s", mode)
	}

	if verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}

	return challenge, nil
}

// HandleWebhook processes one inbound webhook delivery through the pipeline
// parse -> rate check -> AI respond -> reply send. Every path returns an
// Outcome; nothing here is fatal.
func (s *Service) HandleWebhook(ctx context.Context, payload models.WebhookPayload) Outcome {
	event := s.parser.Parse(payload)
	if event == nil {
		return OutcomeNoMessage
	}

	if event.Status != nil {
		s.logger.Info("delivery status update",
			zap.String("message_id", event.Status.ID),
			zap.String("status", event.Status.Status),
			zap.String("recipient", phone.Mask(event.Status.RecipientID)))
		return OutcomeAcknowledged
	}

	msg := event.Message
	sender := msg.From
	if normalized, err := phone.Normalize(sender); err == nil {
		sender = normalized
	}

	if s.cfg.LogIncoming {
		s.record(ctx, messagelog.Entry{
			Direction: messagelog.DirectionInbound,
			Peer:      phone.Mask(sender),
			Kind:      string(msg.Kind),
			Status:    "received",
			MessageID: msg.ID,
			Timestamp: time.Unix(msg.Timestamp, 0),
		})
	}

	decision, err := s.inboundLimiter.Allow(ctx, sender)
	if err != nil {
		// A broken counter store must not take the webhook down; let the
		// message through and flag the store failure.
		s.logger.Error("inbound rate limit check failed", zap.Error(err))
	} else if !decision.Allowed {
		s.logger.Warn("inbound sender rate limited",
			zap.String("from", phone.Mask(sender)),
			zap.Int("retry_after_seconds", decision.RetryAfterSeconds()))
		return OutcomeRateLimited
	}

	if strings.TrimSpace(msg.Body) == "" {
		s.logger.Info("inbound message without text body",
			zap.String("from", phone.Mask(sender)),
			zap.String("kind", string(msg.Kind)))
		return OutcomeEmptyMessage
	}

	s.logger.Info("message received",
		zap.String("from", phone.Mask(sender)),
		zap.String("kind", string(msg.Kind)))

	reply := s.responder.Respond(ctx, msg.Body, "", "")

	result := s.dispatcher.Send(ctx, models.OutboundRequest{
		To:   msg.From,
		Kind: models.OutboundKindText,
		Body: reply,
	})

	s.logOutbound(ctx, msg.From, models.OutboundKindText, result)

	if !result.Success {
		// Reported to the provider as processed anyway; a webhook-level error
		// would only trigger provider retries for a failure on our side.
		s.logger.Error("failed to send auto-reply",
			zap.String("to", phone.Mask(msg.From)),
			zap.String("error_code", result.ErrorCode),
			zap.String("error_message", result.ErrorMessage))
	}

	return OutcomeProcessed
}

// SendText sends a text message to every recipient in req.To, optionally
// passing the message through the AI router first.
func (s *Service) SendText(ctx context.Context, req models.SendTextRequest) models.BatchResult {
	message := req.Message
	if req.UseAI {
		message = s.responder.Respond(ctx, message, req.Backend, req.Model)
	}

	return s.sendToAll(ctx, req.To, func(to string) models.OutboundRequest {
		return models.OutboundRequest{To: to, Kind: models.OutboundKindText, Body: message}
	})
}

// SendTemplate sends an approved template to every recipient in req.To.
func (s *Service) SendTemplate(ctx context.Context, req models.SendTemplateRequest) models.BatchResult {
	language := req.Language
	if language == "" {
		language = "pt_BR"
	}

	return s.sendToAll(ctx, req.To, func(to string) models.OutboundRequest {
		return models.OutboundRequest{
			To:   to,
			Kind: models.OutboundKindTemplate,
			Template: &models.OutboundTemplate{
				Name:       req.TemplateName,
				Language:   language,
				Parameters: req.Parameters,
			},
		}
	})
}

// SendMedia sends a media link to every recipient in req.To.
func (s *Service) SendMedia(ctx context.Context, req models.SendMediaRequest) models.BatchResult {
	return s.sendToAll(ctx, req.To, func(to string) models.OutboundRequest {
		return models.OutboundRequest{
			To:   to,
			Kind: models.OutboundKindMedia,
			Media: &models.OutboundMedia{
				URL:     req.MediaURL,
				Type:    req.MediaType,
				Caption: req.Caption,
			},
		}
	})
}

// sendToAll normalizes the recipient list and sends sequentially with a
// fixed pacing delay between recipients. The pacing is deliberate
// self-throttling toward the provider, independent of the caller-facing
// rate limiter.
func (s *Service) sendToAll(ctx context.Context, rawRecipients string, build func(to string) models.OutboundRequest) models.BatchResult {
	recipients, rejected := phone.NormalizeList(rawRecipients)

	batch := models.BatchResult{
		BatchID:  uuid.NewString(),
		Rejected: rejected,
	}

	for _, raw := range rejected {
		s.logger.Warn("rejected invalid recipient", zap.String("raw", raw), zap.String("batch_id", batch.BatchID))
	}

	for i, to := range recipients {
		if i > 0 {
			s.pause(ctx, s.pacing)
		}

		req := build(to)
		result := s.dispatcher.Send(ctx, req)

		s.logOutbound(ctx, to, req.Kind, result)

		entry := models.RecipientResult{
			To:        phone.Mask(to),
			Success:   result.Success,
			MessageID: result.ProviderMessageID,
		}
		if result.Success {
			batch.Sent++
		} else {
			batch.Failed++
			entry.Error = deliveryError(result)
			s.logger.Error("failed to send message",
				zap.String("to", phone.Mask(to)),
				zap.String("batch_id", batch.BatchID),
				zap.Int("http_status", result.HTTPStatus),
				zap.String("error", entry.Error))
		}

		batch.Results = append(batch.Results, entry)
	}

	s.logger.Info("batch send finished",
		zap.String("batch_id", batch.BatchID),
		zap.Int("sent", batch.Sent),
		zap.Int("failed", batch.Failed),
		zap.Int("rejected", len(batch.Rejected)))

	return batch
}

func (s *Service) logOutbound(ctx context.Context, to string, kind models.OutboundKind, result models.DeliveryResult) {
	if !s.cfg.LogOutgoing {
		return
	}

	status := "failed"
	if result.Success {
		status = "sent"
	}

	s.record(ctx, messagelog.Entry{
		Direction: messagelog.DirectionOutbound,
		Peer:      phone.Mask(to),
		Kind:      string(kind),
		Status:    status,
		MessageID: result.ProviderMessageID,
		Timestamp: time.Now(),
	})
}

func (s *Service) record(ctx context.Context, entry messagelog.Entry) {
	if err := s.msgLog.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to record message log entry", zap.Error(err))
	}
}

func deliveryError(result models.DeliveryResult) string {
	if result.ErrorCode != "" {
		return fmt.Sprintf("%s (code %s)", result.ErrorMessage, result.ErrorCode)
	}
	if result.ErrorMessage != "" {
		return result.ErrorMessage
	}
	return "unknown error"
}
