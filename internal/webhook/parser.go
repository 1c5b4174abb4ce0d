// Package webhook decodes WhatsApp Cloud API webhook envelopes into the
// gateway's normalized message model.
package webhook

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/listazap/gateway/internal/domain/models"
)

// Event is the result of parsing one webhook envelope: either an inbound
// message or a delivery-status update, never both.
type Event struct {
	Message *models.Message
	Status  *models.StatusUpdate
}

// Parser turns raw webhook payloads into Events. Malformed envelopes yield
// nil; the parser never panics and never returns an error to its caller.
type Parser struct {
	logger *zap.Logger
}

// NewParser builds a parser. A nil logger is replaced with a no-op.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Parse navigates entry[0].changes[0].value. Messages win over statuses;
// an envelope carrying neither is ignored.
func (p *Parser) Parse(payload models.WebhookPayload) *Event {
	if len(payload.Entry) == 0 || len(payload.Entry[0].Changes) == 0 {
		p.logger.Info("webhook envelope has no entry changes")
		return nil
	}

	value := payload.Entry[0].Changes[0].Value

	if len(value.Messages) > 0 {
		msg := p.parseMessage(value)
		if msg == nil {
			return nil
		}
		return &Event{Message: msg}
	}

	if len(value.Statuses) > 0 {
		return &Event{Status: parseStatus(value.Statuses[0])}
	}

	p.logger.Info("webhook envelope carries neither messages nor statuses")
	return nil
}

func (p *Parser) parseMessage(value models.WebhookValue) *models.Message {
	raw := value.Messages[0]
	if raw.From == "" {
		p.logger.Warn("inbound message missing sender", zap.String("message_id", raw.ID))
		return nil
	}

	msg := &models.Message{
		ID:        raw.ID,
		From:      raw.From,
		Timestamp: parseTimestamp(raw.Timestamp),
	}

	if len(value.Contacts) > 0 {
		msg.ContactName = value.Contacts[0].Profile.Name
	}

	switch raw.Type {
	case "text":
		msg.Kind = models.KindText
		if raw.Text != nil {
			msg.Body = raw.Text.Body
		}
	case "image":
		msg.Kind = models.KindImage
		msg.Media = raw.Image
	case "video":
		msg.Kind = models.KindVideo
		msg.Media = raw.Video
	case "audio":
		msg.Kind = models.KindAudio
		msg.Media = raw.Audio
	case "document":
		msg.Kind = models.KindDocument
		msg.Media = raw.Document
	case "location":
		msg.Kind = models.KindLocation
		msg.Location = raw.Location
	case "contacts":
		msg.Kind = models.KindContacts
		msg.Contacts = raw.Contacts
	default:
		msg.Kind = models.KindUnsupported
		msg.Body = fmt.Sprintf("[unsupported message type: %s]", raw.Type)
		p.logger.Info("unsupported inbound message type",
			zap.String("type", raw.Type),
			zap.String("message_id", raw.ID))
	}

	return msg
}

func parseStatus(raw models.WebhookStatus) *models.StatusUpdate {
	return &models.StatusUpdate{
		ID:          raw.ID,
		Status:      raw.Status,
		Timestamp:   parseTimestamp(raw.Timestamp),
		RecipientID: raw.RecipientID,
	}
}

// parseTimestamp decodes the provider's epoch-seconds string, falling back
// to the current time when absent or malformed.
func parseTimestamp(raw string) int64 {
	if raw == "" {
		return time.Now().Unix()
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Now().Unix()
	}
	return ts
}
