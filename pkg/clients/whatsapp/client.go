// Package whatsapp sends outbound messages through the Meta WhatsApp Cloud
// API with bounded retries and structured error classification.
package whatsapp

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/listazap/gateway/internal/config"
	"github.com/listazap/gateway/internal/domain/models"
)

// Dispatcher exposes the outbound send operation used by the gateway.
type Dispatcher interface {
	Send(ctx context.Context, req models.OutboundRequest) models.DeliveryResult
}

// Client is a resty-backed Dispatcher.
type Client struct {
	httpClient  *resty.Client
	phoneID     string
	attempts    int
	backoffBase time.Duration
	logger      *zap.Logger
}

// NewClient builds a WhatsApp API client using the provided configuration
// values.
func NewClient(cfg config.WhatsAppConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := strings.TrimSuffix(cfg.BaseURL, "/")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	restyClient := resty.New().
		SetBaseURL(fmt.Sprintf("%s/%s", base, cfg.APIVersion)).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.AccessToken)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &Client{
		httpClient:  restyClient,
		phoneID:     cfg.PhoneID,
		attempts:    attempts,
		backoffBase: time.Second,
		logger:      logger,
	}
}

// sendResponse mirrors the successful response from Meta.
type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// apiError represents a WhatsApp Cloud API error payload.
type apiError struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		FBTraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

// Send delivers one message and returns its terminal DeliveryResult. Client
// errors (4xx) are terminal on the first classification; transport faults
// and 5xx responses retry with exponential backoff (1s, 2s, 4s, ...) until
// the attempt budget is spent.
func (c *Client) Send(ctx context.Context, req models.OutboundRequest) models.DeliveryResult {
	payload, err := buildPayload(req)
	if err != nil {
		return models.DeliveryResult{ErrorMessage: err.Error()}
	}

	var last models.DeliveryResult

	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			wait := c.backoffBase << (attempt - 2)
			c.logger.Warn("retrying whatsapp send",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait))
			select {
			case <-ctx.Done():
				last.ErrorMessage = ctx.Err().Error()
				return last
			case <-time.After(wait):
			}
		}

		result := new(sendResponse)
		apiErr := new(apiError)

		resp, err := c.httpClient.R().
			SetContext(ctx).
			SetBody(payload).
			SetResult(result).
			SetError(apiErr).
			Post(fmt.Sprintf("%s/messages", c.phoneID))
		if err != nil {
			last = models.DeliveryResult{ErrorMessage: fmt.Sprintf("send whatsapp message: %v", err)}
			c.logger.Warn("whatsapp send transport error", zap.Error(err), zap.Int("attempt", attempt))
			continue
		}

		status := resp.StatusCode()
		if status < http.StatusBadRequest {
			delivered := models.DeliveryResult{
				Success:    true,
				HTTPStatus: status,
			}
			if len(result.Messages) > 0 {
				delivered.ProviderMessageID = result.Messages[0].ID
			}
			return delivered
		}

		last = failureResult(status, apiErr)

		if status < http.StatusInternalServerError {
			// Client errors are terminal; retrying the same payload cannot
			// succeed.
			c.logger.Error("whatsapp api rejected message",
				zap.Int("status", status),
				zap.String("error_code", last.ErrorCode),
				zap.String("error_message", last.ErrorMessage))
			return last
		}

		c.logger.Warn("whatsapp api server error",
			zap.Int("status", status),
			zap.Int("attempt", attempt))
	}

	return last
}

func failureResult(status int, apiErr *apiError) models.DeliveryResult {
	result := models.DeliveryResult{
		HTTPStatus:   status,
		ErrorMessage: "whatsapp api request failed",
	}
	if apiErr != nil && apiErr.Error.Message != "" {
		result.ErrorMessage = apiErr.Error.Message
	}
	if apiErr != nil && apiErr.Error.Code != 0 {
		result.ErrorCode = strconv.Itoa(apiErr.Error.Code)
	}
	return result
}

// buildPayload produces the provider-specific JSON body for each outbound
// kind.
func buildPayload(req models.OutboundRequest) (map[string]any, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                req.To,
	}

	switch req.Kind {
	case models.OutboundKindText:
		payload["type"] = "text"
		payload["text"] = map[string]any{
			"body":        req.Body,
			"preview_url": false,
		}

	case models.OutboundKindMedia:
		if req.Media == nil {
			return nil, fmt.Errorf("media request without media payload")
		}
		media := map[string]any{"link": req.Media.URL}
		switch req.Media.Type {
		case "image", "video", "document":
			if req.Media.Caption != "" {
				media["caption"] = req.Media.Caption
			}
		case "audio":
			// Audio messages do not support captions.
		default:
			return nil, fmt.Errorf("unsupported media type %q", req.Media.Type)
		}
		payload["type"] = req.Media.Type
		payload[req.Media.Type] = media

	case models.OutboundKindTemplate:
		if req.Template == nil {
			return nil, fmt.Errorf("template request without template payload")
		}
		template := map[string]any{
			"name":     req.Template.Name,
			"language": map[string]any{"code": req.Template.Language},
		}
		if len(req.Template.Parameters) > 0 {
			parameters := make([]map[string]any, 0, len(req.Template.Parameters))
			for _, p := range req.Template.Parameters {
				parameters = append(parameters, map[string]any{"type": "text", "text": p})
			}
			template["components"] = []map[string]any{
				{"type": "body", "parameters": parameters},
			}
		}
		payload["type"] = "template"
		payload["template"] = template

	default:
		return nil, fmt.Errorf("unknown outbound kind %q", req.Kind)
	}

	return payload, nil
}
