// Package deepseek implements the chat-completions response backend.
package deepseek

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/listazap/gateway/internal/ai"
	"github.com/listazap/gateway/internal/config"
)

// Client calls the Deepseek chat-completions API. Failures never propagate;
// they normalize into the shared fallback replies.
type Client struct {
	httpClient *resty.Client
	apiURL     string
	model      string
	maxTokens  int
	logger     *zap.Logger
}

// New builds a Deepseek client from configuration. Timeout bounds every
// generation call.
func New(cfg config.DeepseekConfig, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &Client{
		httpClient: httpClient,
		apiURL:     cfg.APIURL,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		logger:     logger,
	}
}

// Name implements ai.Backend.
func (c *Client) Name() string { return "deepseek" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
	Stream    bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate implements ai.Backend. The model argument overrides the
// configured default when non-empty.
func (c *Client) Generate(ctx context.Context, prompt, model string) string {
	if model == "" {
		model = c.model
	}

	body := chatRequest{
		Model:     model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: c.maxTokens,
		Stream:    false,
	}

	var result chatResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post(c.apiURL)
	if err != nil {
		c.logger.Error("deepseek request failed", zap.Error(err))
		return ai.FallbackError
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		c.logger.Error("deepseek api error",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()))
		return ai.FallbackUnavailable
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		c.logger.Warn("deepseek response missing content")
		return ai.FallbackNoReply
	}

	return result.Choices[0].Message.Content
}
