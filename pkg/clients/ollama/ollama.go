// Package ollama implements the local-model response backend. It speaks
// both the chat and generate APIs; which one is used is a configuration
// choice, not a per-call one.
package ollama

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/listazap/gateway/internal/ai"
	"github.com/listazap/gateway/internal/config"
)

// Client calls an Ollama instance. Failures normalize into the shared
// fallback replies, never into errors.
type Client struct {
	httpClient *resty.Client
	model      string
	useChat    bool
	logger     *zap.Logger
}

// New builds an Ollama client from configuration.
func New(cfg config.OllamaConfig, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.APIURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &Client{
		httpClient: httpClient,
		model:      cfg.Model,
		useChat:    cfg.UseChat,
		logger:     logger,
	}
}

// Name implements ai.Backend.
func (c *Client) Name() string { return "ollama" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate implements ai.Backend. The model argument overrides the
// configured default when non-empty.
func (c *Client) Generate(ctx context.Context, prompt, model string) string {
	if model == "" {
		model = c.model
	}

	if c.useChat {
		return c.generateChat(ctx, prompt, model)
	}
	return c.generateCompletion(ctx, prompt, model)
}

func (c *Client) generateChat(ctx context.Context, prompt, model string) string {
	body := chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	}

	var result chatResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/chat")
	if err != nil {
		c.logger.Error("ollama chat request failed", zap.Error(err))
		return ai.FallbackError
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		c.logger.Error("ollama api error",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()))
		return ai.FallbackUnavailable
	}

	if result.Message.Content == "" {
		c.logger.Warn("ollama chat response missing content")
		return ai.FallbackNoReply
	}

	return result.Message.Content
}

func (c *Client) generateCompletion(ctx context.Context, prompt, model string) string {
	body := generateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
	}

	var result generateResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/generate")
	if err != nil {
		c.logger.Error("ollama generate request failed", zap.Error(err))
		return ai.FallbackError
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		c.logger.Error("ollama api error",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()))
		return ai.FallbackUnavailable
	}

	if result.Response == "" {
		c.logger.Warn("ollama generate response missing content")
		return ai.FallbackNoReply
	}

	return result.Response
}
