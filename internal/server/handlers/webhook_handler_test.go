package handlers_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listazap/gateway/internal/ai"
	"github.com/listazap/gateway/internal/config"
	"github.com/listazap/gateway/internal/ratelimit"
	"github.com/listazap/gateway/internal/server/handlers"
	"github.com/listazap/gateway/internal/server/router"
	"github.com/listazap/gateway/internal/service/gateway"
	"github.com/listazap/gateway/internal/webhook"
	"github.com/listazap/gateway/pkg/clients/deepseek"
	whatsappclient "github.com/listazap/gateway/pkg/clients/whatsapp"
)

const testAppSecret = "test-app-secret"

// fakeProvider captures the outbound messages the gateway posts to the Cloud
// API.
type fakeProvider struct {
	server   *httptest.Server
	payloads []map[string]any
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()

	p := &fakeProvider{}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		p.payloads = append(p.payloads, payload)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages": [{"id": "wamid.out"}]}`))
	}))
	t.Cleanup(p.server.Close)

	return p
}

func newFakeAI(t *testing.T, reply string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)

	return server
}

// newTestStack wires a full engine backed by fake provider and AI servers.
func newTestStack(t *testing.T, enabled bool) (*gin.Engine, *fakeProvider) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := newFakeProvider(t)
	aiServer := newFakeAI(t, "Hello! How can I help?")

	waCfg := config.WhatsAppConfig{
		Enabled:         enabled,
		WebhookEnabled:  enabled,
		AccessToken:     "token",
		PhoneID:         "123456",
		VerifyToken:     "verify-me",
		AppSecret:       testAppSecret,
		BaseURL:         provider.server.URL,
		APIVersion:      "v18.0",
		VerifySignature: true,
		Timeout:         5 * time.Second,
		RetryAttempts:   1,
	}

	aiRouter := ai.NewRouter("deepseek", nil,
		deepseek.New(config.DeepseekConfig{
			APIKey: "key",
			APIURL: aiServer.URL,
			Model:  "deepseek-chat",
		}, 5*time.Second, nil),
	)

	store := ratelimit.NewMemoryStore()
	inboundLimiter := ratelimit.NewLimiter(store, ratelimit.ScopeInboundReply, 10, time.Hour)
	sendLimiter := ratelimit.NewLimiter(store, ratelimit.ScopeOutboundSend, 10, time.Hour)

	svc := gateway.NewService(
		waCfg,
		webhook.NewParser(nil),
		aiRouter,
		whatsappclient.NewClient(waCfg, nil),
		inboundLimiter,
		nil,
		nil,
	)

	engine := router.New(waCfg,
		handlers.NewWebhookHandler(svc, waCfg, nil),
		handlers.NewSendHandler(svc, waCfg, nil),
		sendLimiter,
		nil,
	)

	return engine, provider
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(testAppSecret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func inboundText(from, body string) string {
	return `{
		"object": "whatsapp_business_account",
		"entry": [{"id": "1", "changes": [{"field": "messages", "value": {
			"messaging_product": "whatsapp",
			"messages": [{
				"from": "` + from + `",
				"id": "wamid.in",
				"timestamp": "1620000000",
				"type": "text",
				"text": {"body": "` + body + `"}
			}]
		}}]}]
	}`
}

func TestWebhookVerifyChallenge(t *testing.T) {
	engine, _ := newTestStack(t, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=98765", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "98765", w.Body.String())
}

func TestWebhookVerifyRejectsBadToken(t *testing.T) {
	engine, _ := newTestStack(t, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=98765", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWebhookInboundMessageGetsAutoReply(t *testing.T) {
	engine, provider := newTestStack(t, true)

	body := inboundText("558399999999", "Hi")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hub-Signature-256", sign(body))
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "processed"}`, w.Body.String())

	require.Len(t, provider.payloads, 1)
	sent := provider.payloads[0]
	assert.Equal(t, "whatsapp", sent["messaging_product"])
	assert.Equal(t, "558399999999", sent["to"])
	assert.Equal(t, "text", sent["type"])
	text, ok := sent["text"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Hello! How can I help?", text["body"])
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	engine, provider := newTestStack(t, true)

	body := inboundText("558399999999", "Hi")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, provider.payloads)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	engine, provider := newTestStack(t, true)

	body := inboundText("558399999999", "Hi")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, provider.payloads)
}

func TestWebhookDisabledReturns503(t *testing.T) {
	engine, provider := newTestStack(t, false)

	body := inboundText("558399999999", "Hi")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hub-Signature-256", sign(body))
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status": "webhook disabled"}`, w.Body.String())
	assert.Empty(t, provider.payloads)
}

func TestWebhookMalformedPayloadStillAcks(t *testing.T) {
	engine, provider := newTestStack(t, true)

	body := `{"entry": "not-a-list"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hub-Signature-256", sign(body))
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "no message"}`, w.Body.String())
	assert.Empty(t, provider.payloads)
}

func TestWebhookStatusUpdateAcknowledged(t *testing.T) {
	engine, provider := newTestStack(t, true)

	body := `{
		"entry": [{"changes": [{"value": {
			"statuses": [{"id": "wamid.s", "status": "delivered", "timestamp": "1620000000", "recipient_id": "558399999999"}]
		}}]}]
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hub-Signature-256", sign(body))
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "acknowledged"}`, w.Body.String())
	assert.Empty(t, provider.payloads)
}
