package webhook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listazap/gateway/internal/domain/models"
)

func decodePayload(t *testing.T, raw string) models.WebhookPayload {
	t.Helper()
	var payload models.WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestParseTextMessage(t *testing.T) {
	payload := decodePayload(t, `{
		"entry": [{"changes": [{"value": {
			"contacts": [{"profile": {"name": "Maria"}, "wa_id": "5583998530445"}],
			"messages": [{
				"from": "5583998530445",
				"id": "wamid.123",
				"timestamp": "1620000000",
				"type": "text",
				"text": {"body": "Hello, how are you?"}
			}]
		}}]}]
	}`)

	event := NewParser(nil).Parse(payload)
	require.NotNil(t, event)
	require.NotNil(t, event.Message)
	assert.Nil(t, event.Status)

	msg := event.Message
	assert.Equal(t, "5583998530445", msg.From)
	assert.Equal(t, models.KindText, msg.Kind)
	assert.Equal(t, "Hello, how are you?", msg.Body)
	assert.Equal(t, int64(1620000000), msg.Timestamp)
	assert.Equal(t, "Maria", msg.ContactName)
}

func TestParseDocumentMessage(t *testing.T) {
	payload := decodePayload(t, `{
		"entry": [{"changes": [{"value": {
			"messages": [{
				"from": "5583998530445",
				"id": "wamid.456",
				"timestamp": "1620000001",
				"type": "document",
				"document": {
					"id": "media-1",
					"mime_type": "application/pdf",
					"sha256": "abc123",
					"caption": "Invoice",
					"filename": "invoice.pdf"
				}
			}]
		}}]}]
	}`)

	event := NewParser(nil).Parse(payload)
	require.NotNil(t, event)
	require.NotNil(t, event.Message)

	msg := event.Message
	assert.Equal(t, models.KindDocument, msg.Kind)
	require.NotNil(t, msg.Media)
	assert.Equal(t, "media-1", msg.Media.ID)
	assert.Equal(t, "application/pdf", msg.Media.MimeType)
	assert.Equal(t, "invoice.pdf", msg.Media.Filename)
	assert.Empty(t, msg.Body)
}

func TestParseLocationToleratesMissingName(t *testing.T) {
	payload := decodePayload(t, `{
		"entry": [{"changes": [{"value": {
			"messages": [{
				"from": "5583998530445",
				"timestamp": "1620000002",
				"type": "location",
				"location": {"latitude": -7.115, "longitude": -34.861}
			}]
		}}]}]
	}`)

	event := NewParser(nil).Parse(payload)
	require.NotNil(t, event)
	require.NotNil(t, event.Message)
	require.NotNil(t, event.Message.Location)
	assert.InDelta(t, -7.115, event.Message.Location.Latitude, 1e-9)
	assert.Empty(t, event.Message.Location.Name)
	assert.Empty(t, event.Message.Location.Address)
}

func TestParseStatusUpdate(t *testing.T) {
	payload := decodePayload(t, `{
		"entry": [{"changes": [{"value": {
			"statuses": [{
				"id": "wamid.789",
				"status": "delivered",
				"timestamp": "1620000003",
				"recipient_id": "5583998530445"
			}]
		}}]}]
	}`)

	event := NewParser(nil).Parse(payload)
	require.NotNil(t, event)
	assert.Nil(t, event.Message)
	require.NotNil(t, event.Status)
	assert.Equal(t, "delivered", event.Status.Status)
	assert.Equal(t, "5583998530445", event.Status.RecipientID)
	assert.Equal(t, int64(1620000003), event.Status.Timestamp)
}

func TestParseUnsupportedType(t *testing.T) {
	payload := decodePayload(t, `{
		"entry": [{"changes": [{"value": {
			"messages": [{
				"from": "5583998530445",
				"timestamp": "1620000004",
				"type": "sticker"
			}]
		}}]}]
	}`)

	event := NewParser(nil).Parse(payload)
	require.NotNil(t, event)
	require.NotNil(t, event.Message)
	assert.Equal(t, models.KindUnsupported, event.Message.Kind)
	assert.Equal(t, "[unsupported message type: sticker]", event.Message.Body)
}

func TestParseMalformedEnvelopes(t *testing.T) {
	parser := NewParser(nil)

	assert.Nil(t, parser.Parse(models.WebhookPayload{}))
	assert.Nil(t, parser.Parse(decodePayload(t, `{"entry": [{"changes": []}]}`)))
	assert.Nil(t, parser.Parse(decodePayload(t, `{"entry": [{"changes": [{"value": {}}]}]}`)))
	// A message without a sender cannot be replied to.
	assert.Nil(t, parser.Parse(decodePayload(t, `{
		"entry": [{"changes": [{"value": {"messages": [{"type": "text"}]}}]}]
	}`)))
}

func TestParseContactsPassThrough(t *testing.T) {
	payload := decodePayload(t, `{
		"entry": [{"changes": [{"value": {
			"messages": [{
				"from": "5583998530445",
				"timestamp": "1620000005",
				"type": "contacts",
				"contacts": [{"name": {"formatted_name": "Ana"}}]
			}]
		}}]}]
	}`)

	event := NewParser(nil).Parse(payload)
	require.NotNil(t, event)
	require.NotNil(t, event.Message)
	assert.Equal(t, models.KindContacts, event.Message.Kind)
	assert.JSONEq(t, `[{"name": {"formatted_name": "Ana"}}]`, string(event.Message.Contacts))
}
