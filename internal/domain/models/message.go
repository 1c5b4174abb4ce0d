package models

import "encoding/json"

// MessageKind classifies a parsed inbound message.
type MessageKind string

const (
	KindText        MessageKind = "text"
	KindImage       MessageKind = "image"
	KindVideo       MessageKind = "video"
	KindAudio       MessageKind = "audio"
	KindDocument    MessageKind = "document"
	KindLocation    MessageKind = "location"
	KindContacts    MessageKind = "contacts"
	KindUnsupported MessageKind = "unsupported"
)

// IsMedia reports whether the kind carries a media attachment.
func (k MessageKind) IsMedia() bool {
	switch k {
	case KindImage, KindVideo, KindAudio, KindDocument:
		return true
	}
	return false
}

// Message is the normalized inbound message produced by the webhook parser.
// From and Timestamp are always set; exactly one of Body, Media, Location or
// Contacts is populated depending on Kind.
type Message struct {
	ID          string
	From        string
	Kind        MessageKind
	Body        string
	Media       *MediaContent
	Location    *LocationContent
	Contacts    json.RawMessage
	Timestamp   int64
	ContactName string
}

// StatusUpdate is a delivery-status event. It is forwarded and logged only,
// never persisted or replied to.
type StatusUpdate struct {
	ID          string
	Status      string
	Timestamp   int64
	RecipientID string
}
