package models

// OutboundKind selects the provider payload shape for an outbound message.
type OutboundKind string

const (
	OutboundKindText     OutboundKind = "text"
	OutboundKindMedia    OutboundKind = "media"
	OutboundKindTemplate OutboundKind = "template"
)

// OutboundRequest describes one message to one recipient. Immutable once
// built; one DeliveryResult is produced per request.
type OutboundRequest struct {
	To       string
	Kind     OutboundKind
	Body     string
	Media    *OutboundMedia
	Template *OutboundTemplate
}

// OutboundMedia describes a media payload sent by URL.
type OutboundMedia struct {
	URL     string
	Type    string // image, video, audio, document
	Caption string
}

// OutboundTemplate describes an approved template send.
type OutboundTemplate struct {
	Name       string
	Language   string
	Parameters []string
}

// DeliveryResult is the terminal outcome of one send attempt chain. Never
// retried after being finalized.
type DeliveryResult struct {
	Success           bool
	ProviderMessageID string
	ErrorCode         string
	ErrorMessage      string
	HTTPStatus        int
}
