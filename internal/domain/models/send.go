package models

// SendTextRequest is the body of POST /whatsapp/send. Recipients may be
// separated by commas or newlines.
type SendTextRequest struct {
	To      string `json:"to" binding:"required"`
	Message string `json:"message" binding:"required"`
	UseAI   bool   `json:"use_ai"`
	Backend string `json:"backend"`
	Model   string `json:"model"`
}

// SendTemplateRequest is the body of POST /whatsapp/send/template.
type SendTemplateRequest struct {
	To           string   `json:"to" binding:"required"`
	TemplateName string   `json:"template_name" binding:"required"`
	Language     string   `json:"language"`
	Parameters   []string `json:"parameters"`
}

// SendMediaRequest is the body of POST /whatsapp/send/media.
type SendMediaRequest struct {
	To        string `json:"to" binding:"required"`
	MediaURL  string `json:"media_url" binding:"required"`
	MediaType string `json:"media_type" binding:"required"`
	Caption   string `json:"caption"`
}

// RecipientResult reports one recipient's outcome with a masked number.
type RecipientResult struct {
	To        string `json:"to"`
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BatchResult aggregates per-recipient outcomes for one send call.
type BatchResult struct {
	BatchID  string            `json:"batch_id"`
	Sent     int               `json:"sent"`
	Failed   int               `json:"failed"`
	Rejected []string          `json:"rejected_numbers,omitempty"`
	Results  []RecipientResult `json:"results"`
}

// Succeeded reports whether every accepted recipient was delivered to.
func (b BatchResult) Succeeded() bool {
	return b.Failed == 0 && b.Sent > 0
}
