package opencode

import "encoding/json"

// Payloads are kept raw: the opencode server has changed shape between
// releases and callers pick the fields they understand.
type (
	SessionPayload     = json.RawMessage
	MessagePayload     = json.RawMessage
	MessageListPayload = json.RawMessage
	SessionListPayload = json.RawMessage
	AppInfoPayload     = json.RawMessage
)

// TextPart is the only part type this client sends
type TextPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ChatRequest represents the request body for POST /session/{id}/message
type ChatRequest struct {
	ProviderID string     `json:"providerID"`
	ModelID    string     `json:"modelID"`
	Parts      []TextPart `json:"parts"`
}

// sendConfig carries per-call overrides for SendMessage
type sendConfig struct {
	providerID string
	modelID    string
}

// SendOption overrides the provider or model for one SendMessage call
type SendOption func(*sendConfig)

// WithProvider sets the providerID sent with the message
func WithProvider(id string) SendOption {
	return func(c *sendConfig) { c.providerID = id }
}

// WithModel sets the modelID sent with the message
func WithModel(id string) SendOption {
	return func(c *sendConfig) { c.modelID = id }
}
