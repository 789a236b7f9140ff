package protocol

import "encoding/json"

// EnvelopeVersion is the wire envelope version this handler speaks.
const EnvelopeVersion = "1.0"

// Envelope is the transport-agnostic wire frame for one request or response.
type Envelope struct {
	Version string            `json:"version"`
	Type    string            `json:"type"`
	Payload json.RawMessage   `json:"payload,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Error   *ErrorPayload     `json:"error,omitempty"`
}

// ErrorPayload carries a server-reported error inside a response envelope.
type ErrorPayload struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// responseBody is the payload of a response envelope.
type responseBody struct {
	Status  Status         `json:"status"`
	Content map[string]any `json:"content,omitempty"`
}
