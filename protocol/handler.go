package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Validation and parse failures returned by the Handler. Callers classify
// them with errors.Is.
var (
	ErrMissingRequestType  = errors.New("request type is required")
	ErrMissingCapabilities = errors.New("required capabilities must not be empty")
	ErrPayloadTooLarge     = errors.New("request payload exceeds size limit")
	ErrMalformedResponse   = errors.New("response does not match expected wire shape")
	ErrUnsupportedEnvelope = errors.New("unsupported envelope version")
)

// DefaultMaxPayloadBytes bounds the serialized request content size.
const DefaultMaxPayloadBytes = 4 << 20

// Handler validates requests, formats them into wire payloads and parses
// raw transport responses. It is the single component that knows the
// envelope shape.
type Handler struct {
	maxPayloadBytes     int
	requireCapabilities bool
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithMaxPayloadBytes overrides the payload size ceiling.
func WithMaxPayloadBytes(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxPayloadBytes = n
		}
	}
}

// WithRequiredCapabilities controls whether ValidateRequest rejects
// requests with an empty capability set. Enabled by default.
func WithRequiredCapabilities(required bool) HandlerOption {
	return func(h *Handler) {
		h.requireCapabilities = required
	}
}

// NewHandler creates a Handler with the default policy.
func NewHandler(opts ...HandlerOption) *Handler {
	h := &Handler{
		maxPayloadBytes:     DefaultMaxPayloadBytes,
		requireCapabilities: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ValidateRequest checks the structural shape of a request before any
// sanitization or routing happens.
func (h *Handler) ValidateRequest(req *Request) error {
	if req == nil {
		return fmt.Errorf("%w: request is nil", ErrMissingRequestType)
	}
	if req.Type == "" {
		return ErrMissingRequestType
	}
	if h.requireCapabilities && len(req.RequiredCapabilities) == 0 {
		return ErrMissingCapabilities
	}
	if req.Content != nil {
		encoded, err := json.Marshal(req.Content)
		if err != nil {
			return fmt.Errorf("request content is not serializable: %w", err)
		}
		if len(encoded) > h.maxPayloadBytes {
			return fmt.Errorf("%w: %d bytes > %d", ErrPayloadTooLarge, len(encoded), h.maxPayloadBytes)
		}
	}
	return nil
}

// FormatRequest turns a validated request into its wire payload.
func (h *Handler) FormatRequest(req *Request) ([]byte, error) {
	payload, err := json.Marshal(req.Content)
	if err != nil {
		return nil, fmt.Errorf("marshal request content: %w", err)
	}
	env := Envelope{
		Version: EnvelopeVersion,
		Type:    string(req.Type),
		Payload: payload,
		Headers: req.Headers,
	}
	data, err := json.Marshal(&env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// ParseResponse parses a raw transport response into a typed Response.
// The caller stamps RequestID and ServerID afterwards.
func (h *Handler) ParseResponse(raw []byte) (*Response, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Version != "" && env.Version != EnvelopeVersion {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEnvelope, env.Version)
	}

	// Server-reported errors still produce a Response so the caller can see
	// the error content; the status distinguishes them.
	if env.Error != nil {
		content := map[string]any{
			"code":    env.Error.Code,
			"message": env.Error.Message,
		}
		for k, v := range env.Error.Data {
			content[k] = v
		}
		return &Response{Status: StatusError, Content: content}, nil
	}

	var body responseBody
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &body); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	status := body.Status
	if status == "" {
		status = StatusSuccess
	}
	if status != StatusSuccess && status != StatusError {
		return nil, fmt.Errorf("%w: unknown status %q", ErrMalformedResponse, status)
	}
	return &Response{Status: status, Content: body.Content}, nil
}

// FormatResponse builds a wire response envelope. Servers and in-memory
// test doubles use it so both ends share one codec.
func FormatResponse(resp *Response) ([]byte, error) {
	body := responseBody{Status: resp.Status, Content: resp.Content}
	payload, err := json.Marshal(&body)
	if err != nil {
		return nil, fmt.Errorf("marshal response body: %w", err)
	}
	env := Envelope{Version: EnvelopeVersion, Type: "response", Payload: payload}
	return json.Marshal(&env)
}

// FormatErrorResponse builds a wire envelope carrying a server error.
func FormatErrorResponse(code int, message string, data map[string]any) ([]byte, error) {
	env := Envelope{
		Version: EnvelopeVersion,
		Type:    "response",
		Error:   &ErrorPayload{Code: code, Message: message, Data: data},
	}
	return json.Marshal(&env)
}
