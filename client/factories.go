package client

import (
	"github.com/mcpgate/mcpgate/protocol"
)

// RequestOption customizes a request built by a convenience factory.
type RequestOption func(*protocol.Request)

// WithPreferredServer hints which server should handle the request.
// Discovery falls back to another eligible server if the hint is
// unhealthy or lacks the required capabilities.
func WithPreferredServer(serverID string) RequestOption {
	return func(r *protocol.Request) { r.PreferredServerID = serverID }
}

// WithHeader attaches transport-level metadata to the request.
func WithHeader(key, value string) RequestOption {
	return func(r *protocol.Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}
		r.Headers[key] = value
	}
}

// WithContentField sets an extra content field, e.g. model or temperature.
func WithContentField(key string, value any) RequestOption {
	return func(r *protocol.Request) {
		if r.Content == nil {
			r.Content = make(map[string]any)
		}
		r.Content[key] = value
	}
}

// WithExtraCapabilities adds capabilities beyond the factory's default.
func WithExtraCapabilities(capabilities ...string) RequestOption {
	return func(r *protocol.Request) {
		r.RequiredCapabilities = append(r.RequiredCapabilities, capabilities...)
	}
}

// newRequest is the shared factory core. Factories are pure: no I/O, no
// client state.
func newRequest(reqType protocol.RequestType, capability string, content map[string]any, opts []RequestOption) *protocol.Request {
	req := &protocol.Request{
		Type:                 reqType,
		Content:              content,
		RequiredCapabilities: []string{capability},
	}
	for _, opt := range opts {
		opt(req)
	}
	return req
}

// NewTextGenerationRequest builds a text generation request.
func NewTextGenerationRequest(prompt string, opts ...RequestOption) *protocol.Request {
	return newRequest(protocol.RequestTypeTextGeneration, "text_generation",
		map[string]any{"prompt": prompt}, opts)
}

// ChatMessage is one turn in a chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewChatRequest builds a chat request from an ordered message list.
func NewChatRequest(messages []ChatMessage, opts ...RequestOption) *protocol.Request {
	encoded := make([]any, len(messages))
	for i, m := range messages {
		encoded[i] = map[string]any{"role": m.Role, "content": m.Content}
	}
	return newRequest(protocol.RequestTypeChat, "chat",
		map[string]any{"messages": encoded}, opts)
}

// NewEmbeddingRequest builds an embedding request over the input texts.
func NewEmbeddingRequest(input []string, opts ...RequestOption) *protocol.Request {
	texts := make([]any, len(input))
	for i, s := range input {
		texts[i] = s
	}
	return newRequest(protocol.RequestTypeEmbedding, "embedding",
		map[string]any{"input": texts}, opts)
}

// NewImageGenerationRequest builds an image generation request.
func NewImageGenerationRequest(prompt string, opts ...RequestOption) *protocol.Request {
	return newRequest(protocol.RequestTypeImageGeneration, "image_generation",
		map[string]any{"prompt": prompt}, opts)
}

// NewActionRequest builds a generic action request.
func NewActionRequest(action string, params map[string]any, opts ...RequestOption) *protocol.Request {
	content := map[string]any{"action": action}
	if params != nil {
		content["params"] = params
	}
	return newRequest(protocol.RequestTypeAction, "action", content, opts)
}
