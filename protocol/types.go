// Package protocol defines the request/response types exchanged with MCP
// servers and the handler that owns the wire shape. Swapping envelope
// versions means replacing only this package.
package protocol

// RequestType identifies the operation family of a request.
type RequestType string

// Well-known request types. The validator accepts any non-empty type so
// that new operation families can be routed without a protocol change.
const (
	RequestTypeTextGeneration  RequestType = "text_generation"
	RequestTypeChat            RequestType = "chat"
	RequestTypeEmbedding       RequestType = "embedding"
	RequestTypeImageGeneration RequestType = "image_generation"
	RequestTypeAction          RequestType = "action"
)

// Status is the outcome reported by a server for one request.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Request is the unit of work handed to the client. It is treated as
// immutable once submitted; security sanitization operates on a Clone.
type Request struct {
	Type                 RequestType       `json:"type"`
	Content              map[string]any    `json:"content"`
	RequiredCapabilities []string          `json:"required_capabilities"`
	PreferredServerID    string            `json:"preferred_server_id,omitempty"`
	Headers              map[string]string `json:"headers,omitempty"`
}

// Clone returns a deep-enough copy of the request: the top-level content
// map, capability slice and header map are copied so a sanitizer can
// rewrite them without touching the caller's request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := &Request{
		Type:              r.Type,
		PreferredServerID: r.PreferredServerID,
	}
	if r.Content != nil {
		out.Content = make(map[string]any, len(r.Content))
		for k, v := range r.Content {
			out.Content[k] = v
		}
	}
	if r.RequiredCapabilities != nil {
		out.RequiredCapabilities = append([]string(nil), r.RequiredCapabilities...)
	}
	if r.Headers != nil {
		out.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			out.Headers[k] = v
		}
	}
	return out
}

// Response is produced only by Handler.ParseResponse. The client stamps
// RequestID and ServerID after parsing; nothing else mutates it.
type Response struct {
	Status    Status         `json:"status"`
	Content   map[string]any `json:"content"`
	RequestID string         `json:"request_id"`
	ServerID  string         `json:"server_id"`
}

// IsError reports whether the server answered with an error status.
func (r *Response) IsError() bool {
	return r.Status == StatusError
}
