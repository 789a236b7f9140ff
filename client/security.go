package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/mcpgate/mcpgate/protocol"
)

// SecurityPolicy configures the outbound sanitization applied to every
// request before it leaves the process.
type SecurityPolicy struct {
	// MaxPayloadBytes is the ceiling on serialized content size.
	MaxPayloadBytes int
	// DisallowedHeaders are stripped from the request, case-insensitively.
	DisallowedHeaders []string
	// StripControlChars removes non-printable control characters from all
	// string values in the content.
	StripControlChars bool
	// TokenValidator, when set, validates bearer tokens found in the
	// request's Authorization header before they are sent.
	TokenValidator *JWKSValidator
}

// DefaultSecurityPolicy returns the policy applied when none is
// configured.
func DefaultSecurityPolicy() *SecurityPolicy {
	return &SecurityPolicy{
		MaxPayloadBytes:   protocol.DefaultMaxPayloadBytes,
		DisallowedHeaders: []string{"cookie", "x-forwarded-for"},
		StripControlChars: true,
	}
}

// SecurityMiddleware produces sanitized request copies. The caller's
// request is never mutated.
type SecurityMiddleware struct {
	policy     *SecurityPolicy
	disallowed map[string]bool
}

// NewSecurityMiddleware creates a middleware for the given policy.
func NewSecurityMiddleware(policy *SecurityPolicy) *SecurityMiddleware {
	if policy == nil {
		policy = DefaultSecurityPolicy()
	}
	disallowed := make(map[string]bool, len(policy.DisallowedHeaders))
	for _, h := range policy.DisallowedHeaders {
		disallowed[strings.ToLower(h)] = true
	}
	return &SecurityMiddleware{policy: policy, disallowed: disallowed}
}

// ValidateRequest returns a sanitized copy of the request, or an error
// when the policy rejects it outright.
func (m *SecurityMiddleware) ValidateRequest(ctx context.Context, req *protocol.Request) (*protocol.Request, error) {
	sanitized := req.Clone()

	for k := range sanitized.Headers {
		if m.disallowed[strings.ToLower(k)] {
			delete(sanitized.Headers, k)
		}
	}

	if m.policy.StripControlChars && sanitized.Content != nil {
		sanitized.Content = sanitizeMap(sanitized.Content)
	}

	if m.policy.MaxPayloadBytes > 0 && sanitized.Content != nil {
		encoded, err := json.Marshal(sanitized.Content)
		if err != nil {
			return nil, fmt.Errorf("content is not serializable: %w", err)
		}
		if len(encoded) > m.policy.MaxPayloadBytes {
			return nil, fmt.Errorf("payload of %d bytes exceeds security ceiling of %d",
				len(encoded), m.policy.MaxPayloadBytes)
		}
	}

	if m.policy.TokenValidator != nil {
		if token := bearerToken(sanitized.Headers); token != "" {
			if err := m.policy.TokenValidator.ValidateToken(ctx, token); err != nil {
				return nil, fmt.Errorf("authorization token rejected: %w", err)
			}
		}
	}

	return sanitized, nil
}

// bearerToken extracts the token from an Authorization header, if any.
func bearerToken(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "authorization") {
			if after, ok := strings.CutPrefix(v, "Bearer "); ok {
				return after
			}
		}
	}
	return ""
}

// sanitizeMap strips control characters from every string reachable in
// the content tree. Nested maps and slices are rebuilt; other values pass
// through unchanged.
func sanitizeMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return stripControl(val)
	case map[string]any:
		return sanitizeMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return v
	}
}

// stripControl removes control characters except whitespace that carries
// meaning in text content (newline, carriage return, tab).
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
