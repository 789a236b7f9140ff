package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest(t *testing.T) {
	h := NewHandler()

	// Valid request passes
	req := &Request{
		Type:                 RequestTypeChat,
		Content:              map[string]any{"messages": []any{}},
		RequiredCapabilities: []string{"chat"},
	}
	assert.NoError(t, h.ValidateRequest(req))

	// Nil request
	assert.ErrorIs(t, h.ValidateRequest(nil), ErrMissingRequestType)

	// Missing type
	err := h.ValidateRequest(&Request{RequiredCapabilities: []string{"chat"}})
	assert.ErrorIs(t, err, ErrMissingRequestType)

	// Empty capabilities rejected by default
	err = h.ValidateRequest(&Request{Type: RequestTypeChat})
	assert.ErrorIs(t, err, ErrMissingCapabilities)

	// ...but accepted when the handler does not require them
	lenient := NewHandler(WithRequiredCapabilities(false))
	assert.NoError(t, lenient.ValidateRequest(&Request{Type: RequestTypeChat}))
}

func TestValidateRequestPayloadCeiling(t *testing.T) {
	h := NewHandler(WithMaxPayloadBytes(64))

	small := &Request{
		Type:                 RequestTypeTextGeneration,
		Content:              map[string]any{"prompt": "hi"},
		RequiredCapabilities: []string{"text_generation"},
	}
	assert.NoError(t, h.ValidateRequest(small))

	big := &Request{
		Type:                 RequestTypeTextGeneration,
		Content:              map[string]any{"prompt": strings.Repeat("x", 200)},
		RequiredCapabilities: []string{"text_generation"},
	}
	assert.ErrorIs(t, h.ValidateRequest(big), ErrPayloadTooLarge)
}

func TestFormatParseRoundTrip(t *testing.T) {
	h := NewHandler()

	req := &Request{
		Type:                 RequestTypeChat,
		Content:              map[string]any{"messages": []any{map[string]any{"role": "user", "content": "hello"}}},
		RequiredCapabilities: []string{"chat"},
		Headers:              map[string]string{"X-Tenant": "t1"},
	}
	payload, err := h.FormatRequest(req)
	require.NoError(t, err)

	// A well-behaved server echoes a success response envelope.
	wire, err := FormatResponse(&Response{
		Status:  StatusSuccess,
		Content: map[string]any{"reply": "hi"},
	})
	require.NoError(t, err)

	resp, err := h.ParseResponse(wire)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, "hi", resp.Content["reply"])
	assert.NotEmpty(t, payload)
}

func TestParseResponseErrors(t *testing.T) {
	h := NewHandler()

	// Empty body
	_, err := h.ParseResponse(nil)
	assert.ErrorIs(t, err, ErrMalformedResponse)

	// Not JSON
	_, err = h.ParseResponse([]byte("not json"))
	assert.ErrorIs(t, err, ErrMalformedResponse)

	// Wrong envelope version
	_, err = h.ParseResponse([]byte(`{"version":"9.9","type":"response"}`))
	assert.ErrorIs(t, err, ErrUnsupportedEnvelope)

	// Unknown status
	_, err = h.ParseResponse([]byte(`{"version":"1.0","type":"response","payload":{"status":"sideways"}}`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseServerErrorEnvelope(t *testing.T) {
	h := NewHandler()

	wire, err := FormatErrorResponse(503, "model overloaded", map[string]any{"retry_after": "1s"})
	require.NoError(t, err)

	resp, err := h.ParseResponse(wire)
	require.NoError(t, err)
	assert.True(t, resp.IsError())
	assert.Equal(t, "model overloaded", resp.Content["message"])
	assert.Equal(t, "1s", resp.Content["retry_after"])
}

func TestRequestClone(t *testing.T) {
	req := &Request{
		Type:                 RequestTypeAction,
		Content:              map[string]any{"action": "deploy"},
		RequiredCapabilities: []string{"action"},
		Headers:              map[string]string{"Authorization": "Bearer x"},
	}
	clone := req.Clone()
	clone.Content["action"] = "rollback"
	clone.Headers["Authorization"] = "Bearer y"
	clone.RequiredCapabilities[0] = "other"

	assert.Equal(t, "deploy", req.Content["action"])
	assert.Equal(t, "Bearer x", req.Headers["Authorization"])
	assert.Equal(t, "action", req.RequiredCapabilities[0])
}
