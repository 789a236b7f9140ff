// Package httpx implements the HTTP(S) transport kind. It speaks plain
// request/response over a pooled http.Client, with optional TLS and
// per-request signing.
package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mcpgate/mcpgate/discovery"
	"github.com/mcpgate/mcpgate/transport"
)

func init() {
	transport.Register(transport.KindHTTP, func(opts transport.Options) (transport.Transport, error) {
		return NewTransport(opts)
	})
}

// Transport sends envelopes as HTTP POST bodies.
type Transport struct {
	opts   transport.Options
	client *http.Client
}

// NewTransport creates an HTTP transport with the given default policy.
func NewTransport(opts transport.Options) (*Transport, error) {
	client := opts.HTTPClient
	if client == nil {
		tlsCfg, err := opts.TLSConfig()
		if err != nil {
			return nil, err
		}
		client = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig:     tlsCfg,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Transport{opts: opts, client: client}, nil
}

// Kind implements transport.Transport.
func (t *Transport) Kind() transport.Kind { return transport.KindHTTP }

// SendRequest implements transport.Transport. Connection errors, timeouts
// and 5xx responses are retried per the transport's policy before the
// failure is surfaced.
func (t *Transport) SendRequest(ctx context.Context, server *discovery.ServerInfo, payload []byte) ([]byte, error) {
	return transport.DoWithRetry(ctx, t.Kind(), server, t.opts, func(attemptCtx context.Context) ([]byte, error) {
		return t.post(attemptCtx, server, payload)
	})
}

// post performs one attempt.
func (t *Transport) post(ctx context.Context, server *discovery.ServerInfo, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.opts.Headers {
		req.Header.Set(k, v)
	}
	if t.opts.AuthProvider != nil {
		for k, v := range t.opts.AuthProvider.GetAuthHeaders() {
			req.Header.Set(k, v)
		}
	}
	if t.opts.Signer != nil {
		sig, err := t.opts.Signer.Sign(payload)
		if err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
		req.Header.Set("X-Request-Signature", sig)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused before the retry.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &transport.StatusError{Code: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// Close implements transport.Transport.
func (t *Transport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

var _ transport.Transport = (*Transport)(nil)
