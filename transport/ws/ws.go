// Package ws implements the WebSocket transport kind on top of gobwas/ws.
// One connection per server endpoint, dialed lazily and redialed after a
// failure so the retry policy can recover from dropped connections.
package ws

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/mcpgate/mcpgate/discovery"
	"github.com/mcpgate/mcpgate/transport"
)

func init() {
	transport.Register(transport.KindWS, func(opts transport.Options) (transport.Transport, error) {
		return NewTransport(opts)
	})
}

// Transport exchanges one text frame per request and expects one text
// frame back. Requests are serialized per connection; concurrency comes
// from the per-server transport cache above this layer.
type Transport struct {
	opts transport.Options

	mu     sync.Mutex
	conns  map[string]net.Conn // endpoint -> connection
	closed bool
}

// NewTransport creates a WebSocket transport with the given default policy.
func NewTransport(opts transport.Options) (*Transport, error) {
	return &Transport{
		opts:  opts,
		conns: make(map[string]net.Conn),
	}, nil
}

// Kind implements transport.Transport.
func (t *Transport) Kind() transport.Kind { return transport.KindWS }

// SendRequest implements transport.Transport.
func (t *Transport) SendRequest(ctx context.Context, server *discovery.ServerInfo, payload []byte) ([]byte, error) {
	return transport.DoWithRetry(ctx, t.Kind(), server, t.opts, func(attemptCtx context.Context) ([]byte, error) {
		return t.exchange(attemptCtx, server.Endpoint, payload)
	})
}

// exchange performs one write/read round trip, dialing if needed.
func (t *Transport) exchange(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, fmt.Errorf("websocket transport is closed")
	}

	conn, err := t.connLocked(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
		defer conn.SetDeadline(noDeadline)
	}

	if err := wsutil.WriteClientText(conn, payload); err != nil {
		t.dropLocked(endpoint)
		return nil, fmt.Errorf("write frame: %w", err)
	}
	raw, err := wsutil.ReadServerText(conn)
	if err != nil {
		t.dropLocked(endpoint)
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return raw, nil
}

func (t *Transport) connLocked(ctx context.Context, endpoint string) (net.Conn, error) {
	if conn, ok := t.conns[endpoint]; ok {
		return conn, nil
	}
	dialer := ws.Dialer{}
	if tlsCfg, err := t.opts.TLSConfig(); err != nil {
		return nil, err
	} else if tlsCfg != nil {
		dialer.TLSConfig = tlsCfg
	}
	conn, _, _, err := dialer.Dial(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	t.conns[endpoint] = conn
	return conn, nil
}

// dropLocked discards a broken connection so the next attempt redials.
func (t *Transport) dropLocked(endpoint string) {
	if conn, ok := t.conns[endpoint]; ok {
		conn.Close()
		delete(t.conns, endpoint)
	}
}

// Close implements transport.Transport.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	var firstErr error
	for endpoint, conn := range t.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", endpoint, err)
		}
	}
	t.conns = nil
	return firstErr
}

var noDeadline = time.Time{}

var _ transport.Transport = (*Transport)(nil)
