// Package inmemory implements an in-process transport kind. It hands
// payloads straight to a registered handler function, which makes it the
// natural choice for embedding a server in the same process and for
// exercising the full pipeline in tests without sockets.
package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcpgate/mcpgate/discovery"
	"github.com/mcpgate/mcpgate/transport"
)

func init() {
	transport.Register(transport.KindInMemory, func(opts transport.Options) (transport.Transport, error) {
		return NewTransport(opts), nil
	})
}

// Handler services one raw payload for one server.
type Handler func(ctx context.Context, serverID string, payload []byte) ([]byte, error)

var (
	handlersMu sync.RWMutex
	handlers   = make(map[string]Handler) // server id -> handler
)

// RegisterHandler binds a handler to a server id. Subsequent registrations
// replace the old handler.
func RegisterHandler(serverID string, h Handler) {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	handlers[serverID] = h
}

// UnregisterHandler removes a server's handler.
func UnregisterHandler(serverID string) {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	delete(handlers, serverID)
}

// Transport dispatches payloads to in-process handlers.
type Transport struct {
	opts transport.Options
}

// NewTransport creates an in-memory transport.
func NewTransport(opts transport.Options) *Transport {
	return &Transport{opts: opts}
}

// Kind implements transport.Transport.
func (t *Transport) Kind() transport.Kind { return transport.KindInMemory }

// SendRequest implements transport.Transport. Handler errors go through
// the same retry classification as network failures.
func (t *Transport) SendRequest(ctx context.Context, server *discovery.ServerInfo, payload []byte) ([]byte, error) {
	return transport.DoWithRetry(ctx, t.Kind(), server, t.opts, func(attemptCtx context.Context) ([]byte, error) {
		handlersMu.RLock()
		h, ok := handlers[server.ID]
		handlersMu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("no in-memory handler for server %s", server.ID)
		}
		return h(attemptCtx, server.ID, payload)
	})
}

// Close implements transport.Transport.
func (t *Transport) Close() error { return nil }

var _ transport.Transport = (*Transport)(nil)
