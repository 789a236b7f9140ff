package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mcpgate/mcpgate/discovery"
	"github.com/mcpgate/mcpgate/logx"
)

// Facade maps each server to its concrete transport, created lazily on
// first use and cached by server id. It is safe for concurrent use; the
// lock guarantees a single create-on-miss per server.
type Facade struct {
	opts   Options
	logger logx.Logger

	mu     sync.RWMutex
	byID   map[string]Transport
	closed bool
}

// NewFacade creates a facade that hands the given default policy to every
// transport it constructs.
func NewFacade(opts Options) *Facade {
	opts = opts.normalized()
	return &Facade{
		opts:   opts,
		logger: opts.Logger,
		byID:   make(map[string]Transport),
	}
}

// SendRequest routes the payload through the server's transport.
func (f *Facade) SendRequest(ctx context.Context, server *discovery.ServerInfo, payload []byte) ([]byte, error) {
	t, err := f.transportFor(server)
	if err != nil {
		return nil, err
	}
	return t.SendRequest(ctx, server, payload)
}

// transportFor returns the cached transport for the server, creating it
// under the lock on first use.
func (f *Facade) transportFor(server *discovery.ServerInfo) (Transport, error) {
	kind := Kind(server.TransportKind)
	if kind == "" {
		kind = KindHTTP
	}

	// Fast path: concurrent lookups share the read lock.
	f.mu.RLock()
	t, ok := f.byID[server.ID]
	closed := f.closed
	f.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("transport facade is closed")
	}
	if ok {
		return t, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, fmt.Errorf("transport facade is closed")
	}
	// Re-check under the write lock so a racing miss creates only once.
	if t, ok := f.byID[server.ID]; ok {
		return t, nil
	}
	t, err := New(kind, f.opts)
	if err != nil {
		return nil, fmt.Errorf("create transport for server %s: %w", server.ID, err)
	}
	f.byID[server.ID] = t
	f.logger.Debug("transport created", "server_id", server.ID, "kind", string(kind))
	return t, nil
}

// Close tears down every cached transport. One failing transport does not
// stop the others; the errors are joined. Idempotent.
func (f *Facade) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	cached := f.byID
	f.byID = nil
	f.mu.Unlock()

	var errs []error
	for id, t := range cached {
		if err := t.Close(); err != nil {
			f.logger.Warn("transport close failed", "server_id", id, "error", err)
			errs = append(errs, fmt.Errorf("server %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
