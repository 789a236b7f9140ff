package client

import (
	"context"

	"github.com/mcpgate/mcpgate/discovery"
	"github.com/mcpgate/mcpgate/protocol"
)

// pipelineMarkerKey marks contexts that originate inside the request
// pipeline. The synchronous entry points refuse such contexts: blocking
// on the pipeline from within the pipeline (e.g. from a plugin hook)
// would deadlock, so it fails fast instead.
type pipelineMarkerKey struct{}

func markPipeline(ctx context.Context) context.Context {
	return context.WithValue(ctx, pipelineMarkerKey{}, true)
}

func inPipeline(ctx context.Context) bool {
	marked, _ := ctx.Value(pipelineMarkerKey{}).(bool)
	return marked
}

// SendRequestSync is the blocking wrapper around SendRequest for callers
// outside any cooperative context. It runs the request on the bounded
// sync worker pool and returns exactly what the asynchronous path would.
// Invoking it from inside the pipeline fails with a CLIENT_ERROR.
func (c *Client) SendRequestSync(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if inPipeline(ctx) {
		return nil, NewError(ErrCodeClient, "reentrant call", nil, ErrReentrantCall)
	}

	release, err := c.acquireWorker(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	type result struct {
		resp *protocol.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := c.SendRequest(ctx, req)
		done <- result{resp: resp, err: err}
	}()
	r := <-done
	return r.resp, r.err
}

// RegisterServerSync is the blocking wrapper around RegisterServer, with
// the same reentrancy guard as SendRequestSync.
func (c *Client) RegisterServerSync(ctx context.Context, info *discovery.ServerInfo, skipHealthCheck bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if inPipeline(ctx) {
		return NewError(ErrCodeClient, "reentrant call", nil, ErrReentrantCall)
	}

	release, err := c.acquireWorker(ctx)
	if err != nil {
		return err
	}
	defer release()

	return c.RegisterServer(info, skipHealthCheck)
}

// acquireWorker claims a slot on the sync worker pool, honoring context
// cancellation while waiting.
func (c *Client) acquireWorker(ctx context.Context) (func(), error) {
	select {
	case c.syncSem <- struct{}{}:
		return func() { <-c.syncSem }, nil
	case <-ctx.Done():
		return nil, NewError(ErrCodeClient, "waiting for sync worker", nil, ctx.Err())
	}
}
