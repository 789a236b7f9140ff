package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpgate/mcpgate/hooks"
	"github.com/mcpgate/mcpgate/transport/inmemory"
)

func TestSendRequestSync(t *testing.T) {
	inmemory.RegisterHandler("srv", echoHandler(t, "srv"))
	defer inmemory.UnregisterHandler("srv")

	c := newTestClient(t, WithStaticServers(inmemServer("srv", "chat")))

	resp, err := c.SendRequestSync(context.Background(),
		NewChatRequest([]ChatMessage{{Role: "user", Content: "hi"}}))
	require.NoError(t, err)
	assert.Equal(t, "srv", resp.ServerID)
	assert.NotEmpty(t, resp.RequestID)
}

func TestSyncAPIRejectsReentrantCalls(t *testing.T) {
	inmemory.RegisterHandler("srv", echoHandler(t, "srv"))
	defer inmemory.UnregisterHandler("srv")

	// A plugin that calls back into the synchronous API from inside the
	// pipeline must fail fast instead of deadlocking the worker pool.
	var c *Client
	var reentrantErr error
	p := &orderPlugin{name: "reentrant", inner: func(h hooks.HookType, hctx *hooks.Context) error {
		if h == hooks.PreRequest {
			_, reentrantErr = c.SendRequestSync(hctx.Ctx,
				NewChatRequest([]ChatMessage{{Role: "user", Content: "nested"}}))
		}
		return nil
	}}
	c = newTestClient(t,
		WithStaticServers(inmemServer("srv", "chat")),
		WithPlugins(p),
		WithSyncWorkers(1),
	)

	// The outer request itself still succeeds.
	_, err := c.SendRequestSync(context.Background(),
		NewChatRequest([]ChatMessage{{Role: "user", Content: "hi"}}))
	require.NoError(t, err)

	require.Error(t, reentrantErr)
	assert.ErrorIs(t, reentrantErr, ErrReentrantCall)
	assert.True(t, IsClientError(reentrantErr))
}

func TestRegisterServerSyncReentrancy(t *testing.T) {
	c := newTestClient(t)

	err := c.RegisterServerSync(markPipeline(context.Background()),
		inmemServer("x", "chat"), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReentrantCall)

	require.NoError(t,
		c.RegisterServerSync(context.Background(), inmemServer("x", "chat"), true))
	assert.Len(t, c.GetServers(), 1)
}

func TestSyncWorkerPoolBoundsConcurrency(t *testing.T) {
	release := make(chan struct{})
	inmemory.RegisterHandler("slow", func(ctx context.Context, _ string, _ []byte) ([]byte, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return echoHandler(t, "slow")(ctx, "slow", nil)
	})
	defer inmemory.UnregisterHandler("slow")

	c := newTestClient(t,
		WithStaticServers(inmemServer("slow", "chat")),
		WithSyncWorkers(1),
	)

	// Occupy the single worker.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.SendRequestSync(context.Background(),
			NewChatRequest([]ChatMessage{{Role: "user", Content: "first"}}))
		assert.NoError(t, err)
	}()

	// Wait until the worker slot is actually taken.
	require.Eventually(t, func() bool {
		return len(c.syncSem) == 1
	}, time.Second, 5*time.Millisecond)

	// A second caller waiting for a worker honors context cancellation.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.SendRequestSync(ctx,
		NewChatRequest([]ChatMessage{{Role: "user", Content: "second"}}))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	wg.Wait()
}
