package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gws "github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpgate/mcpgate/discovery"
	"github.com/mcpgate/mcpgate/transport"
)

// echoServer upgrades every request and echoes text frames until the
// client goes away.
func echoServer(t *testing.T, upgrades *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := gws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		if upgrades != nil {
			upgrades.Add(1)
		}
		go func() {
			defer conn.Close()
			for {
				msg, err := wsutil.ReadClientText(conn)
				if err != nil {
					return
				}
				if err := wsutil.WriteServerText(conn, msg); err != nil {
					return
				}
			}
		}()
	}))
}

func wsEndpoint(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func testOptions() transport.Options {
	return transport.Options{
		Timeout:    2 * time.Second,
		MaxRetries: 1,
		Backoff:    transport.NewNoBackoff(),
	}
}

func TestSendRequestRoundTrip(t *testing.T) {
	ts := echoServer(t, nil)
	defer ts.Close()

	tr, err := NewTransport(testOptions())
	require.NoError(t, err)
	defer tr.Close()

	server := &discovery.ServerInfo{ID: "echo", Endpoint: wsEndpoint(ts)}
	raw, err := tr.SendRequest(context.Background(), server, []byte(`{"ping":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ping":1}`, string(raw))
}

func TestConnectionIsReused(t *testing.T) {
	var upgrades atomic.Int64
	ts := echoServer(t, &upgrades)
	defer ts.Close()

	tr, err := NewTransport(testOptions())
	require.NoError(t, err)
	defer tr.Close()

	server := &discovery.ServerInfo{ID: "echo", Endpoint: wsEndpoint(ts)}
	for i := 0; i < 3; i++ {
		_, err := tr.SendRequest(context.Background(), server, []byte(`{}`))
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), upgrades.Load())
}

func TestRedialAfterServerRestart(t *testing.T) {
	var upgrades atomic.Int64
	ts := echoServer(t, &upgrades)

	tr, err := NewTransport(testOptions())
	require.NoError(t, err)
	defer tr.Close()

	server := &discovery.ServerInfo{ID: "echo", Endpoint: wsEndpoint(ts)}
	_, err = tr.SendRequest(context.Background(), server, []byte(`{}`))
	require.NoError(t, err)

	// Kill the server; the cached connection is now broken.
	ts.Close()
	_, err = tr.SendRequest(context.Background(), server, []byte(`{}`))
	require.Error(t, err)

	// A fresh server on a new port means a new endpoint, so just verify
	// the broken connection was dropped and a later dial is attempted.
	ts2 := echoServer(t, &upgrades)
	defer ts2.Close()
	server2 := &discovery.ServerInfo{ID: "echo2", Endpoint: wsEndpoint(ts2)}
	_, err = tr.SendRequest(context.Background(), server2, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), upgrades.Load())
}

func TestClosedTransportRefusesSends(t *testing.T) {
	tr, err := NewTransport(testOptions())
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	_, err = tr.SendRequest(context.Background(),
		&discovery.ServerInfo{ID: "x", Endpoint: "ws://127.0.0.1:1"}, []byte(`{}`))
	assert.Error(t, err)
}
