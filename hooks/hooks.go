// Package hooks defines the plugin extension points of the request
// lifecycle and the manager that dispatches them. Plugins observe or veto
// at fixed hook points; the per-hook error policy is fixed here, not by
// the plugin.
package hooks

import (
	"context"

	"github.com/mcpgate/mcpgate/discovery"
	"github.com/mcpgate/mcpgate/protocol"
)

// HookType names a lifecycle extension point.
type HookType string

const (
	ClientInit          HookType = "client_init"
	PreServerSelection  HookType = "pre_server_selection"
	PostServerSelection HookType = "post_server_selection"
	PreRequest          HookType = "pre_request"
	PostRequest         HookType = "post_request"
	ErrorOccurred       HookType = "error_occurred"
	ClientClose         HookType = "client_close"
)

// vetoing marks the hooks whose errors abort the request pipeline. All
// other hook failures are logged and swallowed so one misbehaving plugin
// cannot break in-flight requests.
var vetoing = map[HookType]bool{
	ClientInit:         true,
	PreServerSelection: true,
	PreRequest:         true,
}

// CanVeto reports whether a plugin error at the given hook aborts the
// request instead of being swallowed.
func CanVeto(hook HookType) bool {
	return vetoing[hook]
}

// Context carries the stage-specific arguments handed to a hook. Fields
// are populated progressively as the pipeline advances; a plugin must
// treat fields beyond its stage as unset.
type Context struct {
	Ctx       context.Context
	RequestID string
	Request   *protocol.Request
	Server    *discovery.ServerInfo
	Payload   []byte
	Response  *protocol.Response
	Err       error
}

// Plugin is implemented by lifecycle extensions. Hooks returns the hook
// points the plugin subscribes to; OnHook is only invoked for those.
type Plugin interface {
	Name() string
	Hooks() []HookType
	OnHook(hook HookType, hctx *Context) error
}

// Closer is optionally implemented by plugins that hold resources.
// Manager.Shutdown calls Close after the ClientClose hook has fired.
type Closer interface {
	Close() error
}
