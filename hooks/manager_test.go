package hooks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpgate/mcpgate/logx"
)

// recordingPlugin notes every hook invocation and optionally fails.
type recordingPlugin struct {
	name    string
	hooks   []HookType
	calls   []HookType
	failOn  HookType
	failErr error
	closed  bool
}

func (p *recordingPlugin) Name() string      { return p.name }
func (p *recordingPlugin) Hooks() []HookType { return p.hooks }

func (p *recordingPlugin) OnHook(hook HookType, _ *Context) error {
	p.calls = append(p.calls, hook)
	if hook == p.failOn {
		return p.failErr
	}
	return nil
}

func (p *recordingPlugin) Close() error {
	p.closed = true
	return nil
}

func TestManagerExecutesInRegistrationOrder(t *testing.T) {
	m := NewManager(logx.NewNilLogger())

	var order []string
	mk := func(name string) Plugin {
		return &funcPlugin{name: name, hooks: []HookType{PostRequest}, fn: func(HookType, *Context) error {
			order = append(order, name)
			return nil
		}}
	}
	require.NoError(t, m.Register(mk("first")))
	require.NoError(t, m.Register(mk("second")))
	require.NoError(t, m.Register(mk("third")))

	require.NoError(t, m.Execute(PostRequest, &Context{}))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestManagerRejectsDuplicateNames(t *testing.T) {
	m := NewManager(nil)
	p := &recordingPlugin{name: "dup", hooks: []HookType{PostRequest}}
	require.NoError(t, m.Register(p))
	assert.Error(t, m.Register(&recordingPlugin{name: "dup"}))
	assert.Error(t, m.Register(nil))
	assert.Error(t, m.Register(&recordingPlugin{name: ""}))
}

func TestManagerSkipsUnsubscribedHooks(t *testing.T) {
	m := NewManager(nil)
	p := &recordingPlugin{name: "observer", hooks: []HookType{PostRequest}}
	require.NoError(t, m.Register(p))

	require.NoError(t, m.Execute(PreServerSelection, &Context{}))
	assert.Empty(t, p.calls)

	require.NoError(t, m.Execute(PostRequest, &Context{}))
	assert.Equal(t, []HookType{PostRequest}, p.calls)
}

func TestVetoingHookPropagatesFailure(t *testing.T) {
	m := NewManager(nil)
	boom := errors.New("boom")
	p := &recordingPlugin{
		name:    "veto",
		hooks:   []HookType{PreServerSelection},
		failOn:  PreServerSelection,
		failErr: boom,
	}
	require.NoError(t, m.Register(p))

	err := m.Execute(PreServerSelection, &Context{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestNonVetoingHookSwallowsFailure(t *testing.T) {
	m := NewManager(nil)
	failing := &recordingPlugin{
		name:    "broken",
		hooks:   []HookType{PostRequest},
		failOn:  PostRequest,
		failErr: errors.New("boom"),
	}
	after := &recordingPlugin{name: "after", hooks: []HookType{PostRequest}}
	require.NoError(t, m.Register(failing))
	require.NoError(t, m.Register(after))

	// The broken plugin must not prevent later plugins from running.
	require.NoError(t, m.Execute(PostRequest, &Context{}))
	assert.Equal(t, []HookType{PostRequest}, after.calls)
}

func TestShutdownClosesPlugins(t *testing.T) {
	m := NewManager(nil)
	p := &recordingPlugin{name: "closable", hooks: []HookType{ClientClose}}
	require.NoError(t, m.Register(p))

	m.Shutdown()
	assert.True(t, p.closed)
	assert.Empty(t, m.Plugins())
}

func TestCanVeto(t *testing.T) {
	assert.True(t, CanVeto(ClientInit))
	assert.True(t, CanVeto(PreServerSelection))
	assert.True(t, CanVeto(PreRequest))
	assert.False(t, CanVeto(PostServerSelection))
	assert.False(t, CanVeto(PostRequest))
	assert.False(t, CanVeto(ErrorOccurred))
	assert.False(t, CanVeto(ClientClose))
}

// funcPlugin adapts a closure to the Plugin interface.
type funcPlugin struct {
	name  string
	hooks []HookType
	fn    func(HookType, *Context) error
}

func (p *funcPlugin) Name() string                        { return p.name }
func (p *funcPlugin) Hooks() []HookType                   { return p.hooks }
func (p *funcPlugin) OnHook(h HookType, c *Context) error { return p.fn(h, c) }
