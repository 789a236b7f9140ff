package hooks

import (
	"fmt"
	"sync"

	"github.com/mcpgate/mcpgate/logx"
)

// Manager holds the ordered plugin list and dispatches hooks. Plugins fire
// in registration order. Registration is safe while requests are in
// flight; Execute works on a snapshot of the list.
type Manager struct {
	mu      sync.RWMutex
	plugins []Plugin
	subs    map[string]map[HookType]bool
	logger  logx.Logger
}

// NewManager creates an empty plugin manager.
func NewManager(logger logx.Logger) *Manager {
	if logger == nil {
		logger = logx.NewNilLogger()
	}
	return &Manager{
		subs:   make(map[string]map[HookType]bool),
		logger: logger,
	}
}

// Register appends a plugin to the dispatch order. Registering two plugins
// with the same name is an error; names key the subscription table.
func (m *Manager) Register(p Plugin) error {
	if p == nil {
		return fmt.Errorf("plugin is nil")
	}
	name := p.Name()
	if name == "" {
		return fmt.Errorf("plugin name is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.subs[name]; exists {
		return fmt.Errorf("plugin %q already registered", name)
	}
	hookSet := make(map[HookType]bool, len(p.Hooks()))
	for _, h := range p.Hooks() {
		hookSet[h] = true
	}
	m.subs[name] = hookSet
	m.plugins = append(m.plugins, p)
	return nil
}

// Plugins returns the registered plugin names in dispatch order.
func (m *Manager) Plugins() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.plugins))
	for _, p := range m.plugins {
		names = append(names, p.Name())
	}
	return names
}

// Execute fires one hook across all subscribed plugins in registration
// order. For vetoing hooks the first plugin error aborts and is returned;
// for all other hooks plugin errors are logged and swallowed.
func (m *Manager) Execute(hook HookType, hctx *Context) error {
	m.mu.RLock()
	plugins := make([]Plugin, len(m.plugins))
	copy(plugins, m.plugins)
	m.mu.RUnlock()

	for _, p := range plugins {
		if !m.subscribed(p.Name(), hook) {
			continue
		}
		if err := p.OnHook(hook, hctx); err != nil {
			if CanVeto(hook) {
				return fmt.Errorf("plugin %q vetoed %s: %w", p.Name(), hook, err)
			}
			m.logger.Warn("plugin hook failed",
				"plugin", p.Name(), "hook", string(hook), "error", err)
		}
	}
	return nil
}

// Shutdown closes every plugin that implements Closer, in registration
// order. Close failures are logged, never propagated, so all plugins get
// their chance to release resources.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	plugins := m.plugins
	m.plugins = nil
	m.subs = make(map[string]map[HookType]bool)
	m.mu.Unlock()

	for _, p := range plugins {
		if closer, ok := p.(Closer); ok {
			if err := closer.Close(); err != nil {
				m.logger.Warn("plugin close failed", "plugin", p.Name(), "error", err)
			}
		}
	}
}

func (m *Manager) subscribed(name string, hook HookType) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.subs[name]
	return ok && set[hook]
}
