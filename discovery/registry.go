package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mcpgate/mcpgate/logx"
	"github.com/mcpgate/mcpgate/protocol"
)

// Registration and selection errors.
var (
	ErrServerExists   = errors.New("server already registered")
	ErrServerNotFound = errors.New("server not found")
	ErrNoEligible     = errors.New("no eligible server")
)

const (
	// DefaultHealthInterval is how often dynamically registered servers
	// are probed.
	DefaultHealthInterval = 30 * time.Second
	// DefaultProbeTimeout bounds one health probe, independent of any
	// in-flight request timeouts.
	DefaultProbeTimeout = 5 * time.Second
)

// Registry maintains the known server set and runs the background
// health-check loop. Selection never blocks on probing.
type Registry struct {
	mu      sync.RWMutex
	servers map[string]*ServerInfo
	order   []string // registration order, basis of the round-robin cursor
	cursor  uint64

	interval     time.Duration
	probeTimeout time.Duration
	httpClient   *http.Client
	logger       logx.Logger

	loopCancel context.CancelFunc
	loopDone   chan struct{}
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithHealthInterval sets the period of the health-check loop.
func WithHealthInterval(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithProbeTimeout sets the timeout applied to each individual probe.
func WithProbeTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.probeTimeout = d
		}
	}
}

// WithHTTPClient sets the HTTP client used for health probes.
func WithHTTPClient(c *http.Client) RegistryOption {
	return func(r *Registry) {
		if c != nil {
			r.httpClient = c
		}
	}
}

// WithLogger sets the registry's logger.
func WithLogger(logger logx.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry. Call Start to begin health
// checking dynamically registered servers.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		servers:      make(map[string]*ServerInfo),
		interval:     DefaultHealthInterval,
		probeTimeout: DefaultProbeTimeout,
		httpClient:   http.DefaultClient,
		logger:       logx.NewNilLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterServer adds a server to the known set. With skipHealthCheck the
// server is exempt from probing and treated as always selectable.
// Safe to call while requests are concurrently selecting servers.
func (r *Registry) RegisterServer(info *ServerInfo, skipHealthCheck bool) error {
	if info == nil || info.ID == "" {
		return fmt.Errorf("server info missing id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.servers[info.ID]; exists {
		return fmt.Errorf("%w: %s", ErrServerExists, info.ID)
	}
	stored := info.clone()
	stored.SkipHealthCheck = skipHealthCheck
	if stored.Health == "" {
		stored.Health = HealthUnknown
	}
	r.servers[stored.ID] = stored
	r.order = append(r.order, stored.ID)
	r.logger.Debug("server registered",
		"server_id", stored.ID,
		"capabilities", strings.Join(stored.Capabilities, ","),
		"skip_health_check", skipHealthCheck)
	return nil
}

// DeregisterServer removes a server from the known set.
func (r *Registry) DeregisterServer(serverID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.servers[serverID]; !exists {
		return fmt.Errorf("%w: %s", ErrServerNotFound, serverID)
	}
	delete(r.servers, serverID)
	for i, id := range r.order {
		if id == serverID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Servers returns a snapshot of all registered servers in registration
// order.
func (r *Registry) Servers() []*ServerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ServerInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.servers[id].clone())
	}
	return out
}

// Server returns one registered server by id.
func (r *Registry) Server(serverID string) (*ServerInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.servers[serverID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, serverID)
	}
	return info.clone(), nil
}

// SelectServer picks the server for one request. Eligible servers must
// advertise a superset of the request's required capabilities and must not
// be known-unhealthy. The preferred server id is a soft hint: if it names
// an eligible server it wins, otherwise selection falls back. Ties are
// broken round-robin over the eligible set so no server is starved.
func (r *Registry) SelectServer(req *protocol.Request) (*ServerInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var eligible []*ServerInfo
	for _, id := range r.order {
		s := r.servers[id]
		if s.Health == HealthUnhealthy && !s.SkipHealthCheck {
			continue
		}
		if !s.HasCapabilities(req.RequiredCapabilities) {
			continue
		}
		eligible = append(eligible, s)
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w for capabilities [%s]",
			ErrNoEligible, strings.Join(req.RequiredCapabilities, ","))
	}

	if req.PreferredServerID != "" {
		for _, s := range eligible {
			if s.ID == req.PreferredServerID {
				return s.clone(), nil
			}
		}
	}

	picked := eligible[r.cursor%uint64(len(eligible))]
	r.cursor++
	return picked.clone(), nil
}

// Start launches the background health-check loop. Idempotent.
func (r *Registry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loopCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.loopCancel = cancel
	r.loopDone = done
	go r.healthCheckLoop(ctx, done)
}

// Stop cancels the health-check loop and waits for it to exit.
// Idempotent; safe to call without a prior Start.
func (r *Registry) Stop() {
	r.mu.Lock()
	cancel := r.loopCancel
	done := r.loopDone
	r.loopCancel = nil
	r.loopDone = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// healthCheckLoop probes dynamically registered servers on a fixed
// interval until the registry is stopped. done is captured at Start;
// Stop clears the field concurrently, so the loop must never read it.
func (r *Registry) healthCheckLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.probeAll(ctx)
		}
	}
}

// probeAll checks every non-exempt server. Each probe carries its own
// timeout; results update health without blocking SelectServer callers.
func (r *Registry) probeAll(ctx context.Context) {
	for _, s := range r.Servers() {
		if s.SkipHealthCheck {
			continue
		}
		start := time.Now()
		err := r.probe(ctx, s)
		status := HealthHealthy
		if err != nil {
			status = HealthUnhealthy
			r.logger.Warn("health check failed",
				"server_id", s.ID,
				"endpoint", s.Endpoint,
				"duration", time.Since(start),
				"error", err)
		} else {
			r.logger.Debug("health check passed",
				"server_id", s.ID, "duration", time.Since(start))
		}
		r.setHealth(s.ID, status)
	}
}

// probe issues one GET against the server's health endpoint.
func (r *Registry) probe(ctx context.Context, s *ServerInfo) error {
	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	url := strings.TrimRight(s.Endpoint, "/") + "/health"
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// setHealth records a probe outcome. Unknown ids are ignored; the server
// may have been deregistered while the probe was in flight.
func (r *Registry) setHealth(serverID string, status HealthStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.servers[serverID]; ok {
		s.Health = status
	}
}

// SetHealth overrides a server's health state. Exposed for callers that
// learn about server state out of band, and for tests.
func (r *Registry) SetHealth(serverID string, status HealthStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.servers[serverID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrServerNotFound, serverID)
	}
	s.Health = status
	return nil
}
