// Package client provides the multi-server MCP client: it validates and
// sanitizes outgoing requests, selects a capable server, routes the
// payload through a pluggable transport and feeds the whole lifecycle
// through an ordered plugin hook pipeline with metrics and structured
// logging.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcpgate/mcpgate/discovery"
	"github.com/mcpgate/mcpgate/hooks"
	"github.com/mcpgate/mcpgate/logx"
	"github.com/mcpgate/mcpgate/protocol"
	"github.com/mcpgate/mcpgate/transport"
)

// Client orchestrates the request pipeline. Construct once per process
// (or per logical tenant) with New; Close exactly once at shutdown.
type Client struct {
	cfg        *Config
	logger     logx.Logger
	handler    *protocol.Handler
	security   *SecurityMiddleware
	plugins    *hooks.Manager
	registry   *discovery.Registry
	transports *transport.Facade
	metrics    *Metrics

	syncSem chan struct{}

	mu     sync.Mutex
	closed bool
}

// New builds a client, registers the statically configured servers and
// starts the discovery loop unless the configuration is static with
// health checks disabled. The ClientInit hook runs last; a plugin veto
// fails construction.
func New(opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.loadErr != nil {
		return nil, NewError(ErrCodeClient, "load configuration", nil, cfg.loadErr)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logx.NewLeveledLogger(cfg.LogLevel)
	}

	var handlerOpts []protocol.HandlerOption
	if cfg.MaxPayloadBytes > 0 {
		handlerOpts = append(handlerOpts, protocol.WithMaxPayloadBytes(cfg.MaxPayloadBytes))
	}

	plugins := hooks.NewManager(logger)
	for _, p := range cfg.Plugins {
		if err := plugins.Register(p); err != nil {
			return nil, NewError(ErrCodeClient, "register plugin", nil, err)
		}
	}

	registryOpts := []discovery.RegistryOption{discovery.WithLogger(logger)}
	if cfg.HealthCheckInterval > 0 {
		registryOpts = append(registryOpts, discovery.WithHealthInterval(cfg.HealthCheckInterval))
	}
	registry := discovery.NewRegistry(registryOpts...)

	// The configured payload ceiling applies to the security policy too,
	// unless the caller brought their own policy.
	security := cfg.Security
	if security == nil {
		security = DefaultSecurityPolicy()
		if cfg.MaxPayloadBytes > 0 {
			security.MaxPayloadBytes = cfg.MaxPayloadBytes
		}
	}

	c := &Client{
		cfg:        cfg,
		logger:     logger,
		handler:    protocol.NewHandler(handlerOpts...),
		security:   NewSecurityMiddleware(security),
		plugins:    plugins,
		registry:   registry,
		transports: transport.NewFacade(cfg.transportOptions(logger)),
		metrics:    NewMetrics(cfg.EnableMetrics),
		syncSem:    make(chan struct{}, cfg.SyncWorkers),
	}

	for _, info := range cfg.StaticServers {
		skip := cfg.DisableHealthChecks || info.SkipHealthCheck
		if err := registry.RegisterServer(info, skip); err != nil {
			return nil, NewError(ErrCodeClient, "register static server", nil, err)
		}
	}
	if !(cfg.DiscoveryMode == DiscoveryStatic && cfg.DisableHealthChecks) {
		registry.Start()
	}

	if err := plugins.Execute(hooks.ClientInit, &hooks.Context{Ctx: context.Background()}); err != nil {
		registry.Stop()
		return nil, NewError(ErrCodeClient, "client init hook", nil, err)
	}

	logger.Info("client initialized",
		"discovery_mode", string(cfg.DiscoveryMode),
		"static_servers", len(cfg.StaticServers),
		"plugins", len(cfg.Plugins))
	return c, nil
}

// SendRequest runs the full request pipeline and returns the typed
// response or a typed *Error. Stages execute strictly in order; the first
// failure aborts, fires the ErrorOccurred hook and records error metrics
// exactly once.
func (c *Client) SendRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	if c.isClosed() {
		return nil, NewError(ErrCodeClient, "client is closed", nil, ErrClientClosed)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	requestID := uuid.NewString()
	ctx = markPipeline(ctx)
	start := time.Now()

	// Per-call logging context: a scoped logger, never global state.
	logger := c.logger.With("request_id", requestID)

	return c.pipeline(ctx, requestID, start, logger, req)
}

func (c *Client) pipeline(ctx context.Context, requestID string, start time.Time, logger logx.Logger, req *protocol.Request) (*protocol.Response, error) {
	hctx := &hooks.Context{Ctx: ctx, RequestID: requestID, Request: req}

	var reqType string
	if req != nil {
		reqType = string(req.Type)
	}

	trace := func(stage string) {
		if c.cfg.EnableTracing {
			logger.Debug("stage complete", "stage", stage, "elapsed", time.Since(start))
		}
	}

	// fail finalizes one pipeline failure: ErrorOccurred hook, error
	// metrics and the terminal log line happen here and nowhere else.
	fail := func(stage string, e *Error) error {
		hctx.Err = e
		c.plugins.Execute(hooks.ErrorOccurred, hctx)
		var serverID string
		if hctx.Server != nil {
			serverID = hctx.Server.ID
		}
		elapsed := time.Since(start)
		c.metrics.Record(reqType, serverID, OutcomeError, elapsed)
		logger.Error("request failed",
			"stage", stage,
			"server_id", serverID,
			"code", string(e.Code),
			"duration", elapsed,
			"error", e.Error())
		return e
	}

	if err := c.handler.ValidateRequest(req); err != nil {
		return nil, fail("validate", NewError(ErrCodeValidation, "request failed validation", nil, err))
	}

	trace("validate")

	sanitized, err := c.security.ValidateRequest(ctx, req)
	if err != nil {
		return nil, fail("security", NewError(ErrCodeSecurity, "request rejected by security policy", nil, err))
	}
	hctx.Request = sanitized
	trace("security")

	if err := c.plugins.Execute(hooks.PreServerSelection, hctx); err != nil {
		return nil, fail("pre_server_selection", wrapUnexpected(err, "plugin aborted request"))
	}

	server, err := c.registry.SelectServer(sanitized)
	if err != nil {
		return nil, fail("discovery", NewError(ErrCodeDiscovery, "no eligible server",
			map[string]any{"required_capabilities": sanitized.RequiredCapabilities}, err))
	}
	hctx.Server = server
	logger = logger.With("server_id", server.ID)
	trace("discovery")

	c.plugins.Execute(hooks.PostServerSelection, hctx)

	payload, err := c.handler.FormatRequest(sanitized)
	if err != nil {
		return nil, fail("format", NewError(ErrCodeProtocol, "format request", nil, err))
	}
	hctx.Payload = payload

	// PreRequest plugins may rewrite the formatted payload in place.
	if err := c.plugins.Execute(hooks.PreRequest, hctx); err != nil {
		return nil, fail("pre_request", wrapUnexpected(err, "plugin aborted request"))
	}

	raw, err := c.transports.SendRequest(ctx, server, hctx.Payload)
	if err != nil {
		details := map[string]any{"server_id": server.ID}
		var terr *transport.Error
		if errors.As(err, &terr) {
			details["transport_kind"] = string(terr.Kind)
			details["attempts"] = terr.Attempts
			details["retries_exhausted"] = terr.Exhausted
		}
		return nil, fail("transport", NewError(ErrCodeClient, "transport failure", details, err))
	}
	trace("transport")

	resp, err := c.handler.ParseResponse(raw)
	if err != nil {
		return nil, fail("parse", NewError(ErrCodeProtocol, "parse response",
			map[string]any{"server_id": server.ID}, err))
	}
	resp.RequestID = requestID
	resp.ServerID = server.ID
	hctx.Response = resp

	c.plugins.Execute(hooks.PostRequest, hctx)

	if resp.IsError() {
		return nil, fail("server", NewError(ErrCodeServer, "server returned error status",
			map[string]any{"server_id": server.ID, "content": resp.Content}, nil))
	}

	elapsed := time.Since(start)
	c.metrics.Record(reqType, server.ID, OutcomeSuccess, elapsed)
	logger.Debug("request completed", "duration", elapsed)
	return resp, nil
}

// RegisterServer adds a server to the discovery registry at runtime. Safe
// to call while requests are in flight.
func (c *Client) RegisterServer(info *discovery.ServerInfo, skipHealthCheck bool) error {
	if c.isClosed() {
		return NewError(ErrCodeClient, "client is closed", nil, ErrClientClosed)
	}
	if err := c.registry.RegisterServer(info, skipHealthCheck); err != nil {
		return NewError(ErrCodeDiscovery, "register server", nil, err)
	}
	return nil
}

// DeregisterServer removes a server from the discovery registry.
func (c *Client) DeregisterServer(serverID string) error {
	if err := c.registry.DeregisterServer(serverID); err != nil {
		return NewError(ErrCodeDiscovery, "deregister server", nil, err)
	}
	return nil
}

// GetServers returns a snapshot of the known server set.
func (c *Client) GetServers() []*discovery.ServerInfo {
	return c.registry.Servers()
}

// Metrics exposes the client's metrics collector.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// Close tears the client down in order: ClientClose hook, plugin
// shutdown, discovery stop, transport close. Each step is isolated so a
// failing step is logged and the rest still run. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.closeStep("client close hook", func() error {
		return c.plugins.Execute(hooks.ClientClose, &hooks.Context{Ctx: context.Background()})
	})
	c.closeStep("plugin shutdown", func() error {
		c.plugins.Shutdown()
		return nil
	})
	c.closeStep("discovery stop", func() error {
		c.registry.Stop()
		return nil
	})
	c.closeStep("transport close", c.transports.Close)

	c.logger.Info("client closed")
	return nil
}

func (c *Client) closeStep(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("teardown step panicked", "step", name, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		c.logger.Warn("teardown step failed", "step", name, "error", err)
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
