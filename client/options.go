package client

import (
	"time"

	"github.com/mcpgate/mcpgate/discovery"
	"github.com/mcpgate/mcpgate/hooks"
	"github.com/mcpgate/mcpgate/logx"
	"github.com/mcpgate/mcpgate/transport"
)

// Option is a client configuration option.
type Option func(*Config)

// WithDiscoveryMode sets the discovery mode.
func WithDiscoveryMode(mode DiscoveryMode) Option {
	return func(c *Config) { c.DiscoveryMode = mode }
}

// WithStaticServers sets the servers registered at construction.
func WithStaticServers(servers ...*discovery.ServerInfo) Option {
	return func(c *Config) { c.StaticServers = append(c.StaticServers, servers...) }
}

// WithoutHealthChecks disables the background health-check loop. Static
// servers are then treated as always selectable.
func WithoutHealthChecks() Option {
	return func(c *Config) { c.DisableHealthChecks = true }
}

// WithHealthCheckInterval sets the health probe period.
func WithHealthCheckInterval(d time.Duration) Option {
	return func(c *Config) { c.HealthCheckInterval = d }
}

// WithTimeout sets the per-attempt transport timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithMaxRetries sets how many times a retryable transport failure is
// retried before surfacing.
func WithMaxRetries(n int) Option {
	return func(c *Config) { c.MaxRetries = n }
}

// WithRetryBackoffFactor sets the exponential growth factor between
// retry delays.
func WithRetryBackoffFactor(factor float64) Option {
	return func(c *Config) { c.RetryBackoffFactor = factor }
}

// WithTLS enables TLS with the given certificate material. Empty paths
// leave the corresponding setting at its default.
func WithTLS(certFile, keyFile, caFile string) Option {
	return func(c *Config) {
		c.UseTLS = true
		c.CertFile = certFile
		c.KeyFile = keyFile
		c.CAFile = caFile
	}
}

// WithTLSVersion pins the minimum TLS version and optionally the cipher
// suite list.
func WithTLSVersion(minVersion uint16, cipherSuites ...uint16) Option {
	return func(c *Config) {
		c.MinTLSVersion = minVersion
		if len(cipherSuites) > 0 {
			c.CipherSuites = cipherSuites
		}
	}
}

// WithInsecureSkipVerify disables server certificate verification.
func WithInsecureSkipVerify() Option {
	return func(c *Config) { c.VerifySSL = false }
}

// WithAuthProvider sets the authenticator whose headers are attached to
// every outgoing request.
func WithAuthProvider(p transport.AuthProvider) Option {
	return func(c *Config) { c.AuthProvider = p }
}

// WithRequestSigner enables per-request signing.
func WithRequestSigner(s transport.RequestSigner) Option {
	return func(c *Config) { c.Signer = s }
}

// WithMetrics enables or disables metrics collection.
func WithMetrics(enabled bool) Option {
	return func(c *Config) { c.EnableMetrics = enabled }
}

// WithTracing enables per-stage trace logging at debug level.
func WithTracing(enabled bool) Option {
	return func(c *Config) { c.EnableTracing = enabled }
}

// WithLogger sets the client's logger.
func WithLogger(logger logx.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithLogLevel sets the level of the default logger. Ignored when a
// logger is injected with WithLogger.
func WithLogLevel(level string) Option {
	return func(c *Config) { c.LogLevel = level }
}

// WithPlugins registers lifecycle plugins in the given order.
func WithPlugins(plugins ...hooks.Plugin) Option {
	return func(c *Config) { c.Plugins = append(c.Plugins, plugins...) }
}

// WithSecurityPolicy overrides the default sanitization policy.
func WithSecurityPolicy(policy *SecurityPolicy) Option {
	return func(c *Config) { c.Security = policy }
}

// WithMaxPayloadBytes bounds the serialized request content size.
func WithMaxPayloadBytes(n int) Option {
	return func(c *Config) { c.MaxPayloadBytes = n }
}

// WithSyncWorkers bounds the worker pool behind the synchronous API.
func WithSyncWorkers(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.SyncWorkers = n
		}
	}
}

// WithServersFile loads static servers from a JSON configuration file at
// construction time.
func WithServersFile(path string) Option {
	return func(c *Config) {
		servers, err := LoadServers(path)
		if err != nil {
			// Surfaced during New via the deferred config error.
			c.loadErr = err
			return
		}
		c.StaticServers = append(c.StaticServers, servers...)
	}
}
