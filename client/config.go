package client

import (
	"time"

	"github.com/mcpgate/mcpgate/discovery"
	"github.com/mcpgate/mcpgate/hooks"
	"github.com/mcpgate/mcpgate/logx"
	"github.com/mcpgate/mcpgate/transport"
)

// DiscoveryMode selects how the server set is managed.
type DiscoveryMode string

const (
	// DiscoveryStatic uses only the configured server list.
	DiscoveryStatic DiscoveryMode = "static"
	// DiscoveryDynamic accepts runtime registrations and health-checks them.
	DiscoveryDynamic DiscoveryMode = "dynamic"
)

// Config collects the construction-time configuration of a Client.
// Zero values fall back to the documented defaults; most callers set
// fields through the functional options in options.go.
type Config struct {
	DiscoveryMode       DiscoveryMode
	StaticServers       []*discovery.ServerInfo
	DisableHealthChecks bool
	HealthCheckInterval time.Duration

	// Transport defaults, applied uniformly by every transport instance.
	Timeout            time.Duration
	MaxRetries         int
	RetryBackoffFactor float64

	// TLS and authentication.
	UseTLS        bool
	VerifySSL     bool
	CertFile      string
	KeyFile       string
	CAFile        string
	MinTLSVersion uint16
	CipherSuites  []uint16
	AuthProvider  transport.AuthProvider
	Signer        transport.RequestSigner

	EnableMetrics bool
	EnableTracing bool
	LogLevel      string
	Logger        logx.Logger

	Plugins  []hooks.Plugin
	Security *SecurityPolicy

	// MaxPayloadBytes bounds the serialized request content.
	MaxPayloadBytes int

	// SyncWorkers bounds the worker pool hosting the synchronous API.
	SyncWorkers int

	// loadErr carries a configuration-file failure from an option into
	// New; options cannot return errors.
	loadErr error
}

// defaultConfig returns the configuration applied before options run.
func defaultConfig() *Config {
	return &Config{
		DiscoveryMode:      DiscoveryStatic,
		Timeout:            30 * time.Second,
		MaxRetries:         3,
		RetryBackoffFactor: 2.0,
		VerifySSL:          true,
		EnableMetrics:      true,
		LogLevel:           "info",
		SyncWorkers:        4,
	}
}

// transportOptions translates the config into the transport default
// policy.
func (c *Config) transportOptions(logger logx.Logger) transport.Options {
	return transport.Options{
		Timeout:            c.Timeout,
		MaxRetries:         c.MaxRetries,
		Backoff:            transport.NewExponentialBackoff(500*time.Millisecond, 30*time.Second, c.RetryBackoffFactor),
		UseTLS:             c.UseTLS,
		InsecureSkipVerify: !c.VerifySSL,
		CertFile:           c.CertFile,
		KeyFile:            c.KeyFile,
		CAFile:             c.CAFile,
		MinTLSVersion:      c.MinTLSVersion,
		CipherSuites:       c.CipherSuites,
		AuthProvider:       c.AuthProvider,
		Signer:             c.Signer,
		Logger:             logger,
	}
}
