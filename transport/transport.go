// Package transport moves formatted request payloads to servers and
// returns raw responses. Concrete kinds live in subpackages and register
// themselves with the factory; the orchestrator never depends on a
// specific kind.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mcpgate/mcpgate/discovery"
	"github.com/mcpgate/mcpgate/logx"
)

// Kind identifies a transport implementation.
type Kind string

const (
	KindHTTP     Kind = "http"
	KindWS       Kind = "ws"
	KindInMemory Kind = "inmemory"
)

// Transport sends one formatted payload to one server. Implementations
// own connection pooling, timeouts and retry/backoff; a transport error
// surfaces only after retries are exhausted.
type Transport interface {
	SendRequest(ctx context.Context, server *discovery.ServerInfo, payload []byte) ([]byte, error)
	Kind() Kind
	Close() error
}

// AuthProvider supplies authentication headers attached to outgoing
// requests.
type AuthProvider interface {
	GetAuthHeaders() map[string]string
	GetAuthToken() string
}

// RequestSigner produces a per-request signature token for transports
// that support signed requests.
type RequestSigner interface {
	Sign(payload []byte) (string, error)
}

// Options carries the default policy a factory hands to every transport
// instance it creates.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	Backoff    BackoffStrategy

	UseTLS             bool
	InsecureSkipVerify bool
	CertFile           string
	KeyFile            string
	CAFile             string
	MinTLSVersion      uint16
	CipherSuites       []uint16

	AuthProvider AuthProvider
	Signer       RequestSigner
	Headers      map[string]string
	HTTPClient   *http.Client
	Logger       logx.Logger
}

// DefaultOptions returns the policy applied when the caller configures
// nothing: 30s per attempt, 3 retries, exponential backoff with jitter.
func DefaultOptions() Options {
	return Options{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		Backoff:    NewExponentialBackoff(500*time.Millisecond, 30*time.Second, 2.0),
		Logger:     logx.NewNilLogger(),
	}
}

// normalized fills zero-value fields with defaults.
func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.Backoff == nil {
		o.Backoff = def.Backoff
	}
	if o.Logger == nil {
		o.Logger = def.Logger
	}
	return o
}

// TLSConfig builds a *tls.Config from the options, loading certificates
// from the configured paths.
func (o Options) TLSConfig() (*tls.Config, error) {
	if !o.UseTLS {
		return nil, nil
	}
	cfg := &tls.Config{
		InsecureSkipVerify: o.InsecureSkipVerify,
		MinVersion:         o.MinTLSVersion,
		CipherSuites:       o.CipherSuites,
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}
	if o.CertFile != "" && o.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(o.CertFile, o.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client key pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	if o.CAFile != "" {
		pem, err := os.ReadFile(o.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", o.CAFile)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}
