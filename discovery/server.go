// Package discovery tracks the set of known MCP servers, keeps their
// health state current and answers "which server should handle this
// request".
package discovery

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// HealthStatus is the observed availability of a server.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthUnknown   HealthStatus = "unknown"
)

// ServerInfo describes one registered server. Health is mutated only by
// the registry's health-check loop; everything else is fixed at
// registration.
type ServerInfo struct {
	ID              string         `json:"id" mapstructure:"id"`
	Capabilities    []string       `json:"capabilities" mapstructure:"capabilities"`
	Endpoint        string         `json:"endpoint" mapstructure:"endpoint"`
	TransportKind   string         `json:"transport_kind" mapstructure:"transport_kind"`
	Health          HealthStatus   `json:"health" mapstructure:"health"`
	SkipHealthCheck bool           `json:"skip_health_check" mapstructure:"skip_health_check"`
	Metadata        map[string]any `json:"metadata,omitempty" mapstructure:"metadata"`
}

// HasCapabilities reports whether the server advertises every capability
// in required.
func (s *ServerInfo) HasCapabilities(required []string) bool {
	if len(required) == 0 {
		return true
	}
	advertised := make(map[string]bool, len(s.Capabilities))
	for _, c := range s.Capabilities {
		advertised[c] = true
	}
	for _, c := range required {
		if !advertised[c] {
			return false
		}
	}
	return true
}

// clone returns a copy so registry internals never leak to callers.
func (s *ServerInfo) clone() *ServerInfo {
	out := *s
	out.Capabilities = append([]string(nil), s.Capabilities...)
	if s.Metadata != nil {
		out.Metadata = make(map[string]any, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// DecodeMetadata decodes the server's metadata map into a typed struct.
func (s *ServerInfo) DecodeMetadata(out any) error {
	if err := mapstructure.Decode(s.Metadata, out); err != nil {
		return fmt.Errorf("decode server %s metadata: %w", s.ID, err)
	}
	return nil
}

// DecodeServerInfo builds a ServerInfo from a generic map, as produced by
// configuration files.
func DecodeServerInfo(raw map[string]any) (*ServerInfo, error) {
	var info ServerInfo
	if err := mapstructure.Decode(raw, &info); err != nil {
		return nil, fmt.Errorf("decode server info: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("server info missing id")
	}
	if info.Health == "" {
		info.Health = HealthUnknown
	}
	return &info, nil
}
