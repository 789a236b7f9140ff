package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mcpgate/mcpgate/discovery"
)

// serversFile is the on-disk shape of a static server configuration:
//
//	{
//	  "servers": [
//	    {"id": "chat-1", "endpoint": "https://...", "transport_kind": "http",
//	     "capabilities": ["chat"], "metadata": {...}}
//	  ]
//	}
type serversFile struct {
	Servers []map[string]any `json:"servers"`
}

// LoadServers reads a static server set from a JSON configuration file.
// Per-server entries are decoded leniently so deployments can carry extra
// metadata alongside the recognized fields.
func LoadServers(path string) ([]*discovery.ServerInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read server config: %w", err)
	}

	var file serversFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse server config %s: %w", path, err)
	}
	if len(file.Servers) == 0 {
		return nil, fmt.Errorf("server config %s contains no servers", path)
	}

	servers := make([]*discovery.ServerInfo, 0, len(file.Servers))
	seen := make(map[string]bool, len(file.Servers))
	for i, raw := range file.Servers {
		info, err := discovery.DecodeServerInfo(raw)
		if err != nil {
			return nil, fmt.Errorf("server config %s entry %d: %w", path, i, err)
		}
		if seen[info.ID] {
			return nil, fmt.Errorf("server config %s: duplicate server id %q", path, info.ID)
		}
		seen[info.ID] = true
		servers = append(servers, info)
	}
	return servers, nil
}
