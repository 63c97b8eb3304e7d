package wizconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultAdminAPIKeyID is the server-config default named in the
// admin-secret contract.
const DefaultAdminAPIKeyID = "wizard-admin-token"

// ServerConfig is the single JSON object persisted at wizard.json — the
// second of the three artifacts the admin-secret contract keeps in sync
// with the environment file and the secret store. Plain encoding/json is
// deliberate here: this is a pinned wire format, not an ambient design
// choice (see DESIGN.md).
type ServerConfig struct {
	AdminAPIKeyID string `json:"admin_api_key_id"`

	HTTP struct {
		BindHost string `json:"bind_host"`
		BindPort int    `json:"bind_port"`
	} `json:"http"`

	ProviderChain []string `json:"provider_chain,omitempty"`

	Logging struct {
		DebugMode  bool            `json:"debug_mode"`
		Categories map[string]bool `json:"categories,omitempty"`
		Level      string          `json:"level"`
		JSONFormat bool            `json:"json_format"`
	} `json:"logging"`
}

// DefaultServerConfig returns the config a fresh install starts from.
func DefaultServerConfig() *ServerConfig {
	sc := &ServerConfig{AdminAPIKeyID: DefaultAdminAPIKeyID}
	sc.HTTP.BindHost = "127.0.0.1"
	sc.HTTP.BindPort = 8733
	sc.Logging.Level = "info"
	return sc
}

// LoadServerConfig reads wizard.json, returning defaults if it doesn't
// exist yet.
func LoadServerConfig(path string) (*ServerConfig, error) {
	sc := DefaultServerConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sc, nil
		}
		return nil, fmt.Errorf("read server config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, sc); err != nil {
		return nil, fmt.Errorf("parse server config %s: %w", path, err)
	}
	return sc, nil
}

// Save writes sc to path as a single indented JSON object.
func (sc *ServerConfig) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal server config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write server config %s: %w", path, err)
	}
	return nil
}
