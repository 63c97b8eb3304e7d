package wizconfig

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfigMissingFileDefaultsAdminKeyID(t *testing.T) {
	sc, err := LoadServerConfig(filepath.Join(t.TempDir(), "wizard.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAdminAPIKeyID, sc.AdminAPIKeyID)
}

func TestServerConfigSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wizard.json")

	sc := DefaultServerConfig()
	sc.AdminAPIKeyID = "custom-key-id"
	sc.ProviderChain = []string{"openrouter", "openai"}

	require.NoError(t, sc.Save(path))

	reloaded, err := LoadServerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "custom-key-id", reloaded.AdminAPIKeyID)
	assert.Equal(t, []string{"openrouter", "openai"}, reloaded.ProviderChain)
}
