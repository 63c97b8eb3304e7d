package wizconfig

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().HTTP.BindPort, cfg.HTTP.BindPort)
	assert.Equal(t, 0.8, cfg.FuzzyMatchFloor)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wizconfig.yaml")

	cfg := DefaultConfig()
	cfg.HTTP.BindPort = 9999
	cfg.Logging.DebugMode = true
	cfg.FuzzyMatchFloor = 0.9

	require.NoError(t, cfg.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, reloaded.HTTP.BindPort)
	assert.True(t, reloaded.Logging.DebugMode)
	assert.Equal(t, 0.9, reloaded.FuzzyMatchFloor)
}
