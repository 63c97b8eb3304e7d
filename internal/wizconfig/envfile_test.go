package wizconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEnvFileMissingFileReturnsEmptyMap(t *testing.T) {
	entries, err := ReadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadEnvFileParsesKeyValuePairsIgnoringCommentsAndBlanks(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nWIZARD_KEY=abc123\n\nWIZARD_ADMIN_TOKEN = has-spaces \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	entries, err := ReadEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123", entries["WIZARD_KEY"])
	assert.Equal(t, "has-spaces", entries["WIZARD_ADMIN_TOKEN"])
}

func TestWriteEnvFileThenReadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	entries := map[string]string{"WIZARD_KEY": "deadbeef", "WIZARD_ADMIN_TOKEN": "tok"}

	require.NoError(t, WriteEnvFile(path, entries))

	reloaded, err := ReadEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, entries, reloaded)
}

func TestEnvLookupPrefersProcessEnvOverFile(t *testing.T) {
	t.Setenv("UWIZARD_TEST_KEY", "from-process-env")
	lookup := EnvLookup(map[string]string{"UWIZARD_TEST_KEY": "from-file"})

	v, ok := lookup("UWIZARD_TEST_KEY")
	require.True(t, ok)
	assert.Equal(t, "from-process-env", v)
}

func TestEnvLookupFallsBackToFile(t *testing.T) {
	lookup := EnvLookup(map[string]string{"SOME_OTHER_KEY": "from-file"})

	v, ok := lookup("SOME_OTHER_KEY")
	require.True(t, ok)
	assert.Equal(t, "from-file", v)

	_, ok = lookup("ABSENT_KEY")
	assert.False(t, ok)
}
