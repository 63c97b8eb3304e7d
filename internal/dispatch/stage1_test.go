package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uwizard/internal/catalog"
)

func TestTokenizePreservesQuotedSubstrings(t *testing.T) {
	tokens := tokenize(`file "new document.txt" --flag`)
	assert.Equal(t, []string{"file", "new document.txt", "--flag"}, tokens)
}

func TestMatchStage1CanonicalCommandConfidence1(t *testing.T) {
	cat := catalog.Default()
	for _, name := range cat.CanonicalCommands().Elements() {
		t.Run(name, func(t *testing.T) {
			result := matchStage1(cat, name)
			assert.Equal(t, 1.0, result.Confidence)
			assert.Equal(t, name, result.Command)
		})
	}
}

func TestMatchStage1AliasResolvesToCanonical(t *testing.T) {
	cat := catalog.Default()
	result := matchStage1(cat, "RESTART")
	assert.Equal(t, "REBOOT", result.Command)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestMatchStage1RejectsShortShellTokensFromFuzzy(t *testing.T) {
	cat := catalog.Default()
	result := matchStage1(cat, "ls")
	assert.Equal(t, 0.0, result.Confidence)
	assert.Equal(t, "no_match", result.Reason)
}

func TestMatchStage1FuzzyMatchAboveFloor(t *testing.T) {
	cat := catalog.Default()
	result := matchStage1(cat, "HELTH")
	require.Equal(t, "HEALTH", result.Command)
	assert.GreaterOrEqual(t, result.Confidence, fuzzyFloor)
}

func TestMatchStage1CaseInsensitive(t *testing.T) {
	cat := catalog.Default()
	result := matchStage1(cat, "health")
	assert.Equal(t, "HEALTH", result.Command)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestMatchStage1PreservesArgs(t *testing.T) {
	cat := catalog.Default()
	result := matchStage1(cat, "FIND needle haystack")
	assert.Equal(t, []string{"needle", "haystack"}, result.Args)
}
