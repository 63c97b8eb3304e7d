package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogHas54CanonicalCommands(t *testing.T) {
	c := Default()
	assert.Equal(t, 54, c.CanonicalCommands().Len())
}

func TestEveryCanonicalNameMatchesItself(t *testing.T) {
	c := Default()
	for _, name := range c.CanonicalCommands().Elements() {
		assert.True(t, c.IsCanonical(name), "canonical name %q must self-match", name)
	}
}

func TestAliasBridgesResolveToCanonicalAtFullConfidence(t *testing.T) {
	cases := map[string]string{
		"RESTART":  "REBOOT",
		"SCHEDULE": "SCHEDULER",
		"TALK":     "SEND",
		"UCLI":     "UCODE",
		"NEW":      "FILE NEW",
		"EDIT":     "FILE EDIT",
	}
	c := Default()
	for src, want := range cases {
		t.Run(src, func(t *testing.T) {
			got, ok := c.ResolveAlias(src)
			require.True(t, ok, "expected %q to be an alias source", src)
			assert.Equal(t, want, got)
			assert.True(t, c.IsCanonical(got), "alias target %q must itself be canonical", got)
		})
	}
}

func TestAliasSourcesAreNotCanonical(t *testing.T) {
	c := Default()
	for _, src := range c.AliasSources().Elements() {
		assert.False(t, c.IsCanonical(src), "alias source %q must not double as a canonical name", src)
	}
}

func TestResolveAliasIsIdempotentThroughCanonical(t *testing.T) {
	c := Default()
	target, ok := c.ResolveAlias("RESTART")
	require.True(t, ok)

	// resolve_alias(resolve_alias(x).canonical) == resolve_alias(x): the
	// canonical target is not itself an alias source, so a second pass
	// through ResolveAlias on the target finds nothing further to rewrite.
	_, again := c.ResolveAlias(target)
	assert.False(t, again)
	assert.True(t, c.IsCanonical(target))
}

func TestCatalogParityAgainstRegisteredHandlers(t *testing.T) {
	c := Default()
	handlers := registeredHandlerNames(c)
	assert.ElementsMatch(t, c.CanonicalCommands().Elements(), handlers)
}

func TestUnknownCommandIsNeitherCanonicalNorAlias(t *testing.T) {
	c := Default()
	assert.False(t, c.IsCanonical("NOPE"))
	_, ok := c.ResolveAlias("NOPE")
	assert.False(t, ok)
}

func TestNewPanicsOnAliasCollidingWithCanonical(t *testing.T) {
	assert.Panics(t, func() {
		New([]Entry{{"FOO", ReadOnly, 0.8, "foo"}}, map[string]string{"FOO": "FOO"})
	})
}

func TestNewPanicsOnAliasTargetingUnknownCommand(t *testing.T) {
	assert.Panics(t, func() {
		New([]Entry{{"FOO", ReadOnly, 0.8, "foo"}}, map[string]string{"BAR": "BAZ"})
	})
}

func TestSwapReplacesCatalogAtomicallyForNewReaders(t *testing.T) {
	original := Default()
	custom := New([]Entry{{"ONLY", ReadOnly, 0.8, "only"}}, nil)
	Swap(custom)
	defer Swap(original)

	assert.True(t, Default().IsCanonical("ONLY"))
	assert.False(t, Default().IsCanonical("WIZARD"))
	// A snapshot obtained before the swap is unaffected.
	assert.True(t, original.IsCanonical("WIZARD"))
}

func TestEntriesPreserveCatalogOrderForTieBreaking(t *testing.T) {
	c := Default()
	entries := c.Entries()
	require.Equal(t, c.CanonicalCommands().Len(), len(entries))
	assert.Equal(t, "ANCHOR", entries[0].Name)
}

// registeredHandlerNames stands in for the real handler registry (built in
// internal/engine): every canonical command's declared handler identifier,
// used here only to exercise the parity invariant against this package's
// own data.
func registeredHandlerNames(c *Catalog) []string {
	names := c.CanonicalCommands().Elements()
	out := make([]string, 0, len(names))
	for _, n := range names {
		if h, ok := c.HandlerOf(n); ok && h != "" {
			out = append(out, n)
		}
	}
	return out
}
