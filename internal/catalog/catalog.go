// Package catalog holds the canonical command set and alias table consumed
// by Stage-1 matching. The catalog is built once at package init and is
// read-only thereafter; reloads replace the whole structure atomically via
// Swap, never mutate entries in place.
package catalog

import (
	"fmt"
	"sync"

	"bitbucket.org/creachadair/stringset"
)

// Kind classifies a command by the blast radius of its effect.
type Kind string

const (
	ReadOnly    Kind = "read_only"
	Mutating    Kind = "mutating"
	Destructive Kind = "destructive"
)

// Entry is one canonical command's catalog record.
type Entry struct {
	Name      string
	Kind      Kind
	Threshold float64
	Handler   string
}

// catalog is the fixed 54-member canonical set (see DESIGN.md OQ-1 for the
// arithmetic reconciling the flat name list against the alias bridges).
// RESTART, SCHEDULE and TALK are deliberately absent here: they are
// alias-only legacy tokens that rewrite to REBOOT, SCHEDULER and SEND
// respectively, never canonical entries in their own right.
var defaultEntries = []Entry{
	{"ANCHOR", ReadOnly, 0.8, "anchor"},
	{"BAG", Mutating, 0.8, "bag"},
	{"BINDER", Mutating, 0.8, "binder"},
	{"CLEAN", Mutating, 0.8, "clean"},
	{"COMPOST", Destructive, 0.8, "compost"},
	{"CONFIG", ReadOnly, 0.8, "config"},
	{"DESTROY", Destructive, 0.8, "destroy"},
	{"DEV", Mutating, 0.8, "dev"},
	{"DRAW", Mutating, 0.8, "draw"},
	{"EMPIRE", ReadOnly, 0.8, "empire"},
	{"FILE", Mutating, 0.8, "file"},
	{"FILE NEW", Mutating, 0.8, "file_new"},
	{"FILE EDIT", Mutating, 0.8, "file_edit"},
	{"FIND", ReadOnly, 0.8, "find"},
	{"GHOST", ReadOnly, 0.8, "ghost"},
	{"GOTO", ReadOnly, 0.8, "goto"},
	{"GRAB", Mutating, 0.8, "grab"},
	{"GRID", ReadOnly, 0.8, "grid"},
	{"HEALTH", ReadOnly, 0.8, "health"},
	{"HELP", ReadOnly, 0.8, "help"},
	{"LIBRARY", ReadOnly, 0.8, "library"},
	{"LOAD", Mutating, 0.8, "load"},
	{"LOGS", ReadOnly, 0.8, "logs"},
	{"MAP", ReadOnly, 0.8, "map"},
	{"MIGRATE", Mutating, 0.8, "migrate"},
	{"MODE", Mutating, 0.8, "mode"},
	{"MUSIC", Mutating, 0.8, "music"},
	{"NPC", Mutating, 0.8, "npc"},
	{"PANEL", ReadOnly, 0.8, "panel"},
	{"PLACE", Mutating, 0.8, "place"},
	{"PLAY", Mutating, 0.8, "play"},
	{"READ", ReadOnly, 0.8, "read"},
	{"REBOOT", Destructive, 0.8, "reboot"},
	{"REPAIR", Mutating, 0.8, "repair"},
	{"RULE", Mutating, 0.8, "rule"},
	{"RUN", Mutating, 0.8, "run"},
	{"SAVE", Mutating, 0.8, "save"},
	{"SCHEDULER", Mutating, 0.8, "scheduler"},
	{"SCRIPT", Mutating, 0.8, "script"},
	{"SEND", Mutating, 0.8, "send"},
	{"SETUP", Mutating, 0.8, "setup"},
	{"SKIN", Mutating, 0.8, "skin"},
	{"SONIC", Mutating, 0.8, "sonic"},
	{"SPAWN", Mutating, 0.8, "spawn"},
	{"TELL", ReadOnly, 0.8, "tell"},
	{"THEME", Mutating, 0.8, "theme"},
	{"TOKEN", ReadOnly, 0.8, "token"},
	{"UCODE", Mutating, 0.8, "ucode"},
	{"UID", ReadOnly, 0.8, "uid"},
	{"UNDO", Mutating, 0.8, "undo"},
	{"USER", ReadOnly, 0.8, "user"},
	{"VERIFY", ReadOnly, 0.8, "verify"},
	{"VIEWPORT", ReadOnly, 0.8, "viewport"},
	{"WIZARD", ReadOnly, 0.8, "wizard"},
}

// defaultAliases is the exhaustive alias bridge table from §6. Additive
// only: removing an entry here is a breaking change.
var defaultAliases = map[string]string{
	"RESTART":  "REBOOT",
	"SCHEDULE": "SCHEDULER",
	"TALK":     "SEND",
	"UCLI":     "UCODE",
	"NEW":      "FILE NEW",
	"EDIT":     "FILE EDIT",
}

// Catalog is an immutable snapshot of the canonical command set and alias
// table. Build with New or use Default.
type Catalog struct {
	entries map[string]Entry
	names   stringset.Set
	aliases map[string]string
}

var (
	mu      sync.RWMutex
	current *Catalog
)

func init() {
	current = New(defaultEntries, defaultAliases)
}

// New builds a Catalog from explicit entries and an alias table. Panics if
// an alias source collides with a canonical name or another alias source —
// that's a programmer error in catalog construction, not a runtime input.
func New(entries []Entry, aliases map[string]string) *Catalog {
	names := stringset.New()
	byName := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if names.Contains(e.Name) {
			panic(fmt.Sprintf("catalog: duplicate canonical name %q", e.Name))
		}
		names.Add(e.Name)
		byName[e.Name] = e
	}

	resolved := make(map[string]string, len(aliases))
	for src, target := range aliases {
		if names.Contains(src) {
			panic(fmt.Sprintf("catalog: alias source %q collides with a canonical name", src))
		}
		if !names.Contains(target) {
			panic(fmt.Sprintf("catalog: alias %q targets unknown canonical command %q", src, target))
		}
		resolved[src] = target
	}

	return &Catalog{entries: byName, names: names, aliases: resolved}
}

// Default returns the package-level catalog in effect (the fixed 54-entry
// set, or whatever Swap last installed).
func Default() *Catalog {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Swap atomically replaces the package-level catalog. Readers holding a
// *Catalog obtained before the swap keep seeing the old, immutable snapshot.
func Swap(c *Catalog) {
	mu.Lock()
	current = c
	mu.Unlock()
}

// CanonicalCommands returns the set of canonical command names.
func (c *Catalog) CanonicalCommands() stringset.Set {
	return c.names.Clone()
}

// IsCanonical reports whether name (expected uppercase) is a registered
// canonical command.
func (c *Catalog) IsCanonical(name string) bool {
	return c.names.Contains(name)
}

// ResolveAlias returns the canonical target for a legacy token and true, or
// ("", false) if token is not an alias source. Confidence for a resolved
// alias is always 1.0 per §6 — callers attach that constant themselves.
func (c *Catalog) ResolveAlias(token string) (string, bool) {
	target, ok := c.aliases[token]
	return target, ok
}

// KindOf returns the kind tag for a canonical command. Returns ("", false)
// if name is not canonical.
func (c *Catalog) KindOf(name string) (Kind, bool) {
	e, ok := c.entries[name]
	if !ok {
		return "", false
	}
	return e.Kind, true
}

// ThresholdOf returns the minimum Stage-1 confidence for a canonical
// command to be accepted as a match. Returns (0, false) if name is not
// canonical.
func (c *Catalog) ThresholdOf(name string) (float64, bool) {
	e, ok := c.entries[name]
	if !ok {
		return 0, false
	}
	return e.Threshold, true
}

// HandlerOf returns the registered handler identifier for a canonical
// command. Returns ("", false) if name is not canonical.
func (c *Catalog) HandlerOf(name string) (string, bool) {
	e, ok := c.entries[name]
	if !ok {
		return "", false
	}
	return e.Handler, true
}

// Entries returns a copy of all catalog entries in catalog (declaration)
// order, used for Stage-1 fuzzy-match tie-breaking.
func (c *Catalog) Entries() []Entry {
	// Stable iteration order matters for tie-breaking; entries is a map, so
	// names that appear in defaultEntries come first, in defaultEntries'
	// order. A custom catalog's own slice order is not kept: its other
	// names follow in sorted order below.
	out := make([]Entry, 0, len(c.entries))
	seen := stringset.New()
	for _, e := range defaultEntries {
		if c.names.Contains(e.Name) && !seen.Contains(e.Name) {
			out = append(out, c.entries[e.Name])
			seen.Add(e.Name)
		}
	}
	if len(out) == len(c.entries) {
		return out
	}
	// Custom catalog with names outside defaultEntries: append the rest in
	// an arbitrary but deterministic (sorted) order.
	rest := make([]string, 0, len(c.entries)-len(out))
	for name := range c.entries {
		if !seen.Contains(name) {
			rest = append(rest, name)
		}
	}
	for _, name := range stringset.New(rest...).Elements() {
		out = append(out, c.entries[name])
	}
	return out
}

// AliasSources returns the set of legacy tokens that rewrite to a canonical
// command.
func (c *Catalog) AliasSources() stringset.Set {
	srcs := stringset.New()
	for src := range c.aliases {
		srcs.Add(src)
	}
	return srcs
}
