package engine

import (
	"context"

	"uwizard/internal/catalog"
	"uwizard/internal/dispatch"
)

// passthroughHandler is the uniform Stage-1 handler: the dispatch contract
// for a ucode route is just {command, args} (spec.md §8 scenario 1), since
// executing a canonical command's actual effect is outside this engine's
// boundary — the catalog only needs to resolve a name, not run it.
type passthroughHandler struct {
	name string
	kind catalog.Kind
}

func (h passthroughHandler) Kind() catalog.Kind { return h.kind }

func (h passthroughHandler) Handle(ctx context.Context, req *dispatch.Request, args []string) (dispatch.UcodePayload, *dispatch.Error) {
	return dispatch.UcodePayload{Command: h.name, Args: args}, nil
}

// defaultHandlers builds a HandlerRegistry with one passthroughHandler per
// catalog entry, satisfying the catalog-parity invariant (spec.md §8:
// "set(canonical_commands()) == set(registered_handlers())").
func defaultHandlers(cat *catalog.Catalog) dispatch.HandlerRegistry {
	handlers := make(dispatch.HandlerRegistry)
	for _, entry := range cat.Entries() {
		handlers[entry.Name] = passthroughHandler{name: entry.Name, kind: entry.Kind}
	}
	return handlers
}
