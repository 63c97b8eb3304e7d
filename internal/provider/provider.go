// Package provider implements the cloud-provider failover policy: an
// ordered chain of remote generative backends, shaped per API style and
// classified into typed failover reasons on the way to the most actionable
// error when the whole chain is exhausted.
package provider

import (
	"os"
	"strings"
)

// APIStyle is the request/response shape a provider speaks.
type APIStyle string

const (
	StyleOpenAIChat        APIStyle = "openai_chat"
	StyleAnthropicMessages APIStyle = "anthropic_messages"
	StyleGeminiGenerate    APIStyle = "gemini_generate"
)

// Descriptor is an immutable per-backend definition.
type Descriptor struct {
	ID           string
	APIStyle     APIStyle
	Endpoint     string
	AuthEnvVar   string
	DefaultModel string
}

// descriptors is the fixed set of five defined providers.
var descriptors = map[string]Descriptor{
	"mistral": {
		ID:           "mistral",
		APIStyle:     StyleOpenAIChat,
		Endpoint:     "https://api.mistral.ai/v1/chat/completions",
		AuthEnvVar:   "MISTRAL_API_KEY",
		DefaultModel: "mistral-large-latest",
	},
	"openrouter": {
		ID:           "openrouter",
		APIStyle:     StyleOpenAIChat,
		Endpoint:     "https://openrouter.ai/api/v1/chat/completions",
		AuthEnvVar:   "OPENROUTER_API_KEY",
		DefaultModel: "anthropic/claude-3.5-sonnet",
	},
	"openai": {
		ID:           "openai",
		APIStyle:     StyleOpenAIChat,
		Endpoint:     "https://api.openai.com/v1/chat/completions",
		AuthEnvVar:   "OPENAI_API_KEY",
		DefaultModel: "gpt-4o",
	},
	"anthropic": {
		ID:           "anthropic",
		APIStyle:     StyleAnthropicMessages,
		Endpoint:     "https://api.anthropic.com/v1/messages",
		AuthEnvVar:   "ANTHROPIC_API_KEY",
		DefaultModel: "claude-sonnet-4-5-20250514",
	},
	"gemini": {
		ID:           "gemini",
		APIStyle:     StyleGeminiGenerate,
		Endpoint:     "https://generativelanguage.googleapis.com/v1beta/models",
		AuthEnvVar:   "GEMINI_API_KEY",
		DefaultModel: "gemini-2.0-flash",
	},
}

// defaultChain is the built-in order used when no env override resolves.
var defaultChain = []string{"mistral", "openrouter", "openai", "anthropic", "gemini"}

// DescriptorFor returns the descriptor for a provider id, or (zero, false).
func DescriptorFor(id string) (Descriptor, bool) {
	d, ok := descriptors[id]
	return d, ok
}

// EnvLookup matches os.LookupEnv's signature, overridable in tests.
type EnvLookup func(string) (string, bool)

// ResolveChain implements §3's chain-resolution order: explicit chain env →
// primary+secondary envs → built-in default order.
func ResolveChain(lookup EnvLookup) []string {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if explicit, ok := lookup("VIBE_CLOUD_PROVIDER_CHAIN"); ok && strings.TrimSpace(explicit) != "" {
		var chain []string
		for _, id := range strings.Split(explicit, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, known := descriptors[id]; known {
				chain = append(chain, id)
			}
		}
		if len(chain) > 0 {
			return chain
		}
	}

	var chain []string
	seen := make(map[string]bool)
	if primary, ok := lookup("VIBE_PRIMARY_CLOUD_PROVIDER"); ok && primary != "" {
		if _, known := descriptors[primary]; known && !seen[primary] {
			chain = append(chain, primary)
			seen[primary] = true
		}
	}
	if secondary, ok := lookup("VIBE_SECONDARY_CLOUD_PROVIDER"); ok && secondary != "" {
		if _, known := descriptors[secondary]; known && !seen[secondary] {
			chain = append(chain, secondary)
			seen[secondary] = true
		}
	}
	if len(chain) > 0 {
		// Primary/secondary are a prefix; the remaining default-order
		// providers fill out the rest of the chain so failover still has
		// somewhere to go after the pinned choices are exhausted.
		for _, id := range defaultChain {
			if !seen[id] {
				chain = append(chain, id)
				seen[id] = true
			}
		}
		return chain
	}

	out := make([]string, len(defaultChain))
	copy(out, defaultChain)
	return out
}
