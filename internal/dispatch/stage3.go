package dispatch

import (
	"context"

	"uwizard/internal/logging"
	"uwizard/internal/provider"
)

// AssistantClient is C5's contract: ask(prompt, context, cancel) → {text,
// provider_used, attempts[]} | error. Implemented by *provider.Policy in
// production; tests substitute a stub.
type AssistantClient interface {
	Call(ctx context.Context, prompt string, cancel <-chan struct{}) (provider.Result, error)
}

// askStage3 delegates to C7 via the AssistantClient, translating its
// result/error into the dispatch package's own vocabulary.
func askStage3(ctx context.Context, client AssistantClient, input string, cancel <-chan struct{}) (VibePayload, *Error) {
	log := logging.Get(logging.CategoryStage3)

	toAttempts := func(in []provider.Attempt) []ProviderAttempt {
		out := make([]ProviderAttempt, 0, len(in))
		for _, a := range in {
			out = append(out, ProviderAttempt{
				Provider:       a.Provider,
				OK:             a.OK,
				FailoverReason: string(a.Reason),
			})
		}
		return out
	}

	res, err := client.Call(ctx, input, cancel)
	if err != nil {
		if _, cancelled := err.(*provider.ErrCancelled); cancelled {
			log.Warn("stage3 cancelled")
			return VibePayload{}, newError(ErrCancelled, "request cancelled during provider call")
		}
		if polErr, ok := err.(*provider.PolicyError); ok {
			log.Warn("stage3 chain exhausted reason=%s", polErr.Reason)
			return VibePayload{Attempts: toAttempts(polErr.Attempts)}, translateFailoverReason(polErr.Reason)
		}
		return VibePayload{}, newError(ErrInternal, "stage3: %v", err)
	}

	return VibePayload{Text: res.Text, ProviderUsed: res.ProviderUsed, Attempts: toAttempts(res.Attempts)}, nil
}

func translateFailoverReason(reason provider.FailoverReason) *Error {
	switch reason {
	case provider.ReasonMissingAuth:
		return newError(ErrProviderMissingAuth, "no provider in the chain has auth configured")
	case provider.ReasonAuthError:
		return newError(ErrProviderAuthError, "provider chain exhausted on auth errors")
	case provider.ReasonRateLimit:
		return newError(ErrProviderRateLimit, "provider chain exhausted on rate limits")
	case provider.ReasonUnreachable:
		return newError(ErrProviderUnreachable, "provider chain exhausted: unreachable")
	case provider.ReasonInvalidResponse:
		return newError(ErrProviderInvalidResp, "provider chain exhausted: invalid response")
	default:
		return newError(ErrInternal, "unclassified provider failure: %s", reason)
	}
}
