package provider

import (
	"context"
	"net/http"
	"time"

	"uwizard/internal/logging"
)

// Attempt records one chain entry's outcome, mirroring the
// dispatch.ProviderAttempt wire shape without importing internal/dispatch
// (this package stays a leaf the way C7 is a leaf of C5 in the component
// table).
type Attempt struct {
	Provider string
	OK       bool
	Reason   FailoverReason
}

// Result is C7's success shape.
type Result struct {
	Text         string
	ProviderUsed string
	Attempts     []Attempt
}

// PolicyError is returned when every provider in the chain has failed.
type PolicyError struct {
	Reason   FailoverReason
	Attempts []Attempt
}

func (e *PolicyError) Error() string {
	return "provider chain exhausted: " + string(e.Reason)
}

// ErrCancelled is returned when the caller's cancellation signal fires
// mid-chain.
type ErrCancelled struct{ Attempts []Attempt }

func (e *ErrCancelled) Error() string { return "provider chain call cancelled" }

// Policy resolves the provider chain on every Call and walks it in order. Holding
// an explicit struct (rather than a free function over package globals)
// matches the engine's "no global singletons" construction throughout.
type Policy struct {
	Lookup     EnvLookup
	HTTPClient httpDoer
	Timeout    time.Duration
}

func NewPolicy(lookup EnvLookup) *Policy {
	return &Policy{
		Lookup:     lookup,
		HTTPClient: &http.Client{},
		Timeout:    30 * time.Second,
	}
}

// Call implements C7's call(prompt, context, cancel) contract. cancel, if
// non-nil, cooperatively aborts the in-flight attempt and stops the chain;
// the policy itself never retries a provider that already answered.
func (p *Policy) Call(ctx context.Context, prompt string, cancel <-chan struct{}) (Result, error) {
	log := logging.Get(logging.CategoryProvider)
	chain := ResolveChain(p.Lookup)

	lookup := p.Lookup
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}

	var attempts []Attempt
	var reasons []FailoverReason

	for _, id := range chain {
		select {
		case <-cancel:
			log.Warn("provider chain cancelled before attempting %s", id)
			return Result{}, &ErrCancelled{Attempts: attempts}
		default:
		}

		d, ok := DescriptorFor(id)
		if !ok {
			continue
		}

		apiKey, present := lookup(d.AuthEnvVar)
		if !present || apiKey == "" {
			attempts = append(attempts, Attempt{Provider: id, OK: false, Reason: ReasonMissingAuth})
			reasons = append(reasons, ReasonMissingAuth)
			log.Debug("provider %s missing auth, advancing chain", id)
			continue
		}

		attemptCtx, stop := withCancelChan(ctx, cancel)
		res, err := callProvider(attemptCtx, p.HTTPClient, d, apiKey, "", prompt, p.Timeout)
		stop()

		if err != nil {
			select {
			case <-cancel:
				return Result{}, &ErrCancelled{Attempts: attempts}
			default:
			}
			attempts = append(attempts, Attempt{Provider: id, OK: false, Reason: ReasonUnreachable})
			reasons = append(reasons, ReasonUnreachable)
			log.Warn("provider %s unreachable: %v", id, err)
			continue
		}

		if res.Status >= 400 {
			reason := classifyStatus(res.Status)
			attempts = append(attempts, Attempt{Provider: id, OK: false, Reason: reason})
			reasons = append(reasons, reason)
			log.Warn("provider %s failed status=%d reason=%s", id, res.Status, reason)
			continue
		}

		text, parseErr := parseResponse(d.APIStyle, res.Body)
		if parseErr != nil {
			attempts = append(attempts, Attempt{Provider: id, OK: false, Reason: ReasonInvalidResponse})
			reasons = append(reasons, ReasonInvalidResponse)
			log.Warn("provider %s invalid response: %v", id, parseErr)
			continue
		}

		attempts = append(attempts, Attempt{Provider: id, OK: true})
		return Result{Text: text, ProviderUsed: id, Attempts: attempts}, nil
	}

	reason := ReasonMissingAuth
	if len(reasons) > 0 {
		reason = mostSevere(reasons)
	}
	return Result{}, &PolicyError{Reason: reason, Attempts: attempts}
}

// withCancelChan adapts a <-chan struct{} cancellation signal onto a
// context so callProvider's context.WithTimeout composes with it.
func withCancelChan(parent context.Context, cancel <-chan struct{}) (context.Context, func()) {
	if cancel == nil {
		return parent, func() {}
	}
	ctx, stop := context.WithCancel(parent)
	done := make(chan struct{})
	go func() {
		select {
		case <-cancel:
			stop()
		case <-done:
		}
	}()
	return ctx, func() { close(done); stop() }
}
