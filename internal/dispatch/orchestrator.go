package dispatch

import (
	"context"
	"time"

	"uwizard/internal/catalog"
	"uwizard/internal/logging"
)

// Handler executes a matched canonical command. Selected from a registry
// keyed by canonical name; the catalog is the single source of truth that
// registry must match (§9 Design Notes: "Polymorphism over command
// handlers").
type Handler interface {
	Kind() catalog.Kind
	Handle(ctx context.Context, req *Request, args []string) (UcodePayload, *Error)
}

// HandlerRegistry maps canonical command names to their Handler.
type HandlerRegistry map[string]Handler

// Orchestrator is C6: runs Stage-1 → Stage-2 → Stage-3 in fixed order,
// emits route-trace, enforces the confirmation gate.
type Orchestrator struct {
	Catalog  *catalog.Catalog
	Handlers HandlerRegistry
	Shell    ShellPolicy
	Assistant AssistantClient
}

// Dispatch implements C11's dispatch(request) → response.
func (o *Orchestrator) Dispatch(ctx context.Context, req *Request) Response {
	log := logging.Get(logging.CategoryDispatch)
	var trace []RouteTraceEntry

	record := func(stage int, decision Decision, reason string, confidence *float64, elapsed time.Duration) {
		if !req.Debug {
			return
		}
		trace = append(trace, RouteTraceEntry{
			Stage: stage, Decision: decision, Reason: reason,
			Confidence: confidence, ElapsedMS: elapsed.Milliseconds(),
		})
	}
	finish := func(resp Response) Response {
		if req.Debug && len(trace) > 0 {
			if resp.Debug == nil {
				resp.Debug = &Debug{}
			}
			resp.Debug.RouteTrace = trace
		}
		return resp
	}

	cat := o.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	// Stage 1: canonical/alias/fuzzy match.
	start := time.Now()
	m := matchStage1(cat, req.Input)
	threshold := 0.8
	if t, ok := cat.ThresholdOf(m.Command); ok {
		threshold = t
	}
	if m.Command != "" && m.Confidence >= threshold {
		conf := m.Confidence
		record(1, DecisionMatch, m.Reason, &conf, time.Since(start))
		log.Info("stage1 matched command=%s confidence=%.2f", m.Command, m.Confidence)

		handler, ok := o.Handlers[m.Command]
		if !ok {
			err := newError(ErrInternal, "no handler registered for canonical command %q", m.Command)
			record(1, DecisionFail, "handler_not_registered", nil, 0)
			return finish(errorResponse(RouteNone, err))
		}

		payload, herr := handler.Handle(ctx, req, m.Args)
		if herr != nil {
			record(1, DecisionFail, herr.Code(), nil, 0)
			return finish(errorResponse(RouteUcode, herr))
		}
		record(1, DecisionDispatch, "handled", nil, 0)
		resp := newResponse(StatusSuccess, RouteUcode)
		resp.Payload = payload
		return finish(resp)
	}
	record(1, DecisionSkip, "no_match", nil, time.Since(start))

	// Stage 2: shell passthrough.
	start = time.Now()
	sr := validateStage2(o.Shell, req.Input)
	if sr.Safe {
		record(2, DecisionMatch, sr.Reason, nil, time.Since(start))

		if sr.Payload.RequiresConfirmation && !req.Confirm {
			record(2, DecisionDispatch, "confirm_pending", nil, 0)
			resp := newResponse(StatusPending, RouteConfirm)
			resp.Payload = sr.Payload
			return finish(resp)
		}

		if req.DryRun {
			record(2, DecisionDispatch, "dry_run", nil, 0)
			resp := newResponse(StatusSkipped, RouteShell)
			resp.Payload = sr.Payload
			return finish(resp)
		}

		record(2, DecisionDispatch, "executed", nil, 0)
		resp := newResponse(StatusSuccess, RouteShell)
		resp.Payload = sr.Payload
		return finish(resp)
	}
	record(2, DecisionSkip, sr.Reason, nil, time.Since(start))

	// Stage 3: generative-assistant fallback via C7.
	start = time.Now()
	if o.Assistant == nil {
		err := newError(ErrProviderMissingAuth, "no assistant client configured")
		record(3, DecisionFail, err.Code(), nil, time.Since(start))
		return finish(errorResponse(RouteVibe, err))
	}

	payload, err := askStage3(ctx, o.Assistant, req.Input, req.Cancel)
	if err != nil {
		record(3, DecisionFail, err.Code(), nil, time.Since(start))
		resp := errorResponse(RouteVibe, err)
		if len(payload.Attempts) > 0 {
			resp.Debug = &Debug{Attempts: payload.Attempts}
		}
		return finish(resp)
	}
	record(3, DecisionDispatch, "answered", nil, time.Since(start))
	resp := newResponse(StatusSuccess, RouteVibe)
	resp.Payload = payload
	return finish(resp)
}
