package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uwizard/internal/catalog"
	"uwizard/internal/provider"
)

type stubHandler struct {
	name string
	kind catalog.Kind
}

func (h stubHandler) Kind() catalog.Kind { return h.kind }

func (h stubHandler) Handle(ctx context.Context, req *Request, args []string) (UcodePayload, *Error) {
	return UcodePayload{Command: h.name, Args: args}, nil
}

func newTestOrchestrator() *Orchestrator {
	cat := catalog.Default()
	handlers := make(HandlerRegistry)
	for _, name := range cat.CanonicalCommands().Elements() {
		kind, _ := cat.KindOf(name)
		handlers[name] = stubHandler{name: name, kind: kind}
	}
	return &Orchestrator{Catalog: cat, Handlers: handlers}
}

// Scenario 1: Input "HEALTH" -> ucode dispatch, command HEALTH, no args.
func TestScenario1HealthDispatchesToUcode(t *testing.T) {
	o := newTestOrchestrator()
	resp := o.Dispatch(context.Background(), &Request{Input: "HEALTH", Caller: CallerInteractive})

	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, RouteUcode, resp.DispatchTo)
	assert.Equal(t, ContractVersion, resp.Contract.Version)
	payload := resp.Payload.(UcodePayload)
	assert.Equal(t, "HEALTH", payload.Command)
	assert.Empty(t, payload.Args)
}

// Scenario 2: Input "RESTART" -> Stage-1 resolves alias to canonical REBOOT.
func TestScenario2RestartResolvesToReboot(t *testing.T) {
	o := newTestOrchestrator()
	resp := o.Dispatch(context.Background(), &Request{Input: "RESTART", Caller: CallerInteractive})

	assert.Equal(t, RouteUcode, resp.DispatchTo)
	payload := resp.Payload.(UcodePayload)
	assert.Equal(t, "REBOOT", payload.Command)
}

// Scenario 3: Input "ls" (builtin safe, read-only) -> shell dispatch, no
// confirmation required.
func TestScenario3LsDispatchesToShellWithoutConfirmation(t *testing.T) {
	o := newTestOrchestrator()
	resp := o.Dispatch(context.Background(), &Request{Input: "ls", Caller: CallerShell})

	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, RouteShell, resp.DispatchTo)
	payload := resp.Payload.(*ShellPayload)
	assert.False(t, payload.RequiresConfirmation)
}

// Scenario 4: Input "mv a b" (allowlisted, non-read-only) without
// --confirm -> pending confirmation.
func TestScenario4MvWithoutConfirmIsPending(t *testing.T) {
	o := newTestOrchestrator()
	o.Shell = ShellPolicy{Allowlist: stringSetOf("mv")}
	resp := o.Dispatch(context.Background(), &Request{Input: "mv a b", Caller: CallerShell})

	assert.Equal(t, StatusPending, resp.Status)
	assert.Equal(t, RouteConfirm, resp.DispatchTo)
	payload := resp.Payload.(*ShellPayload)
	assert.True(t, payload.RequiresConfirmation)
}

func TestScenario4MvWithConfirmExecutes(t *testing.T) {
	o := newTestOrchestrator()
	o.Shell = ShellPolicy{Allowlist: stringSetOf("mv")}
	resp := o.Dispatch(context.Background(), &Request{Input: "mv a b", Caller: CallerShell, Confirm: true})

	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, RouteShell, resp.DispatchTo)
}

// Scenario 5: Input "cat file; rm important" -> Stage-2 metachar_chain,
// falls through to Stage-3; with no provider auth configured ->
// provider_missing_auth.
func TestScenario5MetacharChainFallsThroughToStage3MissingAuth(t *testing.T) {
	o := newTestOrchestrator()
	o.Assistant = provider.NewPolicy(func(string) (string, bool) { return "", false })

	resp := o.Dispatch(context.Background(), &Request{Input: "cat file; rm important", Caller: CallerShell})

	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, string(ErrProviderMissingAuth), resp.Code)
}

func TestDispatchToIsAlwaysOneOfFiveRoutes(t *testing.T) {
	o := newTestOrchestrator()
	o.Assistant = provider.NewPolicy(func(string) (string, bool) { return "", false })

	valid := map[Route]bool{RouteUcode: true, RouteShell: true, RouteVibe: true, RouteConfirm: true, RouteNone: true}
	for _, input := range []string{"HEALTH", "ls", "mv a b", "totally unknown free text"} {
		resp := o.Dispatch(context.Background(), &Request{Input: input, Caller: CallerInteractive})
		assert.True(t, valid[resp.DispatchTo], "unexpected route %q for input %q", resp.DispatchTo, input)
		assert.Equal(t, ContractVersion, resp.Contract.Version)
	}
}

func TestRouteTraceOnlyAttachedWhenDebugRequested(t *testing.T) {
	o := newTestOrchestrator()
	resp := o.Dispatch(context.Background(), &Request{Input: "HEALTH", Caller: CallerInteractive})
	assert.Nil(t, resp.Debug)

	resp = o.Dispatch(context.Background(), &Request{Input: "HEALTH", Caller: CallerInteractive, Debug: true})
	require.NotNil(t, resp.Debug)
	assert.NotEmpty(t, resp.Debug.RouteTrace)
	for i := 1; i < len(resp.Debug.RouteTrace); i++ {
		assert.GreaterOrEqual(t, resp.Debug.RouteTrace[i].Stage, resp.Debug.RouteTrace[i-1].Stage)
	}
}
