// Package dispatch implements the three-stage command dispatcher: Stage-1
// canonical/alias/fuzzy matching, Stage-2 shell-passthrough validation, and
// Stage-3 generative-assistant fallback, orchestrated behind a single
// dispatch(request) entry point.
package dispatch

import "time"

// Caller identifies which surface originated a Request.
type Caller string

const (
	CallerInteractive Caller = "interactive"
	CallerHTTP        Caller = "http"
	CallerShell       Caller = "shell"
)

// Status is the outcome of a dispatched request.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusPending Status = "pending"
	StatusSkipped Status = "skipped"
)

// Route is the stage a request was ultimately routed to.
type Route string

const (
	RouteUcode   Route = "ucode"
	RouteShell   Route = "shell"
	RouteVibe    Route = "vibe"
	RouteConfirm Route = "confirm"
	RouteNone    Route = "none"
)

// ContractVersion is the fixed response-envelope contract version.
const ContractVersion = "m1.1"

// RouteOrder is the fixed stage order every response reports.
var RouteOrder = []Route{RouteUcode, RouteShell, RouteVibe}

// Request is the input to dispatch(). Created once at the public-surface
// boundary, read-only for the remainder of its lifetime.
type Request struct {
	ID     string
	Input  string
	Caller Caller

	Debug   bool
	Confirm bool
	DryRun  bool

	// EnvOverrides lets a caller (chiefly tests) substitute specific
	// environment variables without mutating process environment.
	EnvOverrides map[string]string

	// Cancel is closed to cooperatively abort an in-flight Stage-3 call.
	Cancel <-chan struct{}
}

// Env looks up a variable, preferring EnvOverrides, falling back to the
// caller-supplied lookup function (normally os.LookupEnv).
func (r *Request) Env(name string, lookup func(string) (string, bool)) (string, bool) {
	if r.EnvOverrides != nil {
		if v, ok := r.EnvOverrides[name]; ok {
			return v, true
		}
	}
	if lookup == nil {
		return "", false
	}
	return lookup(name)
}

// Decision is one stage's route-trace entry.
type Decision string

const (
	DecisionMatch    Decision = "match"
	DecisionSkip     Decision = "skip"
	DecisionDispatch Decision = "dispatch"
	DecisionFail     Decision = "fail"
)

// RouteTraceEntry records one stage's outcome. Attached to responses only
// when the request asked for debug output.
type RouteTraceEntry struct {
	Stage      int      `json:"stage"`
	Decision   Decision `json:"decision"`
	Reason     string   `json:"reason"`
	Confidence *float64 `json:"confidence,omitempty"`
	ElapsedMS  int64    `json:"elapsed_ms"`
}

// Contract is the fixed envelope metadata every response carries.
type Contract struct {
	Version    string  `json:"version"`
	RouteOrder []Route `json:"route_order"`
}

func defaultContract() Contract {
	return Contract{Version: ContractVersion, RouteOrder: RouteOrder}
}

// ShellPayload is the Stage-2 payload shape.
type ShellPayload struct {
	Command              string   `json:"command"`
	Args                 []string `json:"args"`
	Raw                  string   `json:"raw"`
	ValidationReason     string   `json:"validation_reason"`
	AllowlistEnabled     bool     `json:"allowlist_enabled"`
	BlocklistEnabled     bool     `json:"blocklist_enabled"`
	RequiresConfirmation bool     `json:"requires_confirmation"`
}

// UcodePayload is the Stage-1 payload shape.
type UcodePayload struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// ProviderAttempt is one entry of a Stage-3 failover trace.
type ProviderAttempt struct {
	Provider      string `json:"provider"`
	OK            bool   `json:"ok"`
	FailoverReason string `json:"failover_reason,omitempty"`
}

// VibePayload is the Stage-3 payload shape.
type VibePayload struct {
	Text         string            `json:"text,omitempty"`
	ProviderUsed string            `json:"provider_used,omitempty"`
	Attempts     []ProviderAttempt `json:"attempts,omitempty"`
}

// Debug carries optional diagnostics attached under --dispatch-debug.
type Debug struct {
	RouteTrace []RouteTraceEntry `json:"route_trace,omitempty"`
	Attempts   []ProviderAttempt `json:"attempts,omitempty"`
}

// Response is the tagged-union envelope returned by dispatch().
type Response struct {
	Status     Status       `json:"status"`
	DispatchTo Route        `json:"dispatch_to"`
	Contract   Contract     `json:"contract"`
	Payload    interface{}  `json:"payload,omitempty"`
	Debug      *Debug       `json:"debug,omitempty"`

	// Code and Message are populated when Status is error, mirroring the
	// closed error-kind set in errors.go.
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func newResponse(status Status, route Route) Response {
	return Response{Status: status, DispatchTo: route, Contract: defaultContract()}
}

// clock is a package-level time source. The orchestrator measures elapsed
// durations with time.Now directly and does not read it.
var clock = time.Now
