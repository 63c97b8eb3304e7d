// Package engine wires the dispatcher, provider policy, admin-secret
// contract, self-heal probe, and session log into the single public
// surface (C11) every caller — the interactive prompt, the local HTTP
// server, and the shell entry point — consumes. Replaces the source's
// process-global singletons with one explicit value constructed once at
// startup (spec.md §9 "Global mutable state").
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"uwizard/internal/catalog"
	"uwizard/internal/contract"
	"uwizard/internal/dispatch"
	"uwizard/internal/logging"
	"uwizard/internal/provider"
	"uwizard/internal/selfheal"
	"uwizard/internal/sessionlog"
	"uwizard/internal/transport"
	"uwizard/internal/wizconfig"
)

// Paths locates every artifact an Engine persists to, all rooted under one
// workspace directory (spec.md §3 "Persisted state layout").
type Paths struct {
	Workspace string
}

func (p Paths) dotDir() string         { return filepath.Join(p.Workspace, ".wizard") }
func (p Paths) envFile() string        { return filepath.Join(p.dotDir(), "env") }
func (p Paths) serverConfig() string   { return filepath.Join(p.dotDir(), "wizard.json") }
func (p Paths) secretStore() string    { return filepath.Join(p.dotDir(), "secrets.tomb") }
func (p Paths) sessionLogPath() string { return filepath.Join(p.dotDir(), "state", "session.log.jsonl") }

// Options configures a new Engine. ModelEndpoint, DefaultModel, Tier and
// TierModels feed the self-heal prober; everything else is derived from
// Paths and the on-disk server config.
type Options struct {
	Paths         Paths
	ModelEndpoint string
	DefaultModel  string
	Tier          selfheal.Tier
	TierModels    map[selfheal.Tier][]string
	SelfHealEvery time.Duration
}

// Engine is C11: the stable function set {dispatch, contract_status,
// repair_contract, self_heal} every surface consumes, and nothing past it.
type Engine struct {
	paths Paths

	catalog      *catalog.Catalog
	orchestrator *dispatch.Orchestrator
	contract     *contract.Contract
	prober       *selfheal.Prober
	healthRunner *selfheal.Runner
	sessionLog   *sessionlog.Log
	adminToken   string
}

// New constructs an Engine: loads the server config and env file, feeds the
// config's provider chain into the provider lookup, builds the handler
// registry from the catalog, and opens the session log. The shell policy is
// the zero value (built-in safe set). New captures one snapshot of the
// config; Engine has no reload method, so later file changes are not picked
// up by an existing Engine.
func New(opts Options) (*Engine, error) {
	if opts.Paths.Workspace == "" {
		return nil, fmt.Errorf("engine: workspace path required")
	}
	if err := logging.Initialize(opts.Paths.Workspace); err != nil {
		return nil, fmt.Errorf("engine: init logging: %w", err)
	}

	sc, err := wizconfig.LoadServerConfig(opts.Paths.serverConfig())
	if err != nil {
		return nil, fmt.Errorf("engine: load server config: %w", err)
	}

	envEntries, err := wizconfig.ReadEnvFile(opts.Paths.envFile())
	if err != nil {
		return nil, fmt.Errorf("engine: read env file: %w", err)
	}
	if _, explicit := envEntries["VIBE_CLOUD_PROVIDER_CHAIN"]; !explicit && len(sc.ProviderChain) > 0 {
		envEntries["VIBE_CLOUD_PROVIDER_CHAIN"] = strings.Join(sc.ProviderChain, ",")
	}
	lookup := wizconfig.EnvLookup(envEntries)

	cat := catalog.Default()
	handlers := defaultHandlers(cat)

	shellPolicy := dispatch.ShellPolicy{}
	policy := provider.NewPolicy(lookup)

	orch := &dispatch.Orchestrator{
		Catalog:   cat,
		Handlers:  handlers,
		Shell:     shellPolicy,
		Assistant: policy,
	}

	ct := contract.New(opts.Paths.envFile(), opts.Paths.serverConfig(), opts.Paths.secretStore())

	adminToken := envEntries["WIZARD_ADMIN_TOKEN"]

	prober := &selfheal.Prober{
		Client:       &transport.Client{},
		Endpoint:     opts.ModelEndpoint,
		DefaultModel: opts.DefaultModel,
		Tier:         opts.Tier,
		TierModels:   opts.TierModels,
	}

	interval := opts.SelfHealEvery
	if interval <= 0 {
		interval = time.Minute
	}
	runner := selfheal.NewRunner(prober, interval)

	redactors := sessionlog.DefaultRedactors(adminToken)
	sl, err := sessionlog.Open(opts.Paths.sessionLogPath(), redactors)
	if err != nil {
		return nil, fmt.Errorf("engine: open session log: %w", err)
	}

	return &Engine{
		paths:        opts.Paths,
		catalog:      cat,
		orchestrator: orch,
		contract:     ct,
		prober:       prober,
		healthRunner: runner,
		sessionLog:   sl,
		adminToken:   adminToken,
	}, nil
}

// StartBackgroundProbe begins the self-heal ticker. Optional: callers that
// only want on-demand SelfHeal checks need not call this.
func (e *Engine) StartBackgroundProbe(ctx context.Context) {
	e.healthRunner.Start(ctx)
}

// Close releases the session log's file and index handles and stops the
// background self-heal ticker if it was started.
func (e *Engine) Close() error {
	e.healthRunner.Stop()
	return e.sessionLog.Close()
}

// Dispatch implements C11's dispatch(request) → response. It runs the
// three-stage orchestrator, then records the outcome to the session log
// — the only shared mutation point concurrent dispatches serialize on
// (spec.md §5).
func (e *Engine) Dispatch(ctx context.Context, req *dispatch.Request) dispatch.Response {
	start := time.Now()
	resp := e.orchestrator.Dispatch(ctx, req)
	elapsed := time.Since(start)

	failover := ""
	if resp.Debug != nil && len(resp.Debug.Attempts) > 0 {
		last := resp.Debug.Attempts[len(resp.Debug.Attempts)-1]
		if !last.OK {
			failover = last.FailoverReason
		}
	}

	entry := sessionlog.NewEntry(string(req.Caller), req.Input, resp.DispatchTo, resp.Status, elapsed, failover)
	command := commandOf(resp)
	if err := e.sessionLog.Record(entry, command); err != nil {
		logging.Get(logging.CategorySessionLog).Warn("failed to record session log entry: %v", err)
	}

	return resp
}

func commandOf(resp dispatch.Response) string {
	switch p := resp.Payload.(type) {
	case dispatch.UcodePayload:
		return p.Command
	case *dispatch.UcodePayload:
		return p.Command
	case dispatch.ShellPayload:
		return p.Command
	case *dispatch.ShellPayload:
		return p.Command
	default:
		return string(resp.DispatchTo)
	}
}

// ContractStatus implements C11's contract_status().
func (e *Engine) ContractStatus(ctx context.Context) (contract.Status, error) {
	return e.contract.Status(ctx)
}

// RepairContract implements C11's repair_contract().
func (e *Engine) RepairContract(ctx context.Context) (contract.RepairResult, error) {
	return e.contract.Repair(ctx)
}

// SelfHeal implements C11's self_heal(): a fresh, on-demand probe run
// rather than the last value the background ticker published, so an
// explicit call always reflects current state.
func (e *Engine) SelfHeal(ctx context.Context) (selfheal.Report, error) {
	return e.prober.Check(ctx)
}

// SelfHealLatest returns the most recent background-ticker report without
// blocking on a probe round trip. Zero value until StartBackgroundProbe has
// ticked at least once.
func (e *Engine) SelfHealLatest() selfheal.Report {
	return e.healthRunner.Latest()
}

// SessionSummary exposes C10's summary() aggregate counters.
func (e *Engine) SessionSummary() (sessionlog.Counters, error) {
	return e.sessionLog.Summary()
}

// Catalog returns the immutable command catalog, for surfaces that render
// help text or validate input before calling Dispatch.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}
