// Package main implements the wizard CLI: the shell entry point, the
// interactive prompt, and the local HTTP server that together consume the
// engine's public surface (dispatch, contract_status, repair_contract,
// self_heal) and nothing past it.
//
// # File Index
//
//   - main.go          - entry point, rootCmd, global flags, engine construction
//   - cmd_dispatch.go  - `wizard dispatch`, the shell entry point and its exit codes
//   - cmd_prompt.go    - `wizard prompt`, the interactive REPL
//   - cmd_serve.go     - `wizard serve`, the loopback HTTP surface
//   - cmd_contract.go  - `wizard contract status|repair|watch`
//   - cmd_heal.go      - `wizard heal`
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"uwizard/internal/engine"
	"uwizard/internal/logging"
	"uwizard/internal/selfheal"
)

var (
	verbose       bool
	workspace     string
	modelEndpoint string
	defaultModel  string
	tier          string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "wizard",
	Short: "wizard - offline-first command dispatch and provider-routing console",
	Long: `wizard classifies input and routes it to exactly one of three stages:
a canonical command catalog, a validated shell passthrough, or a cloud
generative-assistant fallback, entirely from the local loopback boundary.

Run a subcommand (dispatch, prompt, serve, contract, heal) to use the
engine; running wizard with no subcommand starts the interactive prompt.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		if abs, err := filepath.Abs(ws); err == nil {
			workspace = abs
		}

		if err := logging.Initialize(workspace); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize category logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPrompt(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&modelEndpoint, "model-endpoint", "http://127.0.0.1:11434", "loopback model-service endpoint for self-heal probes")
	rootCmd.PersistentFlags().StringVar(&defaultModel, "default-model", "", "default model name self-heal expects present")
	rootCmd.PersistentFlags().StringVar(&tier, "tier", "", "required-model tier (tier2, tier3)")

	rootCmd.AddCommand(dispatchCmd, promptCmd, serveCmd, contractCmd, healCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildEngine constructs the one Engine value every subcommand shares,
// replacing the source's process-global singletons (spec.md §9).
func buildEngine() (*engine.Engine, error) {
	var t selfheal.Tier
	switch tier {
	case "tier2":
		t = selfheal.Tier2
	case "tier3":
		t = selfheal.Tier3
	}

	return engine.New(engine.Options{
		Paths:         engine.Paths{Workspace: workspace},
		ModelEndpoint: modelEndpoint,
		DefaultModel:  defaultModel,
		Tier:          t,
		SelfHealEvery: 2 * time.Minute,
	})
}
