package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"uwizard/internal/dispatch"
)

var (
	dispatchConfirm bool
	dispatchDryRun  bool
	dispatchDebug   bool
)

// dispatchCmd is the shell entry point: one invocation, one dispatch, one
// exit code (spec.md §6).
var dispatchCmd = &cobra.Command{
	Use:   "dispatch [input...]",
	Short: "dispatch one command and exit with the matching status code",
	Long: `dispatch classifies the given input and routes it to exactly one of
ucode, shell, vibe, or confirm, printing the response envelope as JSON.

Exit codes: 0 success, 2 input validation failed, 3 confirmation required,
4 remote failure after the provider chain is exhausted, 5 the admin-secret
contract is unrepairable.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDispatch,
}

func init() {
	dispatchCmd.Flags().BoolVar(&dispatchConfirm, "confirm", false, "confirm a pending non-read-only shell command")
	dispatchCmd.Flags().BoolVar(&dispatchDryRun, "dry-run", false, "validate and trace without executing a shell command")
	dispatchCmd.Flags().BoolVar(&dispatchDebug, "dispatch-debug", false, "attach the per-stage route trace to the response")
}

func runDispatch(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	req := &dispatch.Request{
		ID:      uuid.NewString(),
		Input:   strings.Join(args, " "),
		Caller:  dispatch.CallerShell,
		Debug:   dispatchDebug,
		Confirm: dispatchConfirm,
		DryRun:  dispatchDryRun,
	}

	resp := eng.Dispatch(context.Background(), req)

	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	fmt.Println(string(data))

	os.Exit(exitCodeFor(resp))
	return nil
}

// exitCodeFor maps a dispatch response to the shell-entry exit code
// (spec.md §6).
func exitCodeFor(resp dispatch.Response) int {
	if resp.Status == dispatch.StatusPending && resp.DispatchTo == dispatch.RouteConfirm {
		return 3
	}
	if resp.Status != dispatch.StatusError {
		return 0
	}

	switch dispatch.ErrorKind(resp.Code) {
	case dispatch.ErrInputInvalid, dispatch.ErrNoMatch, dispatch.ErrShellBlocked, dispatch.ErrNonLoopbackTarget:
		return 2
	case dispatch.ErrContractUnrepairable:
		return 5
	case dispatch.ErrProviderMissingAuth, dispatch.ErrProviderAuthError, dispatch.ErrProviderRateLimit,
		dispatch.ErrProviderUnreachable, dispatch.ErrProviderInvalidResp, dispatch.ErrCancelled:
		return 4
	default:
		return 2
	}
}
