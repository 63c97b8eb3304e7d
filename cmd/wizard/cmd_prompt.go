package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"uwizard/internal/dispatch"
	"uwizard/internal/engine"
)

var promptDebug bool

// promptCmd is the interactive REPL surface.
var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "start the interactive dispatch prompt",
	RunE:  runPrompt,
}

func init() {
	promptCmd.Flags().BoolVar(&promptDebug, "dispatch-debug", false, "render a compact per-stage route trace after each response")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	fmt.Println("wizard prompt — type a command, Ctrl-D to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		handlePromptLine(eng, line)
	}
	return scanner.Err()
}

func handlePromptLine(eng *engine.Engine, line string) {
	confirm := false
	if strings.HasSuffix(line, " --confirm") {
		confirm = true
		line = strings.TrimSuffix(line, " --confirm")
	}

	req := &dispatch.Request{
		ID:      uuid.NewString(),
		Input:   line,
		Caller:  dispatch.CallerInteractive,
		Debug:   promptDebug,
		Confirm: confirm,
	}
	resp := eng.Dispatch(context.Background(), req)

	renderResponse(resp)
	if promptDebug && resp.Debug != nil {
		renderRouteTrace(resp.Debug.RouteTrace)
	}
}

func renderResponse(resp dispatch.Response) {
	switch resp.Status {
	case dispatch.StatusSuccess:
		fmt.Printf("ok   [%s] %v\n", resp.DispatchTo, resp.Payload)
	case dispatch.StatusPending:
		fmt.Printf("wait [%s] confirmation required — rerun with --confirm\n", resp.DispatchTo)
	case dispatch.StatusSkipped:
		fmt.Printf("skip [%s] dry run, nothing executed\n", resp.DispatchTo)
	case dispatch.StatusError:
		fmt.Printf("err  [%s] %s: %s\n", resp.DispatchTo, resp.Code, resp.Message)
	}
}

// renderRouteTrace prints one line per stage, text only — the theming and
// line-editor layers this would otherwise go through are out of scope here.
func renderRouteTrace(trace []dispatch.RouteTraceEntry) {
	for _, entry := range trace {
		conf := ""
		if entry.Confidence != nil {
			conf = fmt.Sprintf(" confidence=%.2f", *entry.Confidence)
		}
		fmt.Printf("  stage%d %-8s %s%s (%dms)\n", entry.Stage, entry.Decision, entry.Reason, conf, entry.ElapsedMS)
	}
}
