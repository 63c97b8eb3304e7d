package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// healCmd runs C9's on-demand probe once and prints what it found.
var healCmd = &cobra.Command{
	Use:   "heal",
	Short: "run the self-heal probe once and report issues",
	RunE:  runHeal,
}

func runHeal(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	report, err := eng.SelfHeal(context.Background())
	if err != nil {
		return err
	}

	if len(report.Issues) == 0 {
		fmt.Println("self-heal: no issues found")
		return nil
	}

	for _, issue := range report.Issues {
		marker := "  "
		if issue.Repairable {
			marker = "* "
		}
		fmt.Printf("%s[%s] %s", marker, issue.Kind, issue.Message)
		if issue.Action != "" {
			fmt.Printf(" (action: %s)", issue.Action)
		}
		fmt.Println()
	}
	return nil
}
