package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"uwizard/internal/contract"
)

// contractCmd is the parent command for the admin-secret contract: its
// drift status, repair, and a polling watch mode — mirroring the teacher's
// `auth status` command shape, retargeted at the env/server-config/secret
// store triad instead of CLI engine credentials.
var contractCmd = &cobra.Command{
	Use:   "contract",
	Short: "inspect or repair the admin-secret contract",
}

var contractStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "show the admin-secret contract's current drift",
	RunE:  runContractStatus,
}

var contractRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "repair any admin-secret contract drift",
	RunE:  runContractRepair,
}

var contractWatchInterval time.Duration

var contractWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "poll contract status on an interval until interrupted",
	RunE:  runContractWatch,
}

func init() {
	contractWatchCmd.Flags().DurationVar(&contractWatchInterval, "interval", 10*time.Second, "poll interval")
	contractCmd.AddCommand(contractStatusCmd, contractRepairCmd, contractWatchCmd)
}

func runContractStatus(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	status, err := eng.ContractStatus(context.Background())
	if err != nil {
		return err
	}
	printContractStatus(status.OK, status.Drift, status.RepairActions)
	return nil
}

func runContractRepair(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.RepairContract(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("repair: ok=%v performed=%v residual=%v\n", result.OK, result.Performed, result.ResidualDrift)
	if !result.OK {
		return fmt.Errorf("contract still has residual drift after repair: %v", result.ResidualDrift)
	}
	return nil
}

func runContractWatch(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	ticker := time.NewTicker(contractWatchInterval)
	defer ticker.Stop()

	poll := func() error {
		status, err := eng.ContractStatus(context.Background())
		if err != nil {
			return err
		}
		printContractStatus(status.OK, status.Drift, status.RepairActions)
		return nil
	}
	if err := poll(); err != nil {
		return err
	}
	for range ticker.C {
		if err := poll(); err != nil {
			return err
		}
	}
	return nil
}

func printContractStatus(ok bool, drift []contract.DriftKind, actions []string) {
	if ok {
		fmt.Println("contract: ok, no drift")
		return
	}
	fmt.Printf("contract: drift=%v\n", drift)
	for _, action := range actions {
		fmt.Printf("  repair action: %s\n", action)
	}
}
