package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// newCheckCmd creates the check subcommand
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Evaluate all alerts and take a snapshot",
		Args:  cobra.NoArgs,
		RunE: runWithApp(true, func(ctx context.Context, a *app, args []string) error {
			raised := a.monitor.CheckAllAlerts()
			snapshot := a.monitor.TakeSnapshot()

			fmt.Println("Check complete")
			fmt.Printf("  Coherence:     %.1f\n", snapshot.OverallScore)
			fmt.Printf("  Active agents: %d/%d\n", snapshot.ActiveAgents, snapshot.TotalAgents)
			fmt.Printf("  New alerts:    %d\n", len(raised))
			for _, alert := range raised {
				fmt.Printf("    %s\n", alert.Format())
			}
			return nil
		}),
	}
}

// newSnapshotCmd creates the snapshot subcommand
func newSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Capture a coherence snapshot for trend analysis",
		Args:  cobra.NoArgs,
		RunE: runWithApp(true, func(ctx context.Context, a *app, args []string) error {
			snapshot := a.monitor.TakeSnapshot()
			fmt.Printf("Snapshot taken at %s: score %.1f (%d/%d agents active, %d alerts)\n",
				snapshot.TakenAt.Format("15:04:05"), snapshot.OverallScore,
				snapshot.ActiveAgents, snapshot.TotalAgents, snapshot.AlertsActive)
			return nil
		}),
	}
}
