package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/willibrandon/cohere/internal/coherence"
	"github.com/willibrandon/cohere/internal/dashboard"
)

// newDashboardCmd creates the dashboard subcommand
func newDashboardCmd() *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the team coordination dashboard",
		Args:  cobra.NoArgs,
		RunE: runWithApp(false, func(ctx context.Context, a *app, args []string) error {
			report := a.monitor.Status(a.trendWindow())
			fmt.Print(dashboard.Render(report, compact))
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&compact, "compact", "c", false, "show the compact view")
	return cmd
}

// newScoreCmd creates the score subcommand
func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Show the team coherence score",
		Args:  cobra.NoArgs,
		RunE: runWithApp(false, func(ctx context.Context, a *app, args []string) error {
			score, ok := a.monitor.CoherenceScore()
			if !ok {
				fmt.Println("No agents registered")
				return nil
			}
			fmt.Printf("Team coherence: %.1f/100\n", score)
			return nil
		}),
	}
}

// newAgentsCmd creates the agents subcommand
func newAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List registered agents with their scores",
		Args:  cobra.NoArgs,
		RunE: runWithApp(false, func(ctx context.Context, a *app, args []string) error {
			names := a.monitor.ListAgents()
			if len(names) == 0 {
				fmt.Println("No agents registered")
				return nil
			}
			scores := a.monitor.AgentScores()
			fmt.Printf("Registered agents (%d):\n", len(names))
			for _, name := range names {
				fmt.Printf("  %-12s %5.1f\n", name, scores[name])
			}
			return nil
		}),
	}
}

// newAgentCmd creates the agent subcommand
func newAgentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agent NAME",
		Short: "Show detailed metrics for one agent",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(false, func(ctx context.Context, a *app, args []string) error {
			metrics, ok := a.monitor.GetAgentMetrics(args[0])
			if !ok {
				return fmt.Errorf("agent not found: %s", coherence.NormalizeAgentName(args[0]))
			}

			status := "Inactive"
			if metrics.IsActive {
				status = "Active"
			}
			fmt.Printf("Agent: %s\n", metrics.Name)
			fmt.Printf("  Coherence score:  %.1f\n", metrics.Score)
			fmt.Printf("  Ack rate:         %.1f%% (%d/%d)\n",
				metrics.AckRate, metrics.MentionsAcked, metrics.MentionsTotal)
			fmt.Printf("  Avg latency:      %.2fs\n", metrics.AvgLatency)
			fmt.Printf("  Context fidelity: %.1f%%\n", metrics.ContextFidelity)
			fmt.Printf("  Messages:         %d\n", metrics.MessageCount)
			fmt.Printf("  Errors:           %d\n", metrics.ErrorsTotal)
			fmt.Printf("  Status:           %s\n", status)
			return nil
		}),
	}
}

// newAlertsCmd creates the alerts subcommand
func newAlertsCmd() *cobra.Command {
	var severity string

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List active alerts",
		Args:  cobra.NoArgs,
		RunE: runWithApp(false, func(ctx context.Context, a *app, args []string) error {
			filter := coherence.Severity(severity)
			if severity != "" && !filter.IsValid() {
				return fmt.Errorf("invalid severity %q (want INFO, WARNING, or CRITICAL)", severity)
			}

			alerts := a.monitor.Alerts(filter)
			if len(alerts) == 0 {
				fmt.Println("No active alerts")
				return nil
			}
			fmt.Printf("Active alerts (%d):\n", len(alerts))
			for _, alert := range alerts {
				fmt.Printf("  %s\n", alert.Format())
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&severity, "severity", "s", "", "filter by severity (INFO, WARNING, CRITICAL)")
	return cmd
}

// newTrendCmd creates the trend subcommand
func newTrendCmd() *cobra.Command {
	var minutes int

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show the coherence score trend",
		Args:  cobra.NoArgs,
		RunE: runWithApp(false, func(ctx context.Context, a *app, args []string) error {
			window := a.trendWindow()
			if minutes > 0 {
				window = time.Duration(minutes) * time.Minute
			}

			trend := a.monitor.Trend(window)
			fmt.Printf("Trend (%s): %s\n", window, trend.Direction)
			fmt.Printf("  Change:  %+.1f\n", trend.Change)
			fmt.Printf("  Samples: %d\n", trend.Samples)
			fmt.Printf("  Min/Max: %.1f / %.1f\n", trend.MinScore, trend.MaxScore)
			fmt.Printf("  Average: %.1f\n", trend.AvgScore)
			return nil
		}),
	}
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 0, "trend window in minutes (default from config)")
	return cmd
}
