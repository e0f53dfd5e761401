package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/willibrandon/cohere/internal/importers"
)

// newImportCmd creates the import subcommand
func newImportCmd() *cobra.Command {
	var tool string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import events from a coordination tool export",
		Long: `Import events from a foreign tool's JSON export.

Supported tools:
  mentionguard   mention/acknowledgment events
  liveaudit      audited issues (counted as incorrect claims + errors)
  postmortem     per-agent grades (converted to claim batches)`,
		Args: cobra.ExactArgs(1),
		RunE: runWithApp(true, func(ctx context.Context, a *app, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read export file: %w", err)
			}

			var count int
			switch tool {
			case "mentionguard":
				count, err = importers.MentionGuard(a.monitor, data)
			case "liveaudit":
				count, err = importers.LiveAudit(a.monitor, data)
			case "postmortem":
				count, err = importers.PostMortem(a.monitor, data)
			default:
				return fmt.Errorf("unknown tool %q (want mentionguard, liveaudit, or postmortem)", tool)
			}
			if err != nil {
				return err
			}

			fmt.Printf("Imported %d events from %s\n", count, tool)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&tool, "tool", "t", "mentionguard", "export format (mentionguard, liveaudit, postmortem)")
	return cmd
}

// newExportCmd creates the export subcommand
func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export all monitor data as JSON",
		Args:  cobra.NoArgs,
		RunE: runWithApp(false, func(ctx context.Context, a *app, args []string) error {
			doc := a.monitor.Export(a.trendWindow())

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("encode export: %w", err)
			}
			return nil
		}),
	}
}

// newClearAlertsCmd creates the clear-alerts subcommand
func newClearAlertsCmd() *cobra.Command {
	var agent string

	cmd := &cobra.Command{
		Use:   "clear-alerts",
		Short: "Clear active alerts",
		Args:  cobra.NoArgs,
		RunE: runWithApp(true, func(ctx context.Context, a *app, args []string) error {
			cleared := a.monitor.ClearAlerts(agent)
			fmt.Printf("Cleared %d alerts\n", cleared)
			return nil
		}),
	}
	cmd.Flags().StringVar(&agent, "agent", "", "only clear alerts for this agent")
	return cmd
}

// newResetCmd creates the reset subcommand
func newResetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset all monitoring data",
		Args:  cobra.NoArgs,
		RunE: runWithApp(true, func(ctx context.Context, a *app, args []string) error {
			if !force {
				return fmt.Errorf("refusing to reset without --force")
			}
			a.monitor.Reset()
			fmt.Println("All monitoring data reset")
			return nil
		}),
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirm the reset")
	return cmd
}
