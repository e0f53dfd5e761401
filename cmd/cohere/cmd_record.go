package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/willibrandon/cohere/internal/coherence"
)

// newRegisterCmd creates the register subcommand
func newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register NAME",
		Short: "Register an agent for monitoring",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(true, func(ctx context.Context, a *app, args []string) error {
			name := a.monitor.RegisterAgent(args[0])
			fmt.Printf("Registered agent: %s\n", name)
			return nil
		}),
	}
}

// newRecordMentionCmd creates the record-mention subcommand
func newRecordMentionCmd() *cobra.Command {
	var acknowledged bool

	cmd := &cobra.Command{
		Use:   "record-mention NAME",
		Short: "Record a mention event for an agent",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(true, func(ctx context.Context, a *app, args []string) error {
			a.monitor.RecordMention(args[0], acknowledged)
			fmt.Printf("Recorded mention for %s\n", coherence.NormalizeAgentName(args[0]))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&acknowledged, "ack", false, "mark the mention as acknowledged")
	return cmd
}

// newRecordResponseCmd creates the record-response subcommand
func newRecordResponseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record-response NAME LATENCY_SECONDS",
		Short: "Record a response latency for an agent",
		Args:  cobra.ExactArgs(2),
		RunE: runWithApp(true, func(ctx context.Context, a *app, args []string) error {
			latency, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid latency %q: %w", args[1], err)
			}
			if err := a.monitor.RecordResponse(args[0], latency); err != nil {
				return err
			}
			fmt.Printf("Recorded %.2fs response for %s\n", latency, coherence.NormalizeAgentName(args[0]))
			return nil
		}),
	}
}

// newRecordClaimCmd creates the record-claim subcommand
func newRecordClaimCmd() *cobra.Command {
	var correct bool

	cmd := &cobra.Command{
		Use:   "record-claim NAME",
		Short: "Record a claim accuracy event for an agent",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(true, func(ctx context.Context, a *app, args []string) error {
			a.monitor.RecordClaim(args[0], correct)
			status := "incorrect"
			if correct {
				status = "correct"
			}
			fmt.Printf("Recorded %s claim for %s\n", status, coherence.NormalizeAgentName(args[0]))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&correct, "correct", false, "the claim was verified correct")
	return cmd
}

// newRecordActivityCmd creates the record-activity subcommand
func newRecordActivityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record-activity NAME",
		Short: "Record agent activity",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(true, func(ctx context.Context, a *app, args []string) error {
			a.monitor.RecordActivity(args[0])
			fmt.Printf("Recorded activity for %s\n", coherence.NormalizeAgentName(args[0]))
			return nil
		}),
	}
}

// newRecordAckCmd creates the record-ack subcommand
func newRecordAckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record-ack NAME",
		Short: "Record a late acknowledgment of a prior mention",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(true, func(ctx context.Context, a *app, args []string) error {
			a.monitor.RecordAcknowledgment(args[0])
			fmt.Printf("Recorded acknowledgment for %s\n", coherence.NormalizeAgentName(args[0]))
			return nil
		}),
	}
}

// newRecordErrorCmd creates the record-error subcommand
func newRecordErrorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record-error NAME",
		Short: "Record a detected error for an agent",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(true, func(ctx context.Context, a *app, args []string) error {
			a.monitor.RecordError(args[0])
			fmt.Printf("Recorded error for %s\n", coherence.NormalizeAgentName(args[0]))
			return nil
		}),
	}
}
