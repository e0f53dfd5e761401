package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/willibrandon/cohere/internal/coherence"
	"github.com/willibrandon/cohere/internal/config"
	"github.com/willibrandon/cohere/internal/logger"
	"github.com/willibrandon/cohere/internal/storage/sqlite"
)

var (
	// Version info (set by ldflags)
	version = "dev"

	// Flags
	debug bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cohere",
		Short: "Coordination health monitor for multi-agent teams",
		Long: `cohere tracks coordination events for a team of collaborating agents
(mentions, acknowledgments, response latencies, claim accuracy) and computes
a single 0-100 coherence score with threshold-based alerting.

Recording:
  cohere register NAME              Register an agent
  cohere record-mention NAME        Record a mention (--ack if acknowledged)
  cohere record-response NAME SECS  Record a response latency
  cohere record-claim NAME          Record a claim (--correct if verified)
  cohere record-activity NAME       Record generic activity
  cohere record-ack NAME            Record a late acknowledgment
  cohere record-error NAME          Record a detected error

Inspection:
  cohere dashboard [--compact]      Show the team dashboard
  cohere score                      Show the team coherence score
  cohere agents / agent NAME        List agents / show one agent
  cohere alerts [--severity S]      List active alerts
  cohere trend [--minutes N]        Show score trend
  cohere check                      Evaluate alerts and take a snapshot`,
		Version: version,
	}

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newRegisterCmd(),
		newRecordMentionCmd(),
		newRecordResponseCmd(),
		newRecordClaimCmd(),
		newRecordActivityCmd(),
		newRecordAckCmd(),
		newRecordErrorCmd(),
		newDashboardCmd(),
		newScoreCmd(),
		newAgentsCmd(),
		newAgentCmd(),
		newAlertsCmd(),
		newTrendCmd(),
		newCheckCmd(),
		newSnapshotCmd(),
		newImportCmd(),
		newExportCmd(),
		newClearAlertsCmd(),
		newResetCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		// Error already printed by cobra
		os.Exit(1)
	}
}

// app bundles the configured monitor and its backing store for one command
// invocation.
type app struct {
	cfg     *config.Config
	db      *sqlite.DB
	monitor *coherence.Monitor
}

// openApp loads configuration, initializes logging, opens the state
// database, and restores the monitor.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	level := logger.ParseLevel(cfg.Log.Level)
	if debug {
		level = logger.LevelDebug
	}
	logger.InitLogger(level, cfg.Log.Path)

	db, err := sqlite.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	monitor, err := coherence.New(cfg.Thresholds)
	if err != nil {
		db.Close()
		return nil, err
	}
	monitor.SetStore(sqlite.NewStateStore(db))

	if err := monitor.Load(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &app{cfg: cfg, db: db, monitor: monitor}, nil
}

// close releases the database and log file.
func (a *app) close() {
	a.db.Close()
	logger.Close()
}

// save persists monitor state.
func (a *app) save(ctx context.Context) error {
	return a.monitor.Save(ctx)
}

// trendWindow returns the configured trend analysis window.
func (a *app) trendWindow() time.Duration {
	return time.Duration(a.cfg.TrendWindowMinutes) * time.Minute
}

// runWithApp wraps a command body with app setup and teardown. When
// persist is true, monitor state is saved after the body succeeds.
func runWithApp(persist bool, body func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if err := body(ctx, a, args); err != nil {
			return err
		}
		if persist {
			return a.save(ctx)
		}
		return nil
	}
}
