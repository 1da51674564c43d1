package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/comalice/pumpchart/internal/config"
	"github.com/comalice/pumpchart/internal/logger"
	"github.com/comalice/pumpchart/realtime"
)

var runOpts struct {
	ticks    uint64
	timed    bool
	pipeline bool
	quiet    bool
	restore  bool
	watch    []string
	snapDir  string
	format   string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario and print the cycle trace.",
	Long: `Runs the scenario's control cycles and prints one table row per cycle.

By default the cycles run back to back. With --timed they run on a ticker at
the scenario's tick rate. With --pipeline the two charts run on separate
goroutines. Snapshots of both charts are written after the run when a snapshot
directory is configured, and --restore resumes from them.

Exits with a non-zero status when a safety property or watch expression fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		sc, err := loadScenario(cmd)
		if err != nil {
			return err
		}
		ctx = logger.WithKV(logger.WithName(ctx, "run"), "scenario", sc.Name)
		if cmd.Flags().Changed("ticks") {
			sc.Ticks = runOpts.ticks
		}
		if cmd.Flags().Changed("snapshot-dir") {
			sc.Snapshot.Dir = runOpts.snapDir
		}
		if cmd.Flags().Changed("format") {
			sc.Snapshot.Format = runOpts.format
		}
		s, err := newSession(ctx, sc, runOpts.watch)
		if err != nil {
			return err
		}
		if runOpts.restore {
			if sc.Snapshot.Dir == "" {
				return fmt.Errorf("--restore needs a snapshot directory")
			}
			if err := s.restoreSnapshots(ctx, sc.Snapshot.Dir, sc.Snapshot.Format); err != nil {
				return err
			}
		}

		start := time.Now()
		runErr := s.run(ctx)
		cycles := s.recorded()

		if !runOpts.quiet {
			fmt.Fprintln(cmd.OutOrStdout(), renderTrace(sc.Name, cycles))
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderSummary(s, runErr))
		logger.InfoKV(ctx, "run finished", "cycles", len(cycles), "elapsed", time.Since(start))

		if sc.Snapshot.Dir != "" {
			if err := s.saveSnapshots(ctx, sc.Snapshot.Dir, sc.Snapshot.Format); err != nil {
				return err
			}
		}
		return runErr
	},
}

// run executes the scenario's cycles in the selected mode.
func (s *session) run(ctx context.Context) error {
	n := s.scenario.Ticks
	switch {
	case runOpts.pipeline:
		return realtime.NewPipeline(s.driver).Run(ctx, n)
	case runOpts.timed:
		return s.runTimed(ctx, n)
	default:
		return s.driver.Run(ctx, n)
	}
}

// runTimed runs the driver's ticker until n more cycles completed or the
// driver halted.
func (s *session) runTimed(ctx context.Context, n uint64) error {
	target := s.driver.Tick() + n
	if err := s.driver.Start(ctx); err != nil {
		return err
	}

	poll := time.NewTicker(s.scenario.TickRate / 2)
	defer poll.Stop()
	for s.driver.Tick() < target && s.driver.Err() == nil {
		select {
		case <-ctx.Done():
			_ = s.driver.Stop()
			return ctx.Err()
		case <-poll.C:
		}
	}
	return s.driver.Stop()
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	f := runCmd.Flags()
	f.Uint64VarP(&runOpts.ticks, "ticks", "n", config.DefaultTicks, "number of cycles, overrides the scenario")
	f.BoolVar(&runOpts.timed, "timed", false, "run cycles on a ticker at the scenario tick rate")
	f.BoolVar(&runOpts.pipeline, "pipeline", false, "run the two charts on separate goroutines")
	f.BoolVarP(&runOpts.quiet, "quiet", "q", false, "print only the summary")
	f.BoolVar(&runOpts.restore, "restore", false, "resume from the snapshots in the snapshot directory")
	f.StringArrayVarP(&runOpts.watch, "watch", "w", nil, `extra expression that must hold, e.g. "alarm.highestLevelAlarm < 4"`)
	f.StringVar(&runOpts.snapDir, "snapshot-dir", "", "directory for chart snapshots, overrides the scenario")
	f.StringVar(&runOpts.format, "format", config.DefaultSnapshotFormat, "snapshot format: json, yaml or proto")

	rootCmd.AddCommand(runCmd)
}
