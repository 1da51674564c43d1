package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/comalice/pumpchart/internal/config"
	"github.com/comalice/pumpchart/internal/logger"
	"github.com/comalice/pumpchart/internal/version"
)

var (
	// scenarioPath stores the path to the scenario YAML file.
	scenarioPath string
	// logLevel overrides the scenario's log level when set.
	logLevel string

	// rootCmd represents the base command when called without subcommands.
	rootCmd = &cobra.Command{
		Use:   "pumpchart",
		Short: "Simulate the infusion pump state charts.",
		Long: `Runs the infusion pump's alarm and infusion manager charts against a scenario.

A scenario is a YAML file holding a base stimulus and patches that change
stimulus signals at given ticks. Each control cycle evaluates the alarm chart,
feeds its output to the infusion manager chart and checks the safety
properties. The run stops at the first violated property.

Without a scenario file the built-in basal infusion scenario is used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("log-level") {
				return nil
			}
			return applyLogLevel(logLevel)
		},
	}
)

// Execute runs the pumpchart CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		logger.Error(ctx, err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&scenarioPath, "config", "c", config.DefaultScenarioFilename,
		"path to scenario file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", config.DefaultLogLevel,
		"log level: debug, info, warn, error")
}

func applyLogLevel(s string) error {
	level, ok := logger.ParseLogLevel(s)
	if !ok {
		return fmt.Errorf("unknown log level %q", s)
	}
	logger.SetLevel(level)
	return nil
}

// loadScenario reads the scenario file. A missing default file falls back
// to the built-in scenario; a missing file named on the command line is an
// error.
func loadScenario(cmd *cobra.Command) (*config.Scenario, error) {
	sc, err := config.Load(scenarioPath)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config"):
		logger.Debugf(cmd.Context(), "no scenario at %s, using built-in %q", scenarioPath, config.Default().Name)
		sc = config.Default()
	default:
		return nil, err
	}

	if !cmd.Flags().Changed("log-level") {
		if err := applyLogLevel(sc.LogLevel); err != nil {
			return nil, err
		}
	}
	return sc, nil
}
