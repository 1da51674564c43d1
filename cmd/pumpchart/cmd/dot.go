package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comalice/pumpchart/internal/primitives"
	"github.com/comalice/pumpchart/internal/production"
)

var dotOpts struct {
	chart string
	ticks uint64
	json  bool
}

var dotCmd = &cobra.Command{
	Use:   "dot",
	Short: "Export a chart as Graphviz DOT or JSON.",
	Long: `Prints the structure of the alarm or infusion chart.

DOT output highlights the states active after running the scenario for
--ticks cycles; with --ticks 0 nothing is highlighted. JSON output lists
the states and transitions without runtime state.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		sc, err := loadScenario(cmd)
		if err != nil {
			return err
		}
		sc.Ticks = dotOpts.ticks

		s, err := newSession(ctx, sc, nil)
		if err != nil {
			return err
		}
		// A violation still leaves a configuration worth drawing.
		runErr := s.driver.Run(ctx, sc.Ticks)
		_ = s.recorded()

		a, i := s.driver.Memories()
		var (
			desc    primitives.MachineConfig
			current []string
		)
		switch dotOpts.chart {
		case "alarm":
			desc, current = s.alarm.Describe(), s.alarm.Configuration(&a)
		case "infusion":
			desc, current = s.infusion.Describe(), s.infusion.Configuration(&i)
		default:
			return fmt.Errorf("unknown chart %q, want %s or %s", dotOpts.chart, "alarm", "infusion")
		}
		if sc.Ticks == 0 {
			current = nil
		}

		v := &production.DefaultVisualizer{}
		if dotOpts.json {
			data, err := v.ExportJSON(desc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		} else {
			fmt.Fprint(cmd.OutOrStdout(), v.ExportDOT(desc, current))
		}
		return runErr
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	f := dotCmd.Flags()
	f.StringVar(&dotOpts.chart, "chart", "infusion", "chart to export: alarm or infusion")
	f.Uint64VarP(&dotOpts.ticks, "ticks", "n", 0, "cycles to run before exporting the active configuration")
	f.BoolVar(&dotOpts.json, "json", false, "print the chart structure as JSON")

	rootCmd.AddCommand(dotCmd)
}
