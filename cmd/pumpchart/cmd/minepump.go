package cmd

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/comalice/pumpchart/internal/logger"
	"github.com/comalice/pumpchart/internal/minepump"
)

var mineOpts struct {
	features string
	steps    int
	cleanup  int
	seed     int64
	rate     float64
}

var minepumpCmd = &cobra.Command{
	Use:   "minepump",
	Short: "Simulate the mine pump product line.",
	Long: `Runs the mine pump with the selected features and checks its five
specifications after every time shift.

Features are a comma-separated subset of highWaterSensor, lowWaterSensor and
methaneAlarm, or "base" for none. With --seed 0 the action sequence is the
fixed remix of an all-false grid; any other seed draws random actions.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		features, err := minepump.ParseFeatures(mineOpts.features)
		if err != nil {
			return err
		}

		var steps []minepump.Actions
		if mineOpts.seed != 0 {
			//nolint:gosec // Simulation input, not security sensitive.
			steps = minepump.RandomActions(rand.New(rand.NewSource(mineOpts.seed)), mineOpts.steps, mineOpts.rate)
		} else {
			steps = minepump.MixedActions([4][4]bool{}, mineOpts.steps)
		}

		ctx = logger.WithKV(logger.WithName(ctx, "minepump"), "features", features.String())
		sys := minepump.NewSystem(features)
		logger.InfoKV(ctx, "mine pump", "steps", len(steps), "cleanup", mineOpts.cleanup)

		runErr := sys.Run(ctx, steps, mineOpts.cleanup)

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render("mine pump ")+dimStyle.Render(features.String()))
		fmt.Fprintln(out, dimStyle.Render("policies ")+fmt.Sprint(sys.Pump.Policies()))
		fmt.Fprintln(out, sys.Env.String()+" "+sys.Pump.String())
		if runErr != nil {
			fmt.Fprintln(out, critStyle.Render("VIOLATION ")+runErr.Error())
			return runErr
		}
		fmt.Fprintln(out, okStyle.Render("OK ")+dimStyle.Render(fmt.Sprintf("%d time shifts", sys.Tick())))
		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	f := minepumpCmd.Flags()
	f.StringVar(&mineOpts.features, "features", minepump.DefaultFeatures.String(), "comma-separated features or base")
	f.IntVar(&mineOpts.steps, "steps", 100, "number of action steps")
	f.IntVar(&mineOpts.cleanup, "cleanup", 10, "time shifts without actions after the steps")
	f.Int64Var(&mineOpts.seed, "seed", 0, "random seed, 0 for the fixed sequence")
	f.Float64Var(&mineOpts.rate, "rate", 0.3, "probability of each random action")

	rootCmd.AddCommand(minepumpCmd)
}
