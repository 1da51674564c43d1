package minepump

import (
	"context"
	"math/rand"
)

// Actions are the environment and operator events before one time shift.
type Actions struct {
	WaterRise     bool `json:"waterRise" yaml:"waterRise"`
	MethaneChange bool `json:"methaneChange" yaml:"methaneChange"`
	Start         bool `json:"start" yaml:"start"`
	Stop          bool `json:"stop" yaml:"stop"`
}

// Step applies a then advances one time shift. Start takes precedence
// over Stop.
func (s *System) Step(ctx context.Context, a Actions) error {
	if a.WaterRise {
		s.WaterRise()
	}
	if a.MethaneChange {
		s.MethaneChange()
	}
	switch {
	case a.Start:
		if err := s.StartSystem(); err != nil {
			return err
		}
	case a.Stop:
		if err := s.StopSystem(); err != nil {
			return err
		}
	}
	return s.TimeShift(ctx)
}

// Run applies every step in order, then cleanup bare time shifts. It
// stops at the first error.
func (s *System) Run(ctx context.Context, steps []Actions, cleanup int) error {
	for _, a := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(ctx, a); err != nil {
			return err
		}
	}
	for range cleanup {
		if err := s.TimeShift(ctx); err != nil {
			return err
		}
	}
	return nil
}

// MixedActions derives a reproducible action sequence from a 4x4 seed
// grid. The first four steps are the grid's rows. Each later step remixes
// the grid in place and takes its diagonal.
func MixedActions(grid [4][4]bool, steps int) []Actions {
	out := make([]Actions, 0, 4+steps)
	for _, row := range grid {
		out = append(out, Actions{WaterRise: row[0], MethaneChange: row[1], Start: row[2], Stop: row[3]})
	}

	g := &grid
	for range steps {
		g[0][0] = !g[1][1] || g[2][2]
		g[0][1] = g[1][0] && !g[2][0]
		g[0][2] = !g[1][0] || g[3][3]
		g[0][3] = g[0][0] && !g[0][2]
		g[1][0] = !g[2][0] && g[2][1]
		g[1][1] = g[0][0] || !g[2][2]
		g[1][2] = !g[2][1] || g[0][2]
		g[1][3] = g[1][0] && !g[3][2]
		g[2][0] = !g[0][2] && g[1][3]
		g[2][1] = g[1][2] || !g[3][0]
		g[2][2] = !g[0][0] || g[1][1]
		g[2][3] = g[2][0] && !g[2][2]
		g[3][0] = !g[0][3] || g[2][2]
		g[3][1] = g[1][3] && !g[1][2]
		g[3][2] = !g[2][3] && g[0][0]
		g[3][3] = g[2][2] || !g[1][1]
		out = append(out, Actions{WaterRise: g[0][0], MethaneChange: g[1][1], Start: g[2][2], Stop: g[3][3]})
	}
	return out
}

// RandomActions returns n steps drawn from rng. Each event fires with
// probability rate.
func RandomActions(rng *rand.Rand, n int, rate float64) []Actions {
	out := make([]Actions, n)
	for i := range out {
		out[i] = Actions{
			WaterRise:     rng.Float64() < rate,
			MethaneChange: rng.Float64() < rate,
			Start:         rng.Float64() < rate,
			Stop:          rng.Float64() < rate,
		}
	}
	return out
}
