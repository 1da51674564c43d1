package testutil

import (
	"context"

	"github.com/comalice/pumpchart/internal/alarm"
	"github.com/comalice/pumpchart/internal/infusion"
	"github.com/comalice/pumpchart/realtime"
)

// CycleRunner provides a common interface for the sequential driver and the
// two-goroutine pipeline. This allows running the same test suite on both.
type CycleRunner interface {
	Run(ctx context.Context, n uint64) error
	Tick() uint64
	Memories() (alarm.Memory, infusion.Memory)
	Err() error
}

// DriverRunner runs cycles with Driver.Run.
type DriverRunner struct {
	*realtime.Driver
}

// NewDriverRunner creates a runner for a fresh driver over new charts.
func NewDriverRunner(cfg realtime.Config) (*DriverRunner, error) {
	d, err := newDriver(cfg)
	if err != nil {
		return nil, err
	}
	return &DriverRunner{Driver: d}, nil
}

// PipelineRunner runs cycles with Pipeline.Run.
type PipelineRunner struct {
	*realtime.Driver
	p *realtime.Pipeline
}

// NewPipelineRunner creates a runner for a pipeline over a fresh driver.
func NewPipelineRunner(cfg realtime.Config) (*PipelineRunner, error) {
	d, err := newDriver(cfg)
	if err != nil {
		return nil, err
	}
	return &PipelineRunner{Driver: d, p: realtime.NewPipeline(d)}, nil
}

func (r *PipelineRunner) Run(ctx context.Context, n uint64) error {
	return r.p.Run(ctx, n)
}

func newDriver(cfg realtime.Config) (*realtime.Driver, error) {
	a, err := alarm.New()
	if err != nil {
		return nil, err
	}
	i, err := infusion.New()
	if err != nil {
		return nil, err
	}
	return realtime.NewDriver(a, i, cfg)
}
