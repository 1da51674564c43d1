package realtime

import (
	"context"
	"sync"

	"github.com/comalice/pumpchart/internal/bus"
)

// Pipeline runs a driver's cycles with the alarm chart and the infusion
// chart on separate goroutines.
//
// The alarm stage waits for the infusion output of the previous cycle
// before it starts, and the infusion stage waits for the alarm output of
// the current one. Each stage therefore owns the driver state while it
// runs and the cycles match Driver.Step exactly.
type Pipeline struct {
	d *Driver
}

// NewPipeline returns a pipeline over d. Driver.Step must not be called
// while the pipeline runs.
func NewPipeline(d *Driver) *Pipeline {
	return &Pipeline{d: d}
}

// Run executes n cycles. It returns the first safety violation, or the
// context error if ctx ends first.
func (p *Pipeline) Run(ctx context.Context, n uint64) error {
	d := p.d
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.halted != nil {
		return d.halted
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feedback := make(chan bus.InfusionManagerOutputs, 1)
	feedback <- d.infusionMem.Out
	work := make(chan handoff)
	errCh := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer close(work)
		for range n {
			var prev bus.InfusionManagerOutputs
			select {
			case <-ctx.Done():
				return
			case prev = <-feedback:
			}
			h := d.alarmPhase(ctx, prev)
			select {
			case <-ctx.Done():
				return
			case work <- h:
			}
		}
	}()

	go func() {
		defer wg.Done()
		for h := range work {
			cycle, err := d.infusionPhase(ctx, h)
			if err != nil {
				errCh <- err
				cancel()
				return
			}
			feedback <- cycle.Infusion
		}
	}()

	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
	}
	return ctx.Err()
}
