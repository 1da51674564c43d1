package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/comalice/pumpchart"
	"github.com/comalice/pumpchart/internal/alarm"
	"github.com/comalice/pumpchart/internal/bus"
	"github.com/comalice/pumpchart/internal/config"
	"github.com/comalice/pumpchart/internal/infusion"
	"github.com/comalice/pumpchart/internal/logger"
	"github.com/comalice/pumpchart/internal/safety"
)

// ErrQueueFull is returned by Schedule when the pending patch queue is at
// capacity.
var ErrQueueFull = errors.New("patch queue full")

// Publisher receives every cycle record.
type Publisher interface {
	Publish(ctx context.Context, cycle bus.Cycle) error
}

// Config configures a Driver.
type Config struct {
	TickRate          time.Duration // cycle period for Start (default 100ms)
	MaxPendingPatches int           // patch queue capacity (default 1000)
	Base              bus.Stimulus
	Patches           []config.Patch
	Publisher         Publisher
	Signals           *pumpchart.Signals
	Monitor           *safety.Monitor // default checks safety.Properties
}

// Driver runs the alarm chart and then the infusion chart once per cycle.
type Driver struct {
	alarm     *alarm.Chart
	infusion  *infusion.Chart
	monitor   *safety.Monitor
	publisher Publisher
	signals   *pumpchart.Signals

	// guards chart memory and the stimulus for the duration of a cycle
	mu          sync.Mutex
	alarmMem    alarm.Memory
	infusionMem infusion.Memory
	stimulus    bus.Stimulus
	tickNum     uint64
	halted      error

	// Patch batching
	pending     []PatchWithMeta
	batchMu     sync.Mutex
	maxPending  int
	sequenceNum uint64

	// Control, guarded by mu
	tickRate   time.Duration
	ticker     *time.Ticker
	tickCancel context.CancelFunc
	stopped    chan struct{}
}

// NewDriver creates a driver with both charts initialised and cfg.Patches
// scheduled.
func NewDriver(a *alarm.Chart, i *infusion.Chart, cfg Config) (*Driver, error) {
	if cfg.MaxPendingPatches == 0 {
		cfg.MaxPendingPatches = 1000
	}
	if cfg.TickRate == 0 {
		cfg.TickRate = config.DefaultTickRate
	}
	if cfg.Monitor == nil {
		cfg.Monitor = safety.New(a, i)
	}

	d := &Driver{
		alarm:       a,
		infusion:    i,
		monitor:     cfg.Monitor,
		publisher:   cfg.Publisher,
		signals:     cfg.Signals,
		alarmMem:    a.NewMemory(),
		infusionMem: i.NewMemory(),
		stimulus:    cfg.Base,
		pending:     make([]PatchWithMeta, 0, len(cfg.Patches)),
		maxPending:  cfg.MaxPendingPatches,
		tickRate:    cfg.TickRate,
	}
	a.Init(&d.alarmMem)
	i.Init(&d.infusionMem)

	for n, p := range cfg.Patches {
		if err := d.Schedule(p); err != nil {
			return nil, fmt.Errorf("patch %d: %w", n, err)
		}
	}
	return d, nil
}

// Schedule queues a patch. A patch whose tick has already passed applies
// on the next cycle. The patch is checked against the current stimulus
// and rejected if it names an unknown signal or leaves 0..255.
func (d *Driver) Schedule(p config.Patch) error {
	d.mu.Lock()
	probe := d.stimulus
	d.mu.Unlock()

	if err := config.ApplyTick(&probe, []config.Patch{p}); err != nil {
		return err
	}
	if err := config.CheckBounds(&probe); err != nil {
		return err
	}

	d.batchMu.Lock()
	defer d.batchMu.Unlock()

	if len(d.pending) >= d.maxPending {
		return ErrQueueFull
	}

	d.pending = append(d.pending, PatchWithMeta{Patch: p, SequenceNum: d.sequenceNum})
	d.sequenceNum++

	return nil
}

// Run executes n cycles back to back. It stops early on a safety
// violation or when ctx is done.
func (d *Driver) Run(ctx context.Context, n uint64) error {
	for range n {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := d.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Start runs one cycle per tick until Stop is called, ctx is done or a
// safety violation halts the driver. A stopped driver may be started
// again.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ticker != nil {
		return errors.New("driver already started")
	}

	tickCtx, cancel := context.WithCancel(ctx)
	d.ticker = time.NewTicker(d.tickRate)
	d.tickCancel = cancel
	d.stopped = make(chan struct{})

	go d.tickLoop(tickCtx, d.ticker, d.stopped)

	return nil
}

// Stop stops the tick loop and waits for the current cycle to finish. It
// returns the error that halted the driver, if any.
func (d *Driver) Stop() error {
	d.mu.Lock()
	ticker, cancel, stopped := d.ticker, d.tickCancel, d.stopped
	d.ticker, d.tickCancel, d.stopped = nil, nil, nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ticker != nil {
		ticker.Stop()
	}
	if stopped != nil {
		<-stopped
	}
	return d.Err()
}

func (d *Driver) tickLoop(ctx context.Context, ticker *time.Ticker, stopped chan struct{}) {
	defer close(stopped)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.safeStep(ctx); err != nil {
				return
			}
		}
	}
}

// safeStep runs one cycle, turning a panic in chart code into a halt.
func (d *Driver) safeStep(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panicked: %v", r)
			logger.ErrorKV(ctx, "cycle panicked", "panic", r)
			d.mu.Lock()
			d.halted = err
			d.mu.Unlock()
		}
	}()
	_, err = d.Step(ctx)
	return err
}

// Err returns the error that halted the driver, or nil.
func (d *Driver) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.halted
}

// Tick returns the number of completed cycles.
func (d *Driver) Tick() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tickNum
}

// Stimulus returns the stimulus in effect for the last cycle.
func (d *Driver) Stimulus() bus.Stimulus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stimulus
}

// Memories returns copies of both charts' working memory.
func (d *Driver) Memories() (alarm.Memory, infusion.Memory) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, i := d.alarmMem, d.infusionMem
	a.Chart = a.Chart.Clone()
	i.Chart = i.Chart.Clone()
	return a, i
}

// Restore replaces both charts' working memory and the cycle counter, e.g.
// from persisted snapshots. It also clears a halt.
func (d *Driver) Restore(a alarm.Memory, i infusion.Memory, tick uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alarmMem, d.infusionMem = a, i
	d.alarmMem.Chart = a.Chart.Clone()
	d.infusionMem.Chart = i.Chart.Clone()
	d.tickNum = tick
	d.halted = nil
}
