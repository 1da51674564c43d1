package realtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comalice/pumpchart"
	"github.com/comalice/pumpchart/internal/alarm"
	"github.com/comalice/pumpchart/internal/bus"
	"github.com/comalice/pumpchart/internal/config"
	"github.com/comalice/pumpchart/internal/infusion"
	"github.com/comalice/pumpchart/internal/safety"
	"github.com/comalice/pumpchart/realtime"
	"github.com/comalice/pumpchart/testutil"
)

// recorder keeps every published cycle.
type recorder struct {
	mu     sync.Mutex
	cycles []bus.Cycle
}

func (r *recorder) Publish(_ context.Context, c bus.Cycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, c)
	return nil
}

func (r *recorder) all() []bus.Cycle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bus.Cycle(nil), r.cycles...)
}

func charts(t *testing.T) (*alarm.Chart, *infusion.Chart) {
	t.Helper()
	a, err := alarm.New()
	require.NoError(t, err)
	i, err := infusion.New()
	require.NoError(t, err)
	return a, i
}

func newDriver(t *testing.T, cfg realtime.Config) *realtime.Driver {
	t.Helper()
	a, i := charts(t)
	d, err := realtime.NewDriver(a, i, cfg)
	require.NoError(t, err)
	return d
}

func TestDriverDefaultScenario(t *testing.T) {
	sc := config.Default()
	board := pumpchart.NewSignals()
	d := newDriver(t, realtime.Config{Base: sc.Base, Patches: sc.Patches, Signals: board})
	ctx := context.Background()

	for tick := range sc.Ticks {
		c, err := d.Step(ctx)
		require.NoError(t, err)
		require.Equal(t, tick, c.Tick)
		require.Equal(t, int32(1), c.Alarm.HighestLevelAlarm, "tick %d", tick)
		require.NotEmpty(t, c.AlarmState)
		require.NotEmpty(t, c.InfusionState)

		mode := c.Infusion.CurrentSystemMode
		switch {
		case tick == 0:
			require.Equal(t, infusion.ModeIdle, mode)
		case tick >= 2 && tick < 20, tick >= 26:
			require.Contains(t, []int32{infusion.ModeBasal, infusion.ModeIntermittentBolus}, mode, "tick %d", tick)
			require.Positive(t, c.Infusion.CommandedFlowRate)
		case tick >= 20 && tick < 25:
			require.Equal(t, infusion.ModeManualPausedKVO, mode, "tick %d", tick)
			require.Equal(t, sc.Base.Config.FlowRateKVO, c.Infusion.CommandedFlowRate)
			require.True(t, c.Stimulus.Operator.InfusionInhibit)
		}
	}

	require.Equal(t, sc.Ticks, d.Tick())
	require.NoError(t, d.Err())

	v, ok := board.Get("tick")
	require.True(t, ok)
	require.EqualValues(t, sc.Ticks-1, v)
	v, ok = board.Get("stimulus.operator.infusionInhibit")
	require.True(t, ok)
	require.Zero(t, v)
}

func TestDriverPublishes(t *testing.T) {
	sc := config.Default()
	rec := &recorder{}
	d := newDriver(t, realtime.Config{Base: sc.Base, Patches: sc.Patches, Publisher: rec})

	require.NoError(t, d.Run(context.Background(), 10))

	cycles := rec.all()
	require.Len(t, cycles, 10)
	for n, c := range cycles {
		require.EqualValues(t, n, c.Tick)
	}
}

func TestDriverPatchOrdering(t *testing.T) {
	sc := config.Default()
	d := newDriver(t, realtime.Config{Base: sc.Base})
	ctx := context.Background()

	// Same tick: higher priority first, then submission order.
	require.NoError(t, d.Schedule(config.Patch{At: 1, Set: map[string]any{"config.flowRateBasal": 20}}))
	require.NoError(t, d.Schedule(config.Patch{At: 1, Priority: 5, Set: map[string]any{"config.flowRateBasal": 30}}))
	require.NoError(t, d.Schedule(config.Patch{At: 1, Priority: 5, Set: map[string]any{"config.flowRateBasal": 40}}))
	// Later tick overrides.
	require.NoError(t, d.Schedule(config.Patch{At: 3, Set: map[string]any{"config.flowRateBasal": 50}}))

	_, err := d.Step(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 10, d.Stimulus().Config.FlowRateBasal)

	_, err = d.Step(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 30, d.Stimulus().Config.FlowRateBasal)

	require.NoError(t, d.Run(ctx, 2))
	require.EqualValues(t, 50, d.Stimulus().Config.FlowRateBasal)
}

func TestDriverLatePatchAppliesNextCycle(t *testing.T) {
	sc := config.Default()
	d := newDriver(t, realtime.Config{Base: sc.Base})
	ctx := context.Background()

	require.NoError(t, d.Run(ctx, 5))
	require.NoError(t, d.Schedule(config.Patch{At: 2, Set: map[string]any{"operator.infusionInhibit": true}}))

	c, err := d.Step(ctx)
	require.NoError(t, err)
	require.True(t, c.Stimulus.Operator.InfusionInhibit)
	require.Equal(t, infusion.ModeManualPausedKVO, c.Infusion.CurrentSystemMode)
}

func TestDriverScheduleRejects(t *testing.T) {
	sc := config.Default()
	d := newDriver(t, realtime.Config{Base: sc.Base, MaxPendingPatches: 1})

	err := d.Schedule(config.Patch{At: 1, Set: map[string]any{"config.flowRateBasal": 300}})
	require.ErrorIs(t, err, config.ErrOutOfRange)

	err = d.Schedule(config.Patch{At: 1, Set: map[string]any{"config.noSuchSignal": 1}})
	require.Error(t, err)

	require.NoError(t, d.Schedule(config.Patch{At: 1, Set: map[string]any{"config.flowRateBasal": 20}}))
	err = d.Schedule(config.Patch{At: 2, Set: map[string]any{"config.flowRateBasal": 25}})
	require.ErrorIs(t, err, realtime.ErrQueueFull)

	a, i := charts(t)
	_, err = realtime.NewDriver(a, i, realtime.Config{
		Base:    sc.Base,
		Patches: []config.Patch{{At: 1, Set: map[string]any{"config.flowRateBasal": -1}}},
	})
	require.ErrorIs(t, err, config.ErrOutOfRange)
}

func TestDriverSafetyHalt(t *testing.T) {
	sc := config.Default()
	a, i := charts(t)
	mon := safety.New(a, i)
	mon.Add(safety.Property{
		Name: "stop-at-three",
		Check: func(_ *safety.Monitor, s *safety.Sample) string {
			if s.Tick == 3 {
				return "tick three"
			}
			return ""
		},
	})
	d, err := realtime.NewDriver(a, i, realtime.Config{Base: sc.Base, Monitor: mon})
	require.NoError(t, err)
	ctx := context.Background()

	err = d.Run(ctx, 10)
	var v *pumpchart.SafetyViolation
	require.ErrorAs(t, err, &v)
	require.ErrorIs(t, err, pumpchart.ErrSafetyViolation)
	require.Equal(t, "stop-at-three", v.Property)
	require.EqualValues(t, 3, v.Tick)
	require.EqualValues(t, 4, d.Tick())
	require.EqualValues(t, 4, mon.Checked())

	_, again := d.Step(ctx)
	require.Equal(t, err, again)
	require.Equal(t, err, d.Err())
	require.EqualValues(t, 4, d.Tick())
}

func TestDriverRunCancelled(t *testing.T) {
	sc := config.Default()
	d := newDriver(t, realtime.Config{Base: sc.Base})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, d.Run(ctx, 5), context.Canceled)
	require.Zero(t, d.Tick())
}

func TestDriverStartStop(t *testing.T) {
	sc := config.Default()
	d := newDriver(t, realtime.Config{Base: sc.Base, TickRate: time.Millisecond})

	require.NoError(t, d.Start(context.Background()))
	require.Error(t, d.Start(context.Background()))

	require.Eventually(t, func() bool { return d.Tick() >= 5 }, 2*time.Second, time.Millisecond)
	require.NoError(t, d.Stop())

	stopped := d.Tick()
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, stopped, d.Tick())
}

func TestDriverRestart(t *testing.T) {
	sc := config.Default()
	d := newDriver(t, realtime.Config{Base: sc.Base, TickRate: time.Millisecond})
	ctx := context.Background()

	for range 2 {
		from := d.Tick()
		require.NoError(t, d.Start(ctx))
		require.Eventually(t, func() bool { return d.Tick() >= from+3 }, 2*time.Second, time.Millisecond)
		require.NoError(t, d.Stop())
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Start(ctx)
			_ = d.Stop()
		}()
	}
	wg.Wait()
	require.NoError(t, d.Stop())

	require.NoError(t, d.Start(ctx))
	require.NoError(t, d.Stop())
	require.NoError(t, d.Err())
}

func TestDriverRestore(t *testing.T) {
	sc := config.Default()
	ctx := context.Background()

	first := &recorder{}
	d := newDriver(t, realtime.Config{Base: sc.Base, Patches: sc.Patches, Publisher: first})
	require.NoError(t, d.Run(ctx, 10))
	a, i := d.Memories()

	second := &recorder{}
	r := newDriver(t, realtime.Config{Base: sc.Base, Patches: sc.Patches, Publisher: second})
	r.Restore(a, i, d.Tick())

	require.NoError(t, d.Run(ctx, 20))
	require.NoError(t, r.Run(ctx, 20))
	require.Equal(t, first.all()[10:], second.all())
}

func TestPipelineMatchesDriver(t *testing.T) {
	for seed := range int64(8) {
		gen := testutil.NewStimulusGen(seed)
		base := gen.Stimulus()
		patches := gen.Sequence(60)

		seq, par := &recorder{}, &recorder{}
		d := newDriver(t, realtime.Config{Base: base, Patches: patches, Publisher: seq})
		p := newDriver(t, realtime.Config{Base: base, Patches: patches, Publisher: par})

		errSeq := d.Run(context.Background(), 60)
		errPar := realtime.NewPipeline(p).Run(context.Background(), 60)

		require.Equal(t, errSeq, errPar, "seed %d", seed)
		require.Equal(t, seq.all(), par.all(), "seed %d", seed)
		require.Equal(t, d.Tick(), p.Tick())
	}
}

func TestPipelineHalts(t *testing.T) {
	sc := config.Default()
	a, i := charts(t)
	mon := safety.New(a, i)
	mon.Add(safety.Property{
		Name: "stop-at-five",
		Check: func(_ *safety.Monitor, s *safety.Sample) string {
			if s.Tick == 5 {
				return "tick five"
			}
			return ""
		},
	})
	d, err := realtime.NewDriver(a, i, realtime.Config{Base: sc.Base, Monitor: mon})
	require.NoError(t, err)

	err = realtime.NewPipeline(d).Run(context.Background(), 20)
	require.True(t, errors.Is(err, pumpchart.ErrSafetyViolation))
	require.EqualValues(t, 6, d.Tick())
	require.Equal(t, err, realtime.NewPipeline(d).Run(context.Background(), 1))
}

func TestRandomStimuliKeepSafety(t *testing.T) {
	for seed := range int64(16) {
		gen := testutil.NewStimulusGen(100 + seed)
		d := newDriver(t, realtime.Config{Base: gen.Stimulus(), Patches: gen.Sequence(100)})
		require.NoError(t, d.Run(context.Background(), 100), "seed %d", seed)
	}
}

func TestSignals(t *testing.T) {
	c := bus.Cycle{Tick: 7, CurrentAlarm: 8}
	c.Stimulus.Operator.InfusionInhibit = true
	c.Alarm.HighestLevelAlarm = 3
	c.Infusion.CurrentSystemMode = 7

	s := realtime.Signals(c)
	require.EqualValues(t, 7, s["tick"])
	require.EqualValues(t, 8, s["alarm.currentAlarm"])
	require.EqualValues(t, 1, s["stimulus.operator.infusionInhibit"])
	require.EqualValues(t, 0, s["stimulus.operator.infusionCancel"])
	require.EqualValues(t, 3, s["alarm.highestLevelAlarm"])
	require.EqualValues(t, 7, s["infusion.currentSystemMode"])
	require.NotContains(t, s, "alarmState")
}
