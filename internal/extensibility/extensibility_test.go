package extensibility_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/stretchr/testify/require"

	"github.com/comalice/pumpchart"
	"github.com/comalice/pumpchart/internal/alarm"
	"github.com/comalice/pumpchart/internal/bus"
	"github.com/comalice/pumpchart/internal/config"
	"github.com/comalice/pumpchart/internal/extensibility"
	"github.com/comalice/pumpchart/internal/infusion"
	"github.com/comalice/pumpchart/internal/logger"
	"github.com/comalice/pumpchart/internal/safety"
	"github.com/comalice/pumpchart/realtime"
)

func evaluateAlarm(t *testing.T, c *alarm.Chart, mem *alarm.Memory, st bus.Stimulus) {
	t.Helper()
	_, err := c.Evaluate(alarm.FromStimulus(&st, bus.InfusionManagerOutputs{}), mem)
	require.NoError(t, err)
}

func TestRecordingTracer(t *testing.T) {
	rec := &extensibility.RecordingTracer{}
	c, err := alarm.New(pumpchart.WithTracer(rec))
	require.NoError(t, err)
	mem := c.NewMemory()
	c.Init(&mem)

	st := config.Default().Base
	evaluateAlarm(t, c, &mem, st)
	require.Contains(t, rec.Entered(), "ALARMS")
	require.NotContains(t, rec.Entered(), "NOT_ON")

	rec.Reset()
	require.Empty(t, rec.Events())

	st.TopLevel.SystemOn = false
	evaluateAlarm(t, c, &mem, st)
	require.Contains(t, rec.Events(), extensibility.TraceEvent{
		Kind: extensibility.TraceTransition, From: "ALARMS", To: "NOT_ON",
	})
	require.Contains(t, rec.Events(), extensibility.TraceEvent{Kind: extensibility.TraceExit, From: "ALARMS"})
	require.Equal(t, []string{"NOT_ON"}, rec.Entered())
}

func TestLoggingTracer(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core).Sugar())

	c, err := infusion.New(pumpchart.WithTracer(extensibility.NewLoggingTracer(ctx, infusion.Name)))
	require.NoError(t, err)
	mem := c.NewMemory()
	c.Init(&mem)

	st := config.Default().Base
	_, err = c.Evaluate(infusion.FromStimulus(&st, bus.AlarmOutputs{HighestLevelAlarm: 1}), &mem)
	require.NoError(t, err)

	entered := logs.FilterMessage("enter").All()
	require.NotEmpty(t, entered)
	var states []any
	for _, e := range entered {
		require.Equal(t, infusion.Name, e.ContextMap()["machine"])
		states = append(states, e.ContextMap()["state"])
	}
	require.Contains(t, states, "Infusion_Manager")
	require.Contains(t, states, "Infusion_Manager.IDLE")

	_, err = c.Evaluate(infusion.FromStimulus(&st, bus.AlarmOutputs{HighestLevelAlarm: 1}), &mem)
	require.NoError(t, err)
	require.Positive(t, logs.FilterMessage("transition").Len())
}

func TestMultiTracer(t *testing.T) {
	a, b := &extensibility.RecordingTracer{}, &extensibility.RecordingTracer{}
	m := extensibility.MultiTracer(a, nil, b)

	m.OnEnter("X")
	m.OnTransition("X", "Y")
	m.OnExit("Y")

	require.Len(t, a.Events(), 3)
	require.Equal(t, a.Events(), b.Events())
	require.Equal(t, []string{"X"}, b.Entered())
}

func TestParseExpression(t *testing.T) {
	e, err := extensibility.ParseExpression("  infusion.currentSystemMode   !=  5 ")
	require.NoError(t, err)
	require.Equal(t, "infusion.currentSystemMode", e.Signal)
	require.Equal(t, "!=", e.Op)
	require.EqualValues(t, 5, e.Value)
	require.Equal(t, "infusion.currentSystemMode != 5", e.String())

	e, err = extensibility.ParseExpression("stimulus.operator.infusionInhibit == true")
	require.NoError(t, err)
	require.EqualValues(t, 1, e.Value)

	for _, bad := range []string{"", "a ==", "a => 1", "a == x", "a == 1 2"} {
		_, err := extensibility.ParseExpression(bad)
		require.ErrorIs(t, err, extensibility.ErrBadExpression, bad)
	}
}

func TestExpressionEval(t *testing.T) {
	values := map[string]int64{"x": 3}
	cases := map[string]bool{
		"x == 3": true, "x != 3": false,
		"x < 4": true, "x <= 2": false,
		"x > 3": false, "x >= 3": true,
	}
	for src, want := range cases {
		e, err := extensibility.ParseExpression(src)
		require.NoError(t, err)
		got, err := e.Eval(values)
		require.NoError(t, err)
		require.Equal(t, want, got, src)
	}

	e, err := extensibility.ParseExpression("y == 1")
	require.NoError(t, err)
	_, err = e.Eval(values)
	require.ErrorIs(t, err, extensibility.ErrUnknownSignal)
}

func TestWatchPropertyHaltsDriver(t *testing.T) {
	sc := config.Default()
	a, err := alarm.New()
	require.NoError(t, err)
	i, err := infusion.New()
	require.NoError(t, err)

	mon := safety.New(a, i)
	prop, err := extensibility.WatchProperty("infusion.currentSystemMode != 8")
	require.NoError(t, err)
	mon.Add(prop)

	d, err := realtime.NewDriver(a, i, realtime.Config{Base: sc.Base, Patches: sc.Patches, Monitor: mon})
	require.NoError(t, err)

	err = d.Run(context.Background(), sc.Ticks)
	var v *pumpchart.SafetyViolation
	require.ErrorAs(t, err, &v)
	require.Equal(t, "watch: infusion.currentSystemMode != 8", v.Property)
	require.EqualValues(t, 20, v.Tick)
	require.Contains(t, v.Detail, "is 8")

	_, err = extensibility.WatchProperty("mode")
	require.ErrorIs(t, err, extensibility.ErrBadExpression)
}

func TestForward(t *testing.T) {
	ch := make(chan config.Patch, 3)
	ch <- config.Patch{At: 1, Set: map[string]any{"operator.infusionInhibit": true}}
	ch <- config.Patch{At: 2, Set: map[string]any{"operator.infusionInhibit": false}}
	close(ch)

	var got []config.Patch
	err := extensibility.Forward(context.Background(), extensibility.NewChannelPatchSource(ch), func(p config.Patch) error {
		got = append(got, p)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.EqualValues(t, 2, got[1].At)
}

func TestForwardStopsOnError(t *testing.T) {
	ch := make(chan config.Patch, 2)
	ch <- config.Patch{}
	ch <- config.Patch{}

	boom := errors.New("boom")
	calls := 0
	err := extensibility.Forward(context.Background(), extensibility.NewChannelPatchSource(ch), func(config.Patch) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestForwardContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := extensibility.Forward(ctx, extensibility.NewChannelPatchSource(make(chan config.Patch)), func(config.Patch) error {
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestTimerPatchSourceFeedsDriver(t *testing.T) {
	sc := config.Default()
	a, err := alarm.New()
	require.NoError(t, err)
	i, err := infusion.New()
	require.NoError(t, err)
	d, err := realtime.NewDriver(a, i, realtime.Config{Base: sc.Base})
	require.NoError(t, err)

	src := extensibility.NewTimerPatchSource(map[string]any{"operator.infusionInhibit": true}, time.Millisecond)
	done := make(chan error, 1)
	go func() { done <- extensibility.Forward(context.Background(), src, d.Schedule) }()

	require.Eventually(t, func() bool {
		if _, err := d.Step(context.Background()); err != nil {
			return false
		}
		return d.Stimulus().Operator.InfusionInhibit
	}, 2*time.Second, time.Millisecond)

	src.Stop()
	require.NoError(t, <-done)
}
