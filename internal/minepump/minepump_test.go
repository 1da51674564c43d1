package minepump

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comalice/pumpchart"
)

func requireSpec(t *testing.T, err error, spec string, tick uint64) {
	t.Helper()
	var v *pumpchart.SafetyViolation
	require.ErrorAs(t, err, &v)
	require.ErrorIs(t, err, pumpchart.ErrSafetyViolation)
	require.Equal(t, spec, v.Property)
	require.Equal(t, tick, v.Tick)
}

func TestEnvironment(t *testing.T) {
	var e Environment
	require.Equal(t, Low, e.Water)
	require.True(t, e.LowWaterSensorDry())
	require.True(t, e.HighWaterSensorDry())

	e.Lower()
	require.Equal(t, Low, e.Water)

	e.Rise()
	require.Equal(t, Normal, e.Water)
	require.False(t, e.LowWaterSensorDry())

	e.Rise()
	e.Rise()
	require.Equal(t, High, e.Water)
	require.False(t, e.HighWaterSensorDry())

	e.Lower()
	require.Equal(t, Normal, e.Water)

	e.ToggleMethane()
	require.Equal(t, "Env(Water:normal,Meth:CRIT)", e.String())
}

func TestParseFeatures(t *testing.T) {
	f, err := ParseFeatures("highWaterSensor, methaneAlarm")
	require.NoError(t, err)
	require.Equal(t, DefaultFeatures, f)
	require.Equal(t, "highWaterSensor,methaneAlarm", f.String())

	f, err = ParseFeatures("base")
	require.NoError(t, err)
	require.Zero(t, f)
	require.Equal(t, "base", f.String())

	_, err = ParseFeatures("highWaterSensor,sprinkler")
	require.ErrorIs(t, err, ErrUnknownFeature)
}

func TestPolicyOrder(t *testing.T) {
	var env Environment
	p := NewPump(&env, HighWaterSensor|LowWaterSensor|MethaneAlarm)
	require.Equal(t, []string{"methaneAlarm", "lowWaterSensor", "highWaterSensor", "base"}, p.Policies())
	require.Equal(t, []string{"base"}, NewPump(&env, 0).Policies())
}

// TestWaterRiseOneLevel checks that a single surge from low water leaves
// the water below the high sensor and the pump off.
func TestWaterRiseOneLevel(t *testing.T) {
	ctx := context.Background()
	s := NewSystem(DefaultFeatures)

	require.NoError(t, s.Step(ctx, Actions{WaterRise: true}))
	require.Equal(t, Normal, s.Env.Water)
	require.False(t, s.Pump.Running())

	require.NoError(t, s.Step(ctx, Actions{WaterRise: true}))
	require.Equal(t, High, s.Env.Water)
	require.True(t, s.Pump.Running())
}

func TestHighWaterStartsPump(t *testing.T) {
	ctx := context.Background()
	s := NewSystem(DefaultFeatures)

	s.WaterRise()
	s.WaterRise()
	require.Equal(t, High, s.Env.Water)
	require.NoError(t, s.TimeShift(ctx))
	require.True(t, s.Pump.Running())

	require.NoError(t, s.TimeShift(ctx))
	require.Equal(t, Normal, s.Env.Water)
	require.True(t, s.Pump.Running())

	// Without a low water sensor the pump runs dry.
	requireSpec(t, s.TimeShift(ctx), Spec4, 2)
	require.EqualValues(t, 3, s.Tick())
}

func TestLowWaterSensorStopsPump(t *testing.T) {
	ctx := context.Background()
	s := NewSystem(DefaultFeatures | LowWaterSensor)

	s.WaterRise()
	s.WaterRise()
	for range 3 {
		require.NoError(t, s.TimeShift(ctx))
	}
	require.Equal(t, Low, s.Env.Water)
	require.False(t, s.Pump.Running())
}

func TestMethaneStopsRunningPump(t *testing.T) {
	ctx := context.Background()
	s := NewSystem(DefaultFeatures)

	s.WaterRise()
	s.WaterRise()
	require.NoError(t, s.TimeShift(ctx))
	require.True(t, s.Pump.Running())

	s.MethaneChange()
	require.NoError(t, s.TimeShift(ctx))
	require.False(t, s.Pump.Running())
	require.Equal(t, Normal, s.Env.Water)
}

func TestMethaneAtHighWater(t *testing.T) {
	s := NewSystem(DefaultFeatures)
	s.WaterRise()
	s.WaterRise()
	s.MethaneChange()

	// The methane alarm only stops a running pump, so the high water
	// sensor switches it on.
	requireSpec(t, s.TimeShift(context.Background()), Spec1, 0)
}

func TestNoHighWaterSensor(t *testing.T) {
	s := NewSystem(MethaneAlarm)
	s.WaterRise()
	s.WaterRise()
	requireSpec(t, s.TimeShift(context.Background()), Spec3, 0)
}

func TestSpecification2(t *testing.T) {
	s := NewSystem(DefaultFeatures)
	s.Env.MethaneCritical = true
	s.Pump.Activate()

	name, _ := s.spec2()
	require.Empty(t, name)
	name, _ = s.spec2()
	require.Equal(t, Spec2, name)

	s.Pump.Deactivate()
	name, _ = s.spec2()
	require.Empty(t, name)
	require.False(t, s.methAndRunningLastTime)
}

func TestSpecification5(t *testing.T) {
	s := NewSystem(DefaultFeatures)
	s.Env.Water = Normal
	s.Pump.Activate()

	s.switchedOnBeforeTS = true
	name, _ := s.spec5()
	require.Empty(t, name)

	s.switchedOnBeforeTS = false
	name, detail := s.spec5()
	require.Equal(t, Spec5, name)
	require.Contains(t, detail, "normal")

	s.Env.Water = High
	name, _ = s.spec5()
	require.Empty(t, name)
}

func TestStoppedSystemIsNotChecked(t *testing.T) {
	ctx := context.Background()
	s := NewSystem(0)

	require.NoError(t, s.Step(ctx, Actions{WaterRise: true, Stop: true}))
	require.False(t, s.Pump.Active())
	require.NoError(t, s.Step(ctx, Actions{WaterRise: true}))
	require.Equal(t, High, s.Env.Water)

	// Start wins over Stop and re-enables the checks.
	requireSpec(t, s.Step(ctx, Actions{Start: true, Stop: true}), Spec3, 2)
	require.True(t, s.Pump.Active())
}

func TestStartWhileRunning(t *testing.T) {
	var env Environment
	p := NewPump(&env, DefaultFeatures)
	p.Activate()
	require.ErrorIs(t, p.Start(), ErrPumpRunning)

	require.NoError(t, p.Stop())
	require.False(t, p.Running())
	require.False(t, p.Active())
	require.Equal(t, "Pump(System:Off,Pump:Off) Env(Water:low,Meth:OK)", p.String())
}

func TestMixedActions(t *testing.T) {
	var grid [4][4]bool
	grid[0][0], grid[2][2] = true, true

	steps := MixedActions(grid, 10)
	require.Len(t, steps, 14)
	require.Equal(t, Actions{WaterRise: true}, steps[0])
	require.Equal(t, Actions{Start: true}, steps[2])
	require.Equal(t, steps, MixedActions(grid, 10))
}

// With every feature only the methane and high water race can fail.
func TestFullProductProperties(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42)) //nolint:gosec // Test data.

	for range 200 {
		s := NewSystem(HighWaterSensor | LowWaterSensor | MethaneAlarm)
		err := s.Run(ctx, RandomActions(rng, 40, 0.3), 10)
		if err == nil {
			continue
		}
		var v *pumpchart.SafetyViolation
		require.ErrorAs(t, err, &v)
		require.Equal(t, Spec1, v.Property, v.Error())
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSystem(DefaultFeatures)
	require.ErrorIs(t, s.Run(ctx, []Actions{{}}, 0), context.Canceled)
	require.Zero(t, s.Tick())
}
