package alarm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comalice/pumpchart"
	"github.com/comalice/pumpchart/internal/bus"
)

func newChart(t *testing.T) (*Chart, *Memory) {
	t.Helper()
	c, err := New()
	require.NoError(t, err)
	mem := c.NewMemory()
	c.Init(&mem)
	return c, &mem
}

func evaluate(t *testing.T, c *Chart, in Inputs, mem *Memory, ticks int) bus.AlarmOutputs {
	t.Helper()
	var out bus.AlarmOutputs
	for range ticks {
		var err error
		out, err = c.Evaluate(in, mem)
		require.NoError(t, err)
	}
	return out
}

func systemOn() Inputs {
	var in Inputs
	in.TopLevel.SystemOn = true
	in.Device.AudioLevel = 5
	return in
}

func TestInitProducesResetMemory(t *testing.T) {
	c, mem := newChart(t)

	require.True(t, mem.Chart.IsReset())
	require.Equal(t, bus.AlarmOutputs{}, mem.Out)
	require.Zero(t, mem.CurrentAlarm)
	require.Zero(t, mem.CancelAlarm)
	require.Zero(t, mem.MaxAlarmLevel)
	require.Empty(t, c.Configuration(mem))

	// Init after use returns to the same state.
	evaluate(t, c, systemOn(), mem, 3)
	require.False(t, mem.Chart.IsReset())
	c.Init(mem)
	require.True(t, mem.Chart.IsReset())
	require.Equal(t, bus.AlarmOutputs{}, mem.Out)
}

func TestDeviceOffPublishesNothing(t *testing.T) {
	c, mem := newChart(t)
	var in Inputs
	in.Status.InTherapy = true
	in.Status.ReservoirEmpty = true

	for range 5 {
		out, err := c.Evaluate(in, mem)
		require.NoError(t, err)
		require.Equal(t, bus.AlarmOutputs{}, out)
	}
	require.Equal(t, []string{notOn}, c.Configuration(mem))
}

func TestEmptyReservoirIsLevelFour(t *testing.T) {
	c, mem := newChart(t)
	in := systemOn()
	in.Status.InTherapy = true
	in.Status.ReservoirEmpty = true

	out := evaluate(t, c, in, mem, 1)
	require.Equal(t, int32(4), out.HighestLevelAlarm)
	require.Equal(t, int32(EmptyReservoir), mem.CurrentAlarm)
	require.Equal(t, int32(EmptyReservoir), out.NotificationMessage)
	require.Equal(t, int32(5), out.AudioNotificationCommand)

	out = evaluate(t, c, in, mem, 4)
	require.Equal(t, int32(4), out.HighestLevelAlarm)
	require.True(t, c.Raised(EmptyReservoir, mem))
}

func TestNoAlarmMeansLevelOne(t *testing.T) {
	c, mem := newChart(t)

	out := evaluate(t, c, systemOn(), mem, 3)
	require.Zero(t, mem.CurrentAlarm)
	require.Equal(t, int32(1), out.HighestLevelAlarm)
	require.Zero(t, out.NotificationMessage)
	require.Zero(t, out.AudioNotificationCommand)
	require.True(t, c.Active(notification+".Visual.OFF", mem))
	require.True(t, c.Active(notification+".Audio.OFF", mem))
}

func TestSwitchingOffClearsEverything(t *testing.T) {
	c, mem := newChart(t)
	in := systemOn()
	in.Sensors.DoorOpen = true
	out := evaluate(t, c, in, mem, 2)
	require.Equal(t, int32(3), out.HighestLevelAlarm)

	in.TopLevel.SystemOn = false
	for range 2 {
		out = evaluate(t, c, in, mem, 1)
		require.Equal(t, bus.AlarmOutputs{}, out)
		require.Zero(t, mem.CurrentAlarm)
		require.Zero(t, mem.CancelAlarm)
		require.False(t, c.Active(alarms, mem))
		require.Equal(t, []string{notOn}, c.Configuration(mem))
	}
}

func TestArbitrate(t *testing.T) {
	tests := []struct {
		name      string
		raised    []Condition
		want      Condition
		wantLevel int32
	}{
		{"nothing raised", nil, None, 1},
		{"informational only", []Condition{InfusionNotStarted}, InfusionNotStarted, 1},
		{"low reservoir beats level one", []Condition{InfusionNotStarted, PumpHot, LowReservoir}, LowReservoir, 2},
		{"level three beats level two", []Condition{LowReservoir, DoorOpen, AirInLine}, AirInLine, 3},
		{"over infusion first in level three", []Condition{OverInfusionVTBI, OverInfusionFlowRate}, OverInfusionFlowRate, 3},
		{"hardware", []Condition{HardwareError, UnderInfusion}, HardwareError, 4},
		{"empty reservoir wins", []Condition{HardwareError, EnvironmentalError, EmptyReservoir, DoorOpen}, EmptyReservoir, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := make(map[Condition]bool)
			for _, c := range tt.raised {
				set[c] = true
			}
			got, level := Arbitrate(func(c Condition) bool { return set[c] })
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.wantLevel, level)
		})
	}
}

func TestPriorityCoversEveryCondition(t *testing.T) {
	require.Len(t, Priority, int(InfusionNotStarted))
	seen := make(map[Condition]bool)
	for _, c := range Priority {
		require.False(t, seen[c], "duplicate %s", c)
		seen[c] = true
	}
}

func TestCancelAcknowledgesCurrentAlarm(t *testing.T) {
	c, mem := newChart(t)
	in := systemOn()
	in.Sensors.DoorOpen = true
	evaluate(t, c, in, mem, 1)
	require.Equal(t, int32(DoorOpen), mem.CurrentAlarm)

	// Still open: the latch holds the acknowledgement but the alarm stays.
	in.Operator.NotificationCancel = true
	evaluate(t, c, in, mem, 1)
	require.Equal(t, int32(DoorOpen), mem.CancelAlarm)
	require.Equal(t, int32(3), mem.Out.LogMessageID)
	require.True(t, c.Raised(DoorOpen, mem))
	require.True(t, c.Active(checkAlarm+".CancelAlarm.ON", mem))

	in.Operator.NotificationCancel = false
	in.Sensors.DoorOpen = false
	out := evaluate(t, c, in, mem, 1)
	require.False(t, c.Raised(DoorOpen, mem))
	require.True(t, c.Active(checkAlarm+".CancelAlarm.OFF", mem))
	require.Zero(t, mem.CurrentAlarm)
	require.Equal(t, int32(1), out.HighestLevelAlarm)
	require.Zero(t, out.NotificationMessage)
}

func TestHardwareAndEnvironmentalCodesAreSwapped(t *testing.T) {
	c, mem := newChart(t)
	in := systemOn()
	in.Sensors.CPUInError = true
	in.Sensors.Humidity = true
	evaluate(t, c, in, mem, 1)
	require.True(t, c.Raised(HardwareError, mem))
	require.True(t, c.Raised(EnvironmentalError, mem))
	require.Equal(t, int32(EnvironmentalError), mem.CurrentAlarm)

	// Acknowledging code 2 clears the hardware error, not the environmental one.
	in.Sensors.CPUInError = false
	in.Sensors.Humidity = false
	in.Operator.NotificationCancel = true
	evaluate(t, c, in, mem, 1)
	require.Equal(t, int32(EnvironmentalError), mem.CancelAlarm)
	require.False(t, c.Raised(HardwareError, mem))
	require.True(t, c.Raised(EnvironmentalError, mem))
	require.Equal(t, int32(EnvironmentalError), mem.CurrentAlarm)
}

func TestInfusionNotStartedClearsItself(t *testing.T) {
	c, mem := newChart(t)
	in := systemOn()
	in.Operator.InfusionInitiate = true
	evaluate(t, c, in, mem, 1)
	require.Equal(t, int32(InfusionNotStarted), mem.CurrentAlarm)
	require.Equal(t, int32(1), mem.Out.HighestLevelAlarm)

	in.Operator.InfusionInitiate = false
	evaluate(t, c, in, mem, 1)
	require.Zero(t, mem.CurrentAlarm)
}

func TestIdleTimeExceeded(t *testing.T) {
	c, mem := newChart(t)
	in := systemOn()
	in.InfusionManager.CurrentSystemMode = 1
	in.Device.MaxIdleDuration = 3

	evaluate(t, c, in, mem, 3)
	require.False(t, c.Raised(IdleTimeExceeded, mem))
	require.True(t, c.Active(IdleTimeExceeded.Region()+".Counting", mem))
	require.Equal(t, pumpchart.Timer(3), *mem.Chart.Timer(timerIdle))

	evaluate(t, c, in, mem, 1)
	require.True(t, c.Raised(IdleTimeExceeded, mem))
	require.Equal(t, int32(IdleTimeExceeded), mem.CurrentAlarm)

	in.Operator.NotificationCancel = true
	evaluate(t, c, in, mem, 1)
	require.False(t, c.Raised(IdleTimeExceeded, mem))
}

func TestPausedTimeRaisesImmediatelyWithUnitLimit(t *testing.T) {
	c, mem := newChart(t)
	in := systemOn()
	in.InfusionManager.CurrentSystemMode = 7
	in.Device.MaxPausedDuration = 1

	evaluate(t, c, in, mem, 1)
	require.True(t, c.Raised(PausedTimeExceeded, mem))
	require.Equal(t, int32(PausedTimeExceeded), mem.CurrentAlarm)
}

func TestOverInfusionMonitor(t *testing.T) {
	c, mem := newChart(t)
	in := systemOn()
	in.Status.InTherapy = true
	in.InfusionManager.CommandedFlowRate = 10
	in.Device.ToleranceMax = 100
	in.Device.MaxDurationOverInfusion = 2
	in.DrugDatabase.FlowRateHigh = 200
	in.Sensors.FlowRate = 12

	evaluate(t, c, in, mem, 4)
	require.True(t, c.Active(OverInfusionFlowRate.Region()+".Monitor", mem))
	require.False(t, c.Raised(OverInfusionFlowRate, mem))

	evaluate(t, c, in, mem, 1)
	require.True(t, c.Raised(OverInfusionFlowRate, mem))
	require.Equal(t, int32(3), mem.Out.HighestLevelAlarm)

	// Twice the commanded rate raises at once.
	c2, mem2 := newChart(t)
	in.Sensors.FlowRate = 21
	evaluate(t, c2, in, mem2, 1)
	require.True(t, c2.Raised(OverInfusionFlowRate, mem2))

	// Acknowledged once the rate is back within the maximum tolerance.
	in.Sensors.FlowRate = 12
	in.Operator.NotificationCancel = true
	evaluate(t, c2, in, mem2, 1)
	require.Equal(t, int32(OverInfusionFlowRate), mem2.CancelAlarm)
	require.True(t, c2.Active(OverInfusionFlowRate.Region()+".Check", mem2))
}

func TestUnderInfusionNeedsTherapy(t *testing.T) {
	c, mem := newChart(t)
	in := systemOn()
	in.InfusionManager.CommandedFlowRate = 10
	in.DrugDatabase.FlowRateLow = 5

	evaluate(t, c, in, mem, 2)
	require.False(t, c.Raised(UnderInfusion, mem))

	in.Status.InTherapy = true
	evaluate(t, c, in, mem, 1)
	require.True(t, c.Raised(UnderInfusion, mem))
	require.Equal(t, int32(UnderInfusion), mem.CurrentAlarm)
	require.Equal(t, int32(1), mem.Out.HighestLevelAlarm)
}

func TestAudioFollowsDisableSetting(t *testing.T) {
	c, mem := newChart(t)
	in := systemOn()
	in.Sensors.Occlusion = true
	in.Device.AudioEnableDuration = 2
	audio := notification + ".Audio"

	out := evaluate(t, c, in, mem, 1)
	require.True(t, c.Active(audio+".ON", mem))
	require.Equal(t, int32(5), out.AudioNotificationCommand)

	in.Operator.DisableAudio = audioSilenced
	out = evaluate(t, c, in, mem, 1)
	require.True(t, c.Active(audio+".Silenced", mem))
	require.Zero(t, out.AudioNotificationCommand)
	require.Equal(t, int32(audioSilenced), out.IsAudioDisabled)

	// Silence expires after the enable duration.
	evaluate(t, c, in, mem, 2)
	require.True(t, c.Active(audio+".Silenced", mem))
	evaluate(t, c, in, mem, 1)
	require.True(t, c.Active(audio+".OFF", mem))

	in.Operator.DisableAudio = audioDisabled
	out = evaluate(t, c, in, mem, 1)
	require.True(t, c.Active(audio+".Disabled", mem))
	require.Zero(t, out.AudioNotificationCommand)

	in.Operator.DisableAudio = audioEnabled
	out = evaluate(t, c, in, mem, 1)
	require.True(t, c.Active(audio+".ON", mem))
	require.Equal(t, int32(5), out.AudioNotificationCommand)
}

func TestLowLevelAlarmsAreSilent(t *testing.T) {
	c, mem := newChart(t)
	in := systemOn()
	in.Sensors.PumpOverheated = true

	out := evaluate(t, c, in, mem, 2)
	require.Equal(t, int32(PumpHot), out.NotificationMessage)
	require.Zero(t, out.AudioNotificationCommand)
	require.True(t, c.Active(notification+".Visual.AlarmDisplay", mem))
}

func TestDescribe(t *testing.T) {
	c, _ := newChart(t)
	cfg := c.Describe()

	require.Equal(t, Name, cfg.ID)
	require.Equal(t, numTimers, cfg.Timers)
	require.NoError(t, cfg.Validate())

	for _, cond := range Priority {
		s, err := cfg.FindState(cond.Region() + ".Yes")
		require.NoError(t, err, cond.String())
		require.Equal(t, "leaf", string(s.Type))
	}
	set, err := cfg.FindState(checkAlarm + ".SetAlarmStatus")
	require.NoError(t, err)
	require.True(t, set.Entry && set.During && set.Exit)
}
