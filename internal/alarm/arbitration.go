package alarm

// Priority is the arbitration scan order. Each raised condition overwrites
// the previous pick, so the last raised entry wins.
var Priority = []Condition{
	InfusionNotStarted,
	SystemMonitorFailed,
	LoggingFailed,
	PumpHot,
	BatteryError,
	ConfigTimeWarning,
	PausedTimeExceeded,
	IdleTimeExceeded,
	FlowRateNotStable,
	UnderInfusion,
	LowReservoir,
	DoorOpen,
	Occlusion,
	AirInLine,
	OverInfusionVTBI,
	OverInfusionFlowRate,
	HardwareError,
	EnvironmentalError,
	EmptyReservoir,
}

// Arbitrate selects the alarm to report from the raised conditions. With
// nothing raised it returns None at level 1.
func Arbitrate(raised func(Condition) bool) (current Condition, level int32) {
	current, level = None, 1
	for _, c := range Priority {
		if raised(c) {
			current, level = c, c.Level()
		}
	}
	return current, level
}

// arbitrate publishes the current alarm from the condition machines.
func (f *frame) arbitrate() {
	current, level := Arbitrate(f.raised)
	f.mem.CurrentAlarm = int32(current)
	f.mem.MaxAlarmLevel = level
	f.mem.Out.HighestLevelAlarm = level
}

func (f *frame) raised(c Condition) bool {
	n := f.chart.raised[c]
	return n != nil && n.IsActive(&f.mem.Chart)
}
