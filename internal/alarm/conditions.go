package alarm

import "fmt"

// Condition identifies an alarm condition. The value is the notification
// message shown for it and the code an operator acknowledgement carries.
type Condition int32

const (
	None Condition = iota
	EmptyReservoir
	EnvironmentalError
	HardwareError
	OverInfusionFlowRate
	OverInfusionVTBI
	AirInLine
	Occlusion
	DoorOpen
	LowReservoir
	UnderInfusion
	FlowRateNotStable
	IdleTimeExceeded
	PausedTimeExceeded
	ConfigTimeWarning
	BatteryError
	PumpHot
	LoggingFailed
	SystemMonitorFailed
	InfusionNotStarted
)

var conditionNames = [...]string{
	None:                 "None",
	EmptyReservoir:       "EmptyReservoir",
	EnvironmentalError:   "EnvironmentalError",
	HardwareError:        "HardwareError",
	OverInfusionFlowRate: "OverInfusionFlowRate",
	OverInfusionVTBI:     "OverInfusionVTBI",
	AirInLine:            "AirInLine",
	Occlusion:            "Occlusion",
	DoorOpen:             "DoorOpen",
	LowReservoir:         "LowReservoir",
	UnderInfusion:        "UnderInfusion",
	FlowRateNotStable:    "FlowRateNotStable",
	IdleTimeExceeded:     "IdleTimeExceeded",
	PausedTimeExceeded:   "PausedTimeExceeded",
	ConfigTimeWarning:    "ConfigTimeWarning",
	BatteryError:         "BatteryError",
	PumpHot:              "PumpHot",
	LoggingFailed:        "LoggingFailed",
	SystemMonitorFailed:  "SystemMonitorFailed",
	InfusionNotStarted:   "InfusionNotStarted",
}

func (c Condition) String() string {
	if c >= 0 && int(c) < len(conditionNames) {
		return conditionNames[c]
	}
	return fmt.Sprintf("Condition(%d)", int32(c))
}

// Level is the alarm level a condition raises. Level 4 conditions stop
// therapy without KVO, level 3 pause with KVO, level 2 block boluses.
func (c Condition) Level() int32 {
	switch {
	case c >= EmptyReservoir && c <= HardwareError:
		return 4
	case c >= OverInfusionFlowRate && c <= DoorOpen:
		return 3
	case c == LowReservoir:
		return 2
	default:
		return 1
	}
}

// group is the level region a condition machine lives in.
func (c Condition) group() string {
	return fmt.Sprintf("Level%d", c.Level())
}

// Region returns the dotted path of the condition's state machine.
func (c Condition) Region() string {
	return checkAlarm + "." + c.group() + "." + c.String()
}

// Two-state condition tags.
const (
	tagNo  = 1
	tagYes = 2
)

// Flow-rate condition tags.
const (
	tagCheck   = 1
	tagMonitor = 2
	tagRaised  = 3
)

// Timed condition tag. No and Yes keep the two-state tags.
const tagCounting = 3

// Timers owned by the alarm chart.
const (
	timerOverInfusion = iota
	timerUnderInfusion
	timerAudio
	timerIdle
	timerPaused
	numTimers
)

// Condition machines in region order, per level.
var (
	level4 = []Condition{EmptyReservoir, HardwareError, EnvironmentalError}
	level3 = []Condition{OverInfusionFlowRate, OverInfusionVTBI, AirInLine, Occlusion, DoorOpen}
	level2 = []Condition{LowReservoir}
	level1 = []Condition{
		InfusionNotStarted, UnderInfusion, FlowRateNotStable, IdleTimeExceeded, PausedTimeExceeded,
		ConfigTimeWarning, BatteryError, PumpHot, LoggingFailed, SystemMonitorFailed,
	}
)
