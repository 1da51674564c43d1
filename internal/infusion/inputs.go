package infusion

import (
	"github.com/comalice/pumpchart"
	"github.com/comalice/pumpchart/internal/bus"
)

// Inputs is everything the infusion manager samples in one cycle. Alarm is
// the alarm chart's output from the same cycle.
type Inputs struct {
	TopLevel bus.TopLevelMode     `json:"topLevel" yaml:"topLevel"`
	Operator bus.OperatorCommands `json:"operator" yaml:"operator"`
	Patient  bus.PatientInputs    `json:"patient" yaml:"patient"`
	Config   bus.ConfigOutputs    `json:"config" yaml:"config"`
	Alarm    bus.AlarmOutputs     `json:"alarm" yaml:"alarm"`
	Status   bus.SystemStatus     `json:"status" yaml:"status"`
}

// FromStimulus assembles the infusion inputs for one cycle.
func FromStimulus(s *bus.Stimulus, alarm bus.AlarmOutputs) Inputs {
	return Inputs{
		TopLevel: s.TopLevel,
		Operator: s.Operator,
		Patient:  s.Patient,
		Config:   s.Config,
		Alarm:    alarm,
		Status:   s.Status,
	}
}

// System modes published in InfusionManagerOutputs.CurrentSystemMode.
// Mode 5 is not used.
const (
	ModeOff               int32 = 0
	ModeIdle              int32 = 1
	ModeBasal             int32 = 2
	ModeIntermittentBolus int32 = 3
	ModePatientBolus      int32 = 4
	ModePausedNoKVO       int32 = 6
	ModePausedKVO         int32 = 7
	ModeManualPausedKVO   int32 = 8
)

// ValidMode reports whether mode is one the chart can publish.
func ValidMode(mode int32) bool {
	switch mode {
	case ModeOff, ModeIdle, ModeBasal, ModeIntermittentBolus, ModePatientBolus,
		ModePausedNoKVO, ModePausedKVO, ModeManualPausedKVO:
		return true
	}
	return false
}

// Timers owned by the infusion chart.
const (
	timerSquareBolus = iota
	timerPatientBolus
	timerLockout
	timerSquareBolusInterval
	numTimers
)

// frame is the chart context for one tick.
type frame struct {
	in    *Inputs
	mem   *Memory
	chart *Chart
}

func (f *frame) timer(id pumpchart.TimerID) *pumpchart.Timer {
	return f.mem.Chart.Timer(id)
}

func (f *frame) alarmLevel() int32 {
	return f.in.Alarm.HighestLevelAlarm
}

func (f *frame) command(flow, mode int32) {
	f.mem.Out.CommandedFlowRate = flow
	f.mem.Out.CurrentSystemMode = mode
}

func (f *frame) writeLog(id int32) {
	f.mem.Out.LogMessageID = id
}

// resetForNewInfusion clears the bolus bookkeeping and the delivered
// duration.
func (f *frame) resetForNewInfusion() {
	f.timer(timerSquareBolus).Reset()
	f.timer(timerPatientBolus).Reset()
	f.timer(timerSquareBolusInterval).Reset()
	f.mem.NumberPbolus = 0
	f.mem.Out.CommandedFlowRate = 0
	f.mem.Out.ActualInfusionDuration = 0
	f.writeLog(1)
}

// resetAll also forgets any patient bolus lockout in progress.
func (f *frame) resetAll() {
	f.resetForNewInfusion()
	f.timer(timerLockout).Reset()
	f.mem.InPatientBolus = false
	f.mem.NumberPbolus = 0
}

// squareBolusDue reports whether the intermittent bolus interval has
// elapsed, restarting the interval when it has.
func (f *frame) squareBolusDue() bool {
	t := f.timer(timerSquareBolusInterval)
	if int32(*t) != f.in.Config.IntervalIntermittentBolus {
		return false
	}
	t.Reset()
	return true
}
