package alarm

import (
	"github.com/comalice/pumpchart"
	"github.com/comalice/pumpchart/internal/bus"
)

// Inputs is everything the alarm chart samples in one cycle. InfusionManager
// is the infusion chart's output from the previous cycle.
type Inputs struct {
	InfusionManager bus.InfusionManagerOutputs `json:"infusionManager" yaml:"infusionManager"`
	TopLevel        bus.TopLevelMode           `json:"topLevel" yaml:"topLevel"`
	SystemMonitor   bus.SystemMonitor          `json:"systemMonitor" yaml:"systemMonitor"`
	Logging         bus.LogOutput              `json:"logging" yaml:"logging"`
	Operator        bus.OperatorCommands       `json:"operator" yaml:"operator"`
	DrugDatabase    bus.DrugDatabase           `json:"drugDatabase" yaml:"drugDatabase"`
	Sensors         bus.DeviceSensors          `json:"sensors" yaml:"sensors"`
	Device          bus.DeviceConfiguration    `json:"device" yaml:"device"`
	Status          bus.SystemStatus           `json:"status" yaml:"status"`
	Config          bus.ConfigOutputs          `json:"config" yaml:"config"`
}

// FromStimulus assembles the alarm inputs for one cycle.
func FromStimulus(s *bus.Stimulus, im bus.InfusionManagerOutputs) Inputs {
	return Inputs{
		InfusionManager: im,
		TopLevel:        s.TopLevel,
		SystemMonitor:   s.SystemMonitor,
		Logging:         s.Logging,
		Operator:        s.Operator,
		DrugDatabase:    s.DrugDatabase,
		Sensors:         s.Sensors,
		Device:          s.Device,
		Status:          s.Status,
		Config:          s.Config,
	}
}

// frame is the chart context for one tick.
type frame struct {
	in    *Inputs
	mem   *Memory
	chart *Chart
}

func (f *frame) timer(id pumpchart.TimerID) *pumpchart.Timer {
	return f.mem.Chart.Timer(id)
}

func (f *frame) cancelled(c Condition) bool {
	return f.mem.CancelAlarm == int32(c)
}

func (f *frame) inTherapy() bool {
	return f.in.Status.InTherapy
}

func (f *frame) hardwareFault() bool {
	s := &f.in.Sensors
	return s.BatteryDepleted || s.RTCInError || s.CPUInError ||
		s.MemoryCorrupted || s.PumpTooHot || s.WatchdogInterrupted
}

func (f *frame) environmentalFault() bool {
	s := &f.in.Sensors
	return s.Temp || s.Humidity || s.AirPressure
}

func (f *frame) batteryFault() bool {
	s := &f.in.Sensors
	return s.BatteryLow || s.BatteryUnableToCharge || s.SupplyVoltage
}

// flowDeviation grades the measured flow rate against the commanded one:
// 0 within tolerance, 2 beyond the minimum tolerance, 1 beyond the maximum
// tolerance or the drug's absolute limit.
type flowDeviation int32

const (
	flowNominal  flowDeviation = 0
	flowAlarm    flowDeviation = 1
	flowDeviates flowDeviation = 2
)

func (f *frame) overInfusion() flowDeviation {
	if !f.inTherapy() {
		return flowNominal
	}
	rate := f.in.Sensors.FlowRate
	cmd := f.in.InfusionManager.CommandedFlowRate
	switch {
	case rate > f.in.DrugDatabase.FlowRateHigh:
		return flowAlarm
	case rate > cmd*pumpchart.DivS32(f.in.Device.ToleranceMax, 100)+cmd:
		return flowAlarm
	case rate > cmd*pumpchart.DivS32(f.in.Device.ToleranceMin, 100)+cmd:
		return flowDeviates
	}
	return flowNominal
}

func (f *frame) underInfusion() flowDeviation {
	if !f.inTherapy() {
		return flowNominal
	}
	rate := f.in.Sensors.FlowRate
	cmd := f.in.InfusionManager.CommandedFlowRate
	switch {
	case rate < f.in.DrugDatabase.FlowRateLow:
		return flowAlarm
	case rate < cmd-cmd*pumpchart.DivS32(f.in.Device.ToleranceMax, 100):
		return flowAlarm
	case rate < cmd-cmd*pumpchart.DivS32(f.in.Device.ToleranceMin, 100):
		return flowDeviates
	}
	return flowNominal
}
