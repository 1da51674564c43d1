// Package infusion implements the infusion manager chart. It turns the
// confirmed infusion program, operator and patient requests and the alarm
// level into a commanded flow rate and system mode.
package infusion

import (
	"fmt"

	"github.com/comalice/pumpchart"
	"github.com/comalice/pumpchart/internal/bus"
	"github.com/comalice/pumpchart/internal/primitives"
)

// Name is the chart's root state and machine identifier.
const Name = "Infusion"

const (
	manager = "Infusion_Manager"
	notOn   = "NOT_ON"
	idle    = manager + ".IDLE"
	therapy = manager + ".THERAPY"
	active  = therapy + ".ACTIVE"
	paused  = therapy + ".PAUSED"

	patientOn      = active + ".Patient.ON"
	intermittentOn = active + ".Intermittent.ON"
	alarmPausedOn  = paused + ".Alarm_Paused.ON"
)

// Memory is the working memory of one infusion chart instance.
type Memory struct {
	Chart          pumpchart.Memory           `json:"chart" yaml:"chart"`
	NumberPbolus   int32                      `json:"numberPbolus" yaml:"numberPbolus"`
	SbolusReq      bool                       `json:"sbolusReq" yaml:"sbolusReq"`
	InPatientBolus bool                       `json:"inPatientBolus" yaml:"inPatientBolus"`
	Out            bus.InfusionManagerOutputs `json:"out" yaml:"out"`
}

// Chart is the infusion manager state machine. It holds no per-instance
// state and may evaluate any number of Memory values.
type Chart struct {
	m *pumpchart.Machine[*frame]
	// states consulted by guards of other regions
	watched map[string]*pumpchart.Node[*frame]
}

type builder = pumpchart.MachineBuilder[*frame]

type guard = pumpchart.Guard[*frame]

// New builds the infusion chart. Options are applied after the chart's own
// name and timer count.
func New(opts ...pumpchart.Option) (*Chart, error) {
	c := &Chart{}
	b := pumpchart.NewMachineBuilder[*frame](Name)

	systemOn := func(f *frame) bool { return f.in.TopLevel.SystemOn }
	off := func(f *frame) { f.command(0, ModeOff) }

	b.Root().
		Default(manager, systemOn, nil).
		Default(notOn, nil, nil)
	b.State(manager, 1).Or().
		Default("IDLE", nil, nil).
		On(notOn, pumpchart.Not(systemOn), nil)
	b.State(notOn, 2).
		Entry(off).
		During(off).
		On(manager, systemOn, nil)

	declareIdle(b)
	declareTherapy(b)
	declareActive(b)
	declarePaused(b)

	opts = append([]pumpchart.Option{pumpchart.WithName(Name), pumpchart.WithTimers(numTimers)}, opts...)
	m, err := b.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("build infusion chart: %w", err)
	}
	c.m = m
	c.watched = make(map[string]*pumpchart.Node[*frame])
	for _, path := range []string{patientOn, intermittentOn, alarmPausedOn} {
		c.watched[path] = m.Find(path)
	}
	return c, nil
}

func (c *Chart) active(path string, f *frame) bool {
	n := c.watched[path]
	return n != nil && n.IsActive(&f.mem.Chart)
}

// NewMemory returns memory sized for the chart, in its initial state.
func (c *Chart) NewMemory() Memory {
	return Memory{Chart: c.m.NewMemory()}
}

// Init resets mem so that the next Evaluate performs the initial entry.
func (c *Chart) Init(mem *Memory) {
	c.m.Init(&mem.Chart)
	mem.NumberPbolus = 0
	mem.SbolusReq = false
	mem.InPatientBolus = false
	mem.Out = bus.InfusionManagerOutputs{}
}

// Evaluate runs one tick. MalformedChartError diagnostics are returned
// alongside the outputs; the tick always completes.
func (c *Chart) Evaluate(in Inputs, mem *Memory) (bus.InfusionManagerOutputs, error) {
	f := &frame{in: &in, mem: mem, chart: c}
	err := c.m.Step(f, &mem.Chart)
	return mem.Out, err
}

// Active reports whether the state at path is part of the active
// configuration.
func (c *Chart) Active(path string, mem *Memory) bool {
	n := c.m.Find(path)
	return n != nil && n.IsActive(&mem.Chart)
}

// Running reports whether the infusion manager is switched on.
func (c *Chart) Running(mem *Memory) bool {
	return c.Active(manager, mem)
}

// Configuration returns the active leaf paths.
func (c *Chart) Configuration(mem *Memory) []string {
	return c.m.Configuration(&mem.Chart)
}

// Describe returns the chart structure.
func (c *Chart) Describe() primitives.MachineConfig {
	return c.m.Describe()
}

// Render formats the active configuration on one line.
func (c *Chart) Render(mem *Memory) string {
	return c.m.Render(&mem.Chart)
}

func declareIdle(b *builder) {
	idleOutputs := func(f *frame) { f.command(0, ModeIdle) }
	reset := func(f *frame) {
		idleOutputs(f)
		f.resetAll()
	}
	start := func(f *frame) bool {
		cfg := &f.in.Config
		return f.in.Operator.InfusionInitiate && cfg.Configured > 0 && !f.in.Status.ReservoirEmpty
	}

	// Start is tried before inhibit so that a program started while
	// inhibited goes straight to PAUSED.
	b.State(idle, 1).
		Entry(reset).
		During(idleOutputs).
		Exit(reset).
		Self(func(f *frame) bool { return f.in.Operator.InfusionCancel }, nil).
		On(therapy, start, func(f *frame) {
			f.resetAll()
			f.mem.Out.NewInfusion = true
		}).
		Self(func(f *frame) bool { return f.in.Operator.InfusionInhibit }, nil)
}

func declareTherapy(b *builder) {
	pause := func(f *frame) bool { return f.in.Operator.InfusionInhibit || f.alarmLevel() >= 3 }
	abort := func(f *frame) bool {
		op, cfg := &f.in.Operator, &f.in.Config
		return (op.InfusionInitiate && f.in.Status.ReservoirEmpty) || cfg.Configured < 1 || op.InfusionCancel
	}
	restart := func(f *frame) bool {
		return f.in.Operator.InfusionInitiate && f.in.Config.Configured == 1 && f.in.Status.ReservoirEmpty
	}
	complete := func(f *frame) bool {
		cfg := &f.in.Config
		return f.mem.Out.ActualInfusionDuration >= cfg.InfusionTotalDuration-1 ||
			f.in.Status.VolumeInfused >= cfg.VTBITotal
	}

	b.State(therapy, 2).Or().
		Exit(func(f *frame) {
			f.mem.Out.CommandedFlowRate = 0
			f.mem.Out.NewInfusion = false
		}).
		During(func(f *frame) { f.mem.Out.NewInfusion = false }).
		Default("PAUSED", pause, nil).
		Default("ACTIVE", nil, nil).
		On(idle, abort, nil).
		// Shadowed by abort, which holds whenever restart does.
		Self(restart, func(f *frame) {
			f.resetForNewInfusion()
			f.mem.Out.NewInfusion = true
		}).
		On(idle, complete, nil)
}
