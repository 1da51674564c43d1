// Package alarm implements the alarm sub-system chart: nineteen condition
// machines, their arbitration into one reported alarm, and the visual and
// audio notifications driven by it.
package alarm

import (
	"fmt"

	"github.com/comalice/pumpchart"
	"github.com/comalice/pumpchart/internal/bus"
	"github.com/comalice/pumpchart/internal/primitives"
)

// Name is the chart's root state and machine identifier.
const Name = "Alarm"

const (
	alarms       = "ALARMS"
	notOn        = "NOT_ON"
	checkAlarm   = alarms + ".CheckAlarm"
	notification = alarms + ".Notification"
)

// Memory is the working memory of one alarm chart instance.
type Memory struct {
	Chart         pumpchart.Memory `json:"chart" yaml:"chart"`
	CurrentAlarm  int32            `json:"currentAlarm" yaml:"currentAlarm"`
	CancelAlarm   int32            `json:"cancelAlarm" yaml:"cancelAlarm"`
	MaxAlarmLevel int32            `json:"maxAlarmLevel" yaml:"maxAlarmLevel"`
	Out           bus.AlarmOutputs `json:"out" yaml:"out"`
}

// clear zeroes everything the chart publishes.
func (m *Memory) clear() {
	m.CurrentAlarm = 0
	m.CancelAlarm = 0
	m.MaxAlarmLevel = 0
	m.Out = bus.AlarmOutputs{}
}

// Chart is the alarm state machine. It holds no per-instance state and may
// evaluate any number of Memory values.
type Chart struct {
	m      *pumpchart.Machine[*frame]
	raised [InfusionNotStarted + 1]*pumpchart.Node[*frame]
}

type builder = pumpchart.MachineBuilder[*frame]

type guard = pumpchart.Guard[*frame]

// New builds the alarm chart. Options are applied after the chart's own
// name and timer count.
func New(opts ...pumpchart.Option) (*Chart, error) {
	c := &Chart{}
	b := pumpchart.NewMachineBuilder[*frame](Name)

	systemOn := func(f *frame) bool { return f.in.TopLevel.SystemOn }

	b.Root().
		Default(alarms, systemOn, nil).
		Default(notOn, nil, nil)
	b.State(alarms, 1).And().
		Exit(func(f *frame) { f.mem.clear() }).
		On(notOn, pumpchart.Not(systemOn), nil)
	b.State(notOn, 2).
		On(alarms, systemOn, nil)

	b.State(checkAlarm, 0).And()
	declareCancel(b)
	for _, group := range [][]Condition{level4, level3, level2, level1} {
		b.State(checkAlarm+"."+group[0].group(), 0).And()
		for _, cond := range group {
			declareCondition(b, cond)
		}
	}
	b.State(checkAlarm+".SetAlarmStatus", 0).
		Entry((*frame).arbitrate).
		During((*frame).arbitrate).
		Exit(func(f *frame) {
			f.arbitrate()
			f.mem.CancelAlarm = 0
		})

	b.State(notification, 0).And()
	declareVisual(b)
	declareAudio(b)

	opts = append([]pumpchart.Option{pumpchart.WithName(Name), pumpchart.WithTimers(numTimers)}, opts...)
	m, err := b.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("build alarm chart: %w", err)
	}
	c.m = m
	for _, cond := range Priority {
		c.raised[cond] = m.Find(cond.Region() + ".Yes")
	}
	return c, nil
}

// NewMemory returns memory sized for the chart, in its initial state.
func (c *Chart) NewMemory() Memory {
	return Memory{Chart: c.m.NewMemory()}
}

// Init resets mem so that the next Evaluate performs the initial entry.
func (c *Chart) Init(mem *Memory) {
	c.m.Init(&mem.Chart)
	mem.clear()
}

// Evaluate runs one tick. MalformedChartError diagnostics are returned
// alongside the outputs; the tick always completes.
func (c *Chart) Evaluate(in Inputs, mem *Memory) (bus.AlarmOutputs, error) {
	f := &frame{in: &in, mem: mem, chart: c}
	err := c.m.Step(f, &mem.Chart)
	return mem.Out, err
}

// Raised reports whether the condition machine for cond is in its raised
// state.
func (c *Chart) Raised(cond Condition, mem *Memory) bool {
	if cond <= None || int(cond) >= len(c.raised) {
		return false
	}
	return c.raised[cond].IsActive(&mem.Chart)
}

// Active reports whether the state at path is part of the active
// configuration.
func (c *Chart) Active(path string, mem *Memory) bool {
	n := c.m.Find(path)
	return n != nil && n.IsActive(&mem.Chart)
}

// Running reports whether the device is on and the alarm regions are
// active.
func (c *Chart) Running(mem *Memory) bool {
	return c.Active(alarms, mem)
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

func declareCancel(b *builder) {
	r := checkAlarm + ".CancelAlarm"
	b.State(r, 0).Or().
		Default("OFF", nil, nil)
	b.State(r+".OFF", 1).
		On(r+".ON", func(f *frame) bool {
			return f.mem.CurrentAlarm > 0 && f.in.Operator.NotificationCancel
		}, nil)
	b.State(r+".ON", 2).
		Entry(func(f *frame) {
			f.mem.CancelAlarm = f.mem.CurrentAlarm
			f.mem.Out.LogMessageID = 3
		}).
		On(r+".OFF", nil, nil)
}
