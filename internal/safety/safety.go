// Package safety checks the pump's safety properties after every control
// cycle. A failed property is reported as a pumpchart.SafetyViolation and
// ends the run.
package safety

import (
	"fmt"
	"slices"

	"github.com/comalice/pumpchart"
	"github.com/comalice/pumpchart/internal/alarm"
	"github.com/comalice/pumpchart/internal/bus"
	"github.com/comalice/pumpchart/internal/infusion"
)

// Sample is the state of both charts after one cycle. Signals holds the
// cycle's published values keyed by dotted name.
type Sample struct {
	Tick     uint64
	Stimulus *bus.Stimulus
	Alarm    *alarm.Memory
	Infusion *infusion.Memory
	Signals  map[string]int64
}

// Property is one invariant that must hold after every cycle. Check
// returns an empty string when the property holds and a short description
// of the offending values otherwise.
type Property struct {
	Name        string
	Description string
	Check       func(m *Monitor, s *Sample) string
}

// Monitor evaluates Properties against samples of the two charts.
type Monitor struct {
	alarm    *alarm.Chart
	infusion *infusion.Chart
	props    []Property
	checked  uint64
}

// New returns a monitor for the given charts checking every property in
// Properties.
func New(a *alarm.Chart, i *infusion.Chart) *Monitor {
	return &Monitor{alarm: a, infusion: i, props: slices.Clone(Properties)}
}

// Check evaluates every property in order and returns the first failure.
func (m *Monitor) Check(s *Sample) error {
	m.checked++
	for _, p := range m.props {
		if detail := p.Check(m, s); detail != "" {
			return &pumpchart.SafetyViolation{Property: p.Name, Tick: s.Tick, Detail: detail}
		}
	}
	return nil
}

// Add appends a property checked after the built-in ones.
func (m *Monitor) Add(p Property) {
	m.props = append(m.props, p)
}

// Checked returns how many samples have been checked.
func (m *Monitor) Checked() uint64 {
	return m.checked
}

// Properties is the ordered list of checked invariants.
var Properties = []Property{
	{
		Name:        "alarm-off-silent",
		Description: "with the device off the alarm chart publishes nothing",
		Check: func(m *Monitor, s *Sample) string {
			if m.alarm.Running(s.Alarm) {
				return ""
			}
			if s.Alarm.Out != (bus.AlarmOutputs{}) || s.Alarm.CurrentAlarm != 0 {
				return fmt.Sprintf("outputs %+v, currentAlarm %d", s.Alarm.Out, s.Alarm.CurrentAlarm)
			}
			return ""
		},
	},
	{
		Name:        "alarm-level-range",
		Description: "while on, the reported level is 1..4 and matches the selected alarm",
		Check: func(m *Monitor, s *Sample) string {
			if !m.alarm.Running(s.Alarm) {
				return ""
			}
			hl, current := s.Alarm.Out.HighestLevelAlarm, alarm.Condition(s.Alarm.CurrentAlarm)
			if hl < 1 || hl > 4 {
				return fmt.Sprintf("highestLevelAlarm %d", hl)
			}
			if current < alarm.None || current > alarm.InfusionNotStarted {
				return fmt.Sprintf("currentAlarm %d", current)
			}
			if current != alarm.None && current.Level() != hl {
				return fmt.Sprintf("currentAlarm %s has level %d, reported %d", current, current.Level(), hl)
			}
			return ""
		},
	},
	{
		Name:        "no-alarm-level-one",
		Description: "while on, no selected alarm means level 1",
		Check: func(m *Monitor, s *Sample) string {
			if m.alarm.Running(s.Alarm) && s.Alarm.CurrentAlarm == 0 && s.Alarm.Out.HighestLevelAlarm != 1 {
				return fmt.Sprintf("highestLevelAlarm %d", s.Alarm.Out.HighestLevelAlarm)
			}
			return ""
		},
	},
	{
		Name:        "empty-reservoir-level-four",
		Description: "an empty reservoir during therapy raises a level 4 alarm",
		Check: func(_ *Monitor, s *Sample) string {
			st := s.Stimulus
			if st.TopLevel.SystemOn && st.Status.InTherapy && st.Status.ReservoirEmpty &&
				s.Alarm.Out.HighestLevelAlarm != 4 {
				return fmt.Sprintf("highestLevelAlarm %d", s.Alarm.Out.HighestLevelAlarm)
			}
			return ""
		},
	},
	{
		Name:        "mode-range",
		Description: "the system mode is one the infusion manager defines",
		Check: func(_ *Monitor, s *Sample) string {
			if !infusion.ValidMode(s.Infusion.Out.CurrentSystemMode) {
				return fmt.Sprintf("currentSystemMode %d", s.Infusion.Out.CurrentSystemMode)
			}
			return ""
		},
	},
	{
		Name:        "no-delivery-while-paused",
		Description: "an inhibit request or a level 3 or 4 alarm stops basal and bolus delivery",
		Check: func(m *Monitor, s *Sample) string {
			if !m.infusion.Running(s.Infusion) {
				return ""
			}
			if !s.Stimulus.Operator.InfusionInhibit && s.Alarm.Out.HighestLevelAlarm < 3 {
				return ""
			}
			switch mode := s.Infusion.Out.CurrentSystemMode; mode {
			case infusion.ModeBasal, infusion.ModeIntermittentBolus, infusion.ModePatientBolus:
				return fmt.Sprintf("currentSystemMode %d with inhibit %t and alarm level %d",
					mode, s.Stimulus.Operator.InfusionInhibit, s.Alarm.Out.HighestLevelAlarm)
			}
			return ""
		},
	},
}
