package pumpchart

import (
	"fmt"
	"slices"
)

// Memory is the working memory of one chart instance: the active tag of
// every OR region, the activation flag of every region slot, and every
// timer. It is owned by exactly one chart and mutated only by Machine.Step.
type Memory struct {
	Tags   []Tag   `json:"tags" yaml:"tags"`
	Active []bool  `json:"active" yaml:"active"`
	Timers []Timer `json:"timers" yaml:"timers"`
}

// Timer returns the timer with the given id.
func (m *Memory) Timer(id TimerID) *Timer {
	return &m.Timers[id]
}

// Reset puts every region back to NoActiveChild, clears every activation
// flag and zeroes every timer.
func (m *Memory) Reset() {
	clear(m.Tags)
	clear(m.Active)
	clear(m.Timers)
}

// Clone returns a deep copy.
func (m Memory) Clone() Memory {
	return Memory{
		Tags:   slices.Clone(m.Tags),
		Active: slices.Clone(m.Active),
		Timers: slices.Clone(m.Timers),
	}
}

// Equal reports whether two memories hold the same values.
func (m Memory) Equal(o Memory) bool {
	return slices.Equal(m.Tags, o.Tags) &&
		slices.Equal(m.Active, o.Active) &&
		slices.Equal(m.Timers, o.Timers)
}

// IsReset reports whether the memory is in the state produced by Reset.
func (m Memory) IsReset() bool {
	for _, t := range m.Tags {
		if t != NoActiveChild {
			return false
		}
	}
	for _, a := range m.Active {
		if a {
			return false
		}
	}
	for _, t := range m.Timers {
		if t != 0 {
			return false
		}
	}
	return true
}

// fits checks that the memory was sized for a machine with the given layout.
func (m *Memory) fits(slots, timers int) error {
	if len(m.Tags) != slots || len(m.Active) != slots || len(m.Timers) != timers {
		return fmt.Errorf("%w: memory has %d/%d slots and %d timers, chart needs %d slots and %d timers",
			ErrNotInitialized, len(m.Tags), len(m.Active), len(m.Timers), slots, timers)
	}
	return nil
}
