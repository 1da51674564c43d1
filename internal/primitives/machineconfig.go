package primitives

import (
	"errors"
	"fmt"
	"strings"
)

// MachineConfig describes a complete chart.
type MachineConfig struct {
	Version string       `json:"version,omitempty" yaml:"version,omitempty"`
	ID      string       `json:"id" yaml:"id"`
	Timers  int          `json:"timers" yaml:"timers"`
	Root    *StateConfig `json:"root" yaml:"root"`
}

// Validate validates the description:
//   - non-empty ID and a root OR state
//   - every state validates (recursive)
//   - state paths are unique
//   - every transition target exists
//   - every timer id is in range
func (m *MachineConfig) Validate() error {
	if m.ID == "" {
		return errors.New("machine ID is required")
	}
	if m.Root == nil {
		return errors.New("root state is required")
	}
	if m.Root.Type != Or {
		return fmt.Errorf("root state %s must be an or state, got %s", m.Root.ID, m.Root.Type)
	}
	if err := m.Root.Validate(); err != nil {
		return err
	}

	states := make(map[string]*StateConfig)
	var dup error
	m.Root.Walk(func(s *StateConfig) bool {
		if _, ok := states[s.ID]; ok && dup == nil {
			dup = fmt.Errorf("duplicate state path %q", s.ID)
		}
		states[s.ID] = s
		return true
	})
	if dup != nil {
		return dup
	}

	for id, s := range states {
		for i, t := range s.Transitions {
			if _, ok := states[t.Target]; !ok {
				return fmt.Errorf("invalid transition target %q (state %q, transition %d)", t.Target, id, i)
			}
		}
		for _, timer := range s.Timers {
			if timer < 0 || timer >= m.Timers {
				return fmt.Errorf("state %q uses timer %d, chart declares %d", id, timer, m.Timers)
			}
		}
	}
	return nil
}

// FindState resolves a state by dotted path relative to the root, e.g.
// "ALARMS.CheckAlarm.Level2". The root's own ID resolves to the root.
func (m *MachineConfig) FindState(path string) (*StateConfig, error) {
	if path == "" {
		return nil, errors.New("path cannot be empty")
	}
	if m.Root == nil {
		return nil, errors.New("machine has no root")
	}
	if path == m.Root.ID {
		return m.Root, nil
	}

	segments := strings.Split(path, ".")
	current := m.Root
	for i, seg := range segments {
		var next *StateConfig
		for _, child := range current.Children {
			if child.Name == seg {
				next = child
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("child %q not found in %q", seg, strings.Join(segments[:i], "."))
		}
		current = next
	}
	return current, nil
}

// Leaves returns the paths of every leaf state in pre-order.
func (m *MachineConfig) Leaves() []string {
	var out []string
	if m.Root == nil {
		return out
	}
	m.Root.Walk(func(s *StateConfig) bool {
		if s.Type == Leaf {
			out = append(out, s.ID)
		}
		return true
	})
	return out
}
