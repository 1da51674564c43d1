package primitives

import (
	"errors"
	"fmt"
)

// StateType mirrors the engine's state kinds.
type StateType string

const (
	Leaf StateType = "leaf"
	Or   StateType = "or"
	And  StateType = "and"
)

// StateConfig describes one state and, recursively, its children.
type StateConfig struct {
	ID          string             `json:"id" yaml:"id"` // dotted path
	Name        string             `json:"name" yaml:"name"`
	Tag         int                `json:"tag" yaml:"tag"`
	Type        StateType          `json:"type" yaml:"type"`
	Entry       bool               `json:"entry,omitempty" yaml:"entry,omitempty"`
	Exit        bool               `json:"exit,omitempty" yaml:"exit,omitempty"`
	During      bool               `json:"during,omitempty" yaml:"during,omitempty"`
	Timers      []int              `json:"timers,omitempty" yaml:"timers,omitempty"`
	Defaults    []TransitionConfig `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Transitions []TransitionConfig `json:"transitions,omitempty" yaml:"transitions,omitempty"`
	Children    []*StateConfig     `json:"children,omitempty" yaml:"children,omitempty"`
}

// Walk visits s and every descendant in pre-order. Returning false from fn
// skips the children of that state.
func (s *StateConfig) Walk(fn func(*StateConfig) bool) {
	if !fn(s) {
		return
	}
	for _, child := range s.Children {
		child.Walk(fn)
	}
}

// Flatten returns every state keyed by its dotted path.
func (s *StateConfig) Flatten() map[string]*StateConfig {
	m := make(map[string]*StateConfig)
	s.Walk(func(st *StateConfig) bool {
		m[st.ID] = st
		return true
	})
	return m
}

// Validate performs recursive structural validation.
func (s *StateConfig) Validate() error {
	if s.ID == "" {
		return errors.New("state ID is required")
	}

	switch s.Type {
	case Leaf:
		if len(s.Children) > 0 {
			return fmt.Errorf("leaf state %s cannot have children", s.ID)
		}
		if len(s.Defaults) > 0 {
			return fmt.Errorf("leaf state %s cannot have default branches", s.ID)
		}
	case Or:
		if len(s.Children) == 0 {
			return fmt.Errorf("or state %s requires children", s.ID)
		}
		if len(s.Defaults) == 0 {
			return fmt.Errorf("or state %s requires a default branch", s.ID)
		}
		tags := make(map[int]string, len(s.Children))
		for _, child := range s.Children {
			if child.Tag == 0 {
				return fmt.Errorf("child %s of %s uses reserved tag 0", child.ID, s.ID)
			}
			if prev, dup := tags[child.Tag]; dup {
				return fmt.Errorf("children %s and %s of %s share tag %d", prev, child.ID, s.ID, child.Tag)
			}
			tags[child.Tag] = child.ID
		}
		for i, d := range s.Defaults {
			if !s.hasChild(d.Target) {
				return fmt.Errorf("default %d of %s targets %q, not a direct child", i, s.ID, d.Target)
			}
		}
	case And:
		if len(s.Children) == 0 {
			return fmt.Errorf("and state %s requires regions", s.ID)
		}
		if len(s.Defaults) > 0 {
			return fmt.Errorf("and state %s cannot have default branches", s.ID)
		}
	default:
		return fmt.Errorf("invalid state type %q for state %s", s.Type, s.ID)
	}

	for i, t := range s.Transitions {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transition %d of %s: %w", i, s.ID, err)
		}
	}

	for i, child := range s.Children {
		if err := child.Validate(); err != nil {
			return fmt.Errorf("child %d (%s) of %s failed validation: %w", i, child.ID, s.ID, err)
		}
	}
	return nil
}

func (s *StateConfig) hasChild(id string) bool {
	for _, child := range s.Children {
		if child.ID == id {
			return true
		}
	}
	return false
}
