package primitives

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// TransitionConfig describes a transition or a default branch.
type TransitionConfig struct {
	Target  string `json:"target" yaml:"target"`
	Guarded bool   `json:"guarded,omitempty" yaml:"guarded,omitempty"`
	Action  bool   `json:"action,omitempty" yaml:"action,omitempty"`
}

// Validate checks the target path syntax.
func (t *TransitionConfig) Validate() error {
	if t.Target == "" {
		return errors.New("target is required")
	}
	for i, seg := range strings.Split(t.Target, ".") {
		if seg == "" {
			return fmt.Errorf("invalid target path %q: empty segment at index %d", t.Target, i)
		}
		for _, r := range seg {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
				return fmt.Errorf("invalid target path %q: character %q in segment %q", t.Target, r, seg)
			}
		}
	}
	return nil
}

// Label renders the transition for diagrams: "[g]" when guarded, "/a" when
// it runs an action.
func (t TransitionConfig) Label() string {
	var b strings.Builder
	if t.Guarded {
		b.WriteString("[g]")
	}
	if t.Action {
		b.WriteString("/a")
	}
	return b.String()
}
