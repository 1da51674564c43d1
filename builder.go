package pumpchart

import (
	"errors"
	"fmt"
	"strings"
)

// MachineBuilder provides a fluent API for constructing charts by state
// path instead of wiring Node pointers by hand. Paths are dotted from the
// root's children, e.g. "ALARMS.CheckAlarm.Level2.LowReservoir.No".
// Transition targets may name states declared later; they are resolved by
// Build.
type MachineBuilder[C any] struct {
	root   *Node[C]
	states map[string]*Node[C]
	edges  []pendingEdge[C]
	errs   []error
}

// StateBuilder configures one state.
type StateBuilder[C any] struct {
	b    *MachineBuilder[C]
	node *Node[C]
	path string
}

type pendingEdge[C any] struct {
	owner   *Node[C]
	target  string
	guard   Guard[C]
	action  Action[C]
	initial bool
}

// NewMachineBuilder creates a builder whose root is an OR state.
func NewMachineBuilder[C any](rootName string) *MachineBuilder[C] {
	root := &Node[C]{Name: rootName, Kind: Or}
	return &MachineBuilder[C]{
		root:   root,
		states: map[string]*Node[C]{"": root},
	}
}

// Root returns the builder for the root state.
func (b *MachineBuilder[C]) Root() *StateBuilder[C] {
	return &StateBuilder[C]{b: b, node: b.root}
}

// State declares a state under its parent path, or returns the existing
// builder for it. The parent must already be declared. New states are
// leaves until marked Or or And; children keep declaration order.
func (b *MachineBuilder[C]) State(path string, tag Tag) *StateBuilder[C] {
	if n, ok := b.states[path]; ok {
		if n.Tag != tag {
			b.errs = append(b.errs, fmt.Errorf("state %s redeclared with tag %d, was %d", path, tag, n.Tag))
		}
		return &StateBuilder[C]{b: b, node: n, path: path}
	}

	parentPath, name := splitPath(path)
	parent, ok := b.states[parentPath]
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("state %s declared before its parent %q", path, parentPath))
		parent = b.root
	}

	n := &Node[C]{Name: name, Tag: tag, Kind: Leaf}
	parent.Children = append(parent.Children, n)
	b.states[path] = n
	return &StateBuilder[C]{b: b, node: n, path: path}
}

// Node returns the declared state at path, or nil.
func (b *MachineBuilder[C]) Node(path string) *Node[C] {
	return b.states[path]
}

// Build resolves transition targets and validates the chart.
func (b *MachineBuilder[C]) Build(opts ...Option) (*Machine[C], error) {
	errs := b.errs
	for _, e := range b.edges {
		target, ok := b.states[e.target]
		if !ok {
			errs = append(errs, fmt.Errorf("state %q: unknown target %q", e.owner.Name, e.target))
			continue
		}
		if e.initial {
			e.owner.Defaults = append(e.owner.Defaults, &Branch[C]{Guard: e.guard, Target: target, Action: e.action})
			continue
		}
		e.owner.Transitions = append(e.owner.Transitions, &Transition[C]{Guard: e.guard, Target: target, Action: e.action})
	}
	// Edges are consumed so a second Build does not duplicate them.
	b.edges = nil
	b.errs = nil
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedChart, err)
	}
	return NewMachine(b.root, opts...)
}

func splitPath(path string) (parent, name string) {
	idx := strings.LastIndex(path, ".")
	if idx == -1 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

// Or marks the state as an OR composite.
func (sb *StateBuilder[C]) Or() *StateBuilder[C] {
	sb.node.Kind = Or
	return sb
}

// And marks the state as an AND composite. Regions run in declaration order.
func (sb *StateBuilder[C]) And() *StateBuilder[C] {
	sb.node.Kind = And
	return sb
}

// Entry sets the entry action.
func (sb *StateBuilder[C]) Entry(a Action[C]) *StateBuilder[C] {
	sb.node.Entry = a
	return sb
}

// Exit sets the exit action.
func (sb *StateBuilder[C]) Exit(a Action[C]) *StateBuilder[C] {
	sb.node.Exit = a
	return sb
}

// During sets the action run on every tick the state stays active.
func (sb *StateBuilder[C]) During(a Action[C]) *StateBuilder[C] {
	sb.node.During = a
	return sb
}

// Timers declares the timers owned by the state.
func (sb *StateBuilder[C]) Timers(ids ...TimerID) *StateBuilder[C] {
	sb.node.Timers = append(sb.node.Timers, ids...)
	return sb
}

// Default adds a default branch to the named direct child. Branches are
// tried in the order added; a nil guard always applies.
func (sb *StateBuilder[C]) Default(child string, guard Guard[C], action Action[C]) *StateBuilder[C] {
	target := child
	if sb.path != "" {
		target = sb.path + "." + child
	}
	sb.b.edges = append(sb.b.edges, pendingEdge[C]{
		owner: sb.node, target: target, guard: guard, action: action, initial: true,
	})
	return sb
}

// On adds a transition to the state at target path. Transitions are tried
// in the order added; a nil guard always fires.
func (sb *StateBuilder[C]) On(target string, guard Guard[C], action Action[C]) *StateBuilder[C] {
	sb.b.edges = append(sb.b.edges, pendingEdge[C]{
		owner: sb.node, target: target, guard: guard, action: action,
	})
	return sb
}

// Self adds a transition that exits and re-enters the state.
func (sb *StateBuilder[C]) Self(guard Guard[C], action Action[C]) *StateBuilder[C] {
	return sb.On(sb.path, guard, action)
}

// Seq composes actions into one, run in order. Nil actions are skipped.
func Seq[C any](actions ...Action[C]) Action[C] {
	return func(c C) {
		for _, a := range actions {
			if a != nil {
				a(c)
			}
		}
	}
}

// Not negates a guard.
func Not[C any](g Guard[C]) Guard[C] {
	return func(c C) bool { return !g(c) }
}
