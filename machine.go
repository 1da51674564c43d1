package pumpchart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/comalice/pumpchart/internal/primitives"
)

// Machine is a validated, immutable chart hierarchy. All mutable state lives
// in Memory and in the context value passed to Step, so one Machine can
// drive any number of independent chart instances.
type Machine[C any] struct {
	name   string
	root   *Node[C]
	nodes  []*Node[C] // pre-order
	slots  int
	timers int
	tracer Tracer
}

// NewMachine links the hierarchy rooted at root, assigns memory slots and
// validates the structure. Every structural problem is reported, joined.
func NewMachine[C any](root *Node[C], opts ...Option) (*Machine[C], error) {
	if root == nil {
		return nil, &MalformedChartError{State: "<nil>", Reason: "root is nil"}
	}
	o := machineOptions{name: root.Name}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Machine[C]{
		name:   o.name,
		root:   root,
		timers: o.timers,
		tracer: o.tracer,
	}

	var errs []error
	seen := make(map[*Node[C]]bool)
	m.link(root, nil, seen, &errs)

	if root.Kind != Or {
		errs = append(errs, &MalformedChartError{State: root.Path(), Reason: "root must be an OR state"})
	}
	if len(root.Transitions) > 0 {
		errs = append(errs, &MalformedChartError{State: root.Path(), Reason: "root cannot own transitions"})
	}

	for _, n := range m.nodes {
		errs = append(errs, m.validate(n, seen)...)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Machine[C]) link(n, parent *Node[C], seen map[*Node[C]]bool, errs *[]error) {
	if seen[n] {
		*errs = append(*errs, &MalformedChartError{State: n.Name, Reason: "state attached more than once"})
		return
	}
	seen[n] = true
	m.nodes = append(m.nodes, n)

	n.parent = parent
	switch {
	case parent == nil:
		n.path = n.Name
	case parent.parent == nil:
		n.path = n.Name
	default:
		n.path = parent.path + "." + n.Name
	}

	n.slot = -1
	if parent == nil || parent.Kind == And || n.Kind == Or {
		n.slot = m.slots
		m.slots++
	}

	n.byTag = nil
	if n.Kind == Or {
		n.byTag = make(map[Tag]*Node[C], len(n.Children))
	}
	for _, child := range n.Children {
		if child == nil {
			*errs = append(*errs, &MalformedChartError{State: n.Path(), Reason: "nil child"})
			continue
		}
		m.link(child, n, seen, errs)
		if n.Kind != Or {
			continue
		}
		if child.Tag == NoActiveChild {
			*errs = append(*errs, &MalformedChartError{State: child.Path(), Reason: "tag 0 is reserved for no active child"})
			continue
		}
		if prev, dup := n.byTag[child.Tag]; dup {
			*errs = append(*errs, &MalformedChartError{
				State:  child.Path(),
				Reason: fmt.Sprintf("tag %d already used by %s", child.Tag, prev.Name),
			})
			continue
		}
		n.byTag[child.Tag] = child
	}
}

func (m *Machine[C]) validate(n *Node[C], seen map[*Node[C]]bool) []error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, &MalformedChartError{State: n.Path(), Reason: fmt.Sprintf(format, args...)})
	}

	switch n.Kind {
	case Leaf:
		if len(n.Children) > 0 {
			bad("leaf state has children")
		}
		if len(n.Defaults) > 0 {
			bad("leaf state has default branches")
		}
	case Or:
		if len(n.Children) == 0 {
			bad("OR state has no children")
		}
		if len(n.Defaults) == 0 {
			bad("OR state has no default branch")
		}
		for i, b := range n.Defaults {
			if b == nil || b.Target == nil {
				bad("default branch %d has no target", i)
				continue
			}
			if b.Target.parent != n {
				bad("default branch %d targets %s, which is not a direct child", i, b.Target.Path())
			}
		}
	case And:
		if len(n.Children) == 0 {
			bad("AND state has no regions")
		}
		if len(n.Defaults) > 0 {
			bad("AND state has default branches")
		}
	default:
		bad("unknown kind %d", n.Kind)
	}

	for _, id := range n.Timers {
		if id < 0 || int(id) >= m.timers {
			bad("timer %d out of range [0, %d)", id, m.timers)
		}
	}

	for i, t := range n.Transitions {
		if t == nil || t.Target == nil {
			bad("transition %d has no target", i)
			continue
		}
		if !seen[t.Target] {
			bad("transition %d targets %s, which is not part of this chart", i, t.Target.Name)
			continue
		}
		if n.parent == nil {
			continue
		}
		if l := lca(n, t.Target); l == nil || l.Kind != Or {
			bad("transition %d to %s crosses AND regions", i, t.Target.Path())
		}
	}
	return errs
}

// Name returns the machine identifier.
func (m *Machine[C]) Name() string {
	return m.name
}

// Root returns the top-level state.
func (m *Machine[C]) Root() *Node[C] {
	return m.root
}

// Find returns the state with the given dotted path, or nil.
func (m *Machine[C]) Find(path string) *Node[C] {
	for _, n := range m.nodes {
		if n.path == path {
			return n
		}
	}
	return nil
}

// NewMemory returns memory sized for this machine, in its reset state.
func (m *Machine[C]) NewMemory() Memory {
	return Memory{
		Tags:   make([]Tag, m.slots),
		Active: make([]bool, m.slots),
		Timers: make([]Timer, m.timers),
	}
}

// Init sizes mem for this machine and resets it, so the next Step performs
// the initial entry.
func (m *Machine[C]) Init(mem *Memory) {
	if err := mem.fits(m.slots, m.timers); err != nil {
		*mem = m.NewMemory()
		return
	}
	mem.Reset()
}

// Started reports whether the root has been entered.
func (m *Machine[C]) Started(mem *Memory) bool {
	return m.root.IsActive(mem)
}

// Step runs one tick: the initial entry on the first call after Init,
// otherwise one step of the root. MalformedChartError diagnostics raised
// during the tick are joined into the returned error; the tick still runs
// to completion.
func (m *Machine[C]) Step(c C, mem *Memory) error {
	if err := mem.fits(m.slots, m.timers); err != nil {
		return err
	}
	r := run[C]{m: m, c: c, mem: mem}
	if !m.root.IsActive(mem) {
		r.enter(m.root, nil)
	} else {
		r.step(m.root)
	}
	return errors.Join(r.errs...)
}

// Configuration returns the dotted paths of every active leaf, in chart
// order.
func (m *Machine[C]) Configuration(mem *Memory) []string {
	if mem.fits(m.slots, m.timers) != nil {
		return nil
	}
	var out []string
	for _, n := range m.nodes {
		if n.Kind == Leaf && n.IsActive(mem) {
			out = append(out, n.path)
		}
	}
	return out
}

// Describe returns a serializable description of the chart structure.
func (m *Machine[C]) Describe() primitives.MachineConfig {
	cfg := primitives.MachineConfig{
		ID:     m.name,
		Timers: m.timers,
		Root:   describe(m.root),
	}
	cfg.Version = primitives.ComputeVersion(&cfg)
	return cfg
}

func describe[C any](n *Node[C]) *primitives.StateConfig {
	sc := &primitives.StateConfig{
		ID:     n.path,
		Name:   n.Name,
		Tag:    int(n.Tag),
		Type:   primitives.StateType(n.Kind.String()),
		During: n.During != nil,
	}
	sc.Entry = n.Entry != nil
	sc.Exit = n.Exit != nil
	for _, id := range n.Timers {
		sc.Timers = append(sc.Timers, int(id))
	}
	for _, b := range n.Defaults {
		sc.Defaults = append(sc.Defaults, primitives.TransitionConfig{
			Target:  b.Target.path,
			Guarded: b.Guard != nil,
			Action:  b.Action != nil,
		})
	}
	for _, t := range n.Transitions {
		sc.Transitions = append(sc.Transitions, primitives.TransitionConfig{
			Target:  t.Target.path,
			Guarded: t.Guard != nil,
			Action:  t.Action != nil,
		})
	}
	for _, child := range n.Children {
		sc.Children = append(sc.Children, describe(child))
	}
	return sc
}

// Render formats the active configuration on one line.
func (m *Machine[C]) Render(mem *Memory) string {
	return m.name + "{" + strings.Join(m.Configuration(mem), ", ") + "}"
}
