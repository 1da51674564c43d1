package pumpchart

// run carries the state of one tick through the recursive interpreter.
type run[C any] struct {
	m    *Machine[C]
	c    C
	mem  *Memory
	errs []error
}

func (r *run[C]) malformed(n *Node[C], reason string) {
	r.errs = append(r.errs, &MalformedChartError{State: n.Path(), Reason: reason})
}

// activate records n as active in its parent's region and in its own slot.
func (r *run[C]) activate(n *Node[C]) {
	if p := n.parent; p != nil && p.Kind == Or {
		r.mem.Tags[p.slot] = n.Tag
	}
	if n.slot >= 0 {
		r.mem.Active[n.slot] = true
	}
}

func (r *run[C]) deactivate(n *Node[C]) {
	if p := n.parent; p != nil && p.Kind == Or && r.mem.Tags[p.slot] == n.Tag {
		r.mem.Tags[p.slot] = NoActiveChild
	}
	if n.slot >= 0 {
		r.mem.Active[n.slot] = false
		if n.Kind == Or {
			r.mem.Tags[n.slot] = NoActiveChild
		}
	}
}

// enter activates n, runs its entry action and enters its descendants. A
// non-empty path names the descendants to enter explicitly, outermost first;
// regions not on the path take their default branch.
func (r *run[C]) enter(n *Node[C], path []*Node[C]) {
	r.activate(n)
	for _, id := range n.Timers {
		r.mem.Timers[id].Reset()
	}
	if r.m.tracer != nil {
		r.m.tracer.OnEnter(n.Path())
	}
	if n.Entry != nil {
		n.Entry(r.c)
	}

	switch n.Kind {
	case Or:
		if len(path) > 0 {
			r.enter(path[0], path[1:])
			return
		}
		for _, b := range n.Defaults {
			if b.Guard != nil && !b.Guard(r.c) {
				continue
			}
			if b.Action != nil {
				b.Action(r.c)
			}
			r.enter(b.Target, nil)
			return
		}
		r.malformed(n, "no default branch applies")
	case And:
		for _, region := range n.Children {
			if len(path) > 0 && path[0] == region {
				r.enter(region, path[1:])
				continue
			}
			r.enter(region, nil)
		}
	}
}

// exit leaves the active descendants of n innermost first, then runs the
// exit action of n and deactivates it. AND regions exit in reverse order.
func (r *run[C]) exit(n *Node[C]) {
	switch n.Kind {
	case Or:
		if child := n.ActiveChild(r.mem); child != nil {
			r.exit(child)
		}
	case And:
		for i := len(n.Children) - 1; i >= 0; i-- {
			if region := n.Children[i]; region.IsActive(r.mem) {
				r.exit(region)
			}
		}
	}
	if n.Exit != nil {
		n.Exit(r.c)
	}
	if r.m.tracer != nil {
		r.m.tracer.OnExit(n.Path())
	}
	r.deactivate(n)
}

// step evaluates the outgoing transitions of an active state in declared
// order. The first whose guard holds fires and ends the step for n.
// Otherwise the during action runs and the step descends.
func (r *run[C]) step(n *Node[C]) {
	for _, t := range n.Transitions {
		if t.Guard == nil || t.Guard(r.c) {
			r.fire(n, t)
			return
		}
	}
	if n.During != nil {
		n.During(r.c)
	}

	switch n.Kind {
	case Or:
		child := n.ActiveChild(r.mem)
		if child == nil {
			r.malformed(n, "active OR state has no active child")
			return
		}
		r.step(child)
	case And:
		for _, region := range n.Children {
			if !n.IsActive(r.mem) {
				return
			}
			r.step(region)
		}
	}
}

// fire takes transition t owned by src. The source-side child of the least
// common ancestor is exited, the transition action runs, then the path down
// to the target is entered. A transition to self or to an ancestor leaves
// and re-enters it.
func (r *run[C]) fire(src *Node[C], t *Transition[C]) {
	scope := lca(src, t.Target)
	srcChain := src.ancestors()
	dstChain := t.Target.ancestors()
	depth := len(scope.ancestors())

	r.exit(srcChain[depth])
	if r.m.tracer != nil {
		r.m.tracer.OnTransition(src.Path(), t.Target.Path())
	}
	if t.Action != nil {
		t.Action(r.c)
	}
	r.enter(dstChain[depth], dstChain[depth+1:])
}

// lca returns the deepest state that strictly contains both a and b. When
// one is an ancestor of the other, or they are the same state, the parent
// of the outer one is used so that it is exited and re-entered.
func lca[C any](a, b *Node[C]) *Node[C] {
	ca, cb := a.ancestors(), b.ancestors()
	var common *Node[C]
	for i := 0; i < len(ca) && i < len(cb) && ca[i] == cb[i]; i++ {
		common = ca[i]
	}
	if common == a || common == b {
		return common.parent
	}
	return common
}
