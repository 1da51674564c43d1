package pumpchart

// Tag identifies a child state within its parent OR region.
type Tag int

// NoActiveChild is the tag of an OR region that has not been entered.
const NoActiveChild Tag = 0

// Kind distinguishes leaf states from the two composite variants.
type Kind int

const (
	Leaf Kind = iota
	Or        // exactly one child active
	And       // every child region active together
)

func (k Kind) String() string {
	switch k {
	case Or:
		return "or"
	case And:
		return "and"
	default:
		return "leaf"
	}
}

// Action mutates the chart context. C is the chart's per-tick context type.
type Action[C any] func(c C)

// Guard reports whether a transition or default branch may be taken.
type Guard[C any] func(c C) bool

// Transition is a guarded edge owned by a state. A nil Guard always passes.
type Transition[C any] struct {
	Guard  Guard[C]
	Target *Node[C]
	Action Action[C]
}

// Branch is one arm of an OR region's default (initial) transition.
// A nil Guard marks the designated default arm.
type Branch[C any] struct {
	Guard  Guard[C]
	Target *Node[C]
	Action Action[C]
}

// Node is a state in the static chart hierarchy.
type Node[C any] struct {
	Name        string
	Tag         Tag
	Kind        Kind
	Children    []*Node[C]
	Defaults    []*Branch[C]
	Transitions []*Transition[C]
	Entry       Action[C]
	Exit        Action[C]
	During      Action[C]
	// Timers owned by this state. They are reset to zero on entry.
	Timers []TimerID

	parent *Node[C]
	slot   int // -1 when the node keeps no slot in Memory
	path   string
	byTag  map[Tag]*Node[C]
}

// Parent returns the enclosing state, or nil for the root.
func (n *Node[C]) Parent() *Node[C] {
	return n.parent
}

// Path returns the dotted path from the root, available once the node is
// part of a Machine.
func (n *Node[C]) Path() string {
	if n.path == "" {
		return n.Name
	}
	return n.path
}

// IsActive reports whether the node is part of the active configuration.
func (n *Node[C]) IsActive(mem *Memory) bool {
	if n.parent == nil || n.parent.Kind == And {
		return n.slot >= 0 && n.slot < len(mem.Active) && mem.Active[n.slot]
	}
	p := n.parent
	if !p.IsActive(mem) {
		return false
	}
	return mem.Tags[p.slot] == n.Tag
}

// ActiveChild returns the active child of an OR composite, or nil.
func (n *Node[C]) ActiveChild(mem *Memory) *Node[C] {
	if n.Kind != Or || n.slot < 0 || n.slot >= len(mem.Tags) {
		return nil
	}
	return n.byTag[mem.Tags[n.slot]]
}

// ancestors returns the chain from the root down to n, inclusive.
func (n *Node[C]) ancestors() []*Node[C] {
	var chain []*Node[C]
	for s := n; s != nil; s = s.parent {
		chain = append(chain, s)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
