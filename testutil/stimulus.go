package testutil

import (
	"math/rand"
	"reflect"
	"strings"

	"github.com/comalice/pumpchart/internal/bus"
	"github.com/comalice/pumpchart/internal/config"
)

// signal is one leaf of bus.Stimulus, addressed the way patches address it.
type signal struct {
	key   string
	index []int
	kind  reflect.Kind
}

// StimulusGen produces reproducible random stimuli. Integers span the
// scenario range 0..255 and booleans are mostly false, so that alarms are
// raised now and then rather than all at once.
type StimulusGen struct {
	rng     *rand.Rand
	signals []signal

	// TrueRate is the chance a boolean signal is set. SystemOnRate
	// overrides it for topLevel.systemOn.
	TrueRate     float64
	SystemOnRate float64
	// Density is the chance a signal is included in a patch.
	Density float64
}

// NewStimulusGen returns a generator seeded with seed.
func NewStimulusGen(seed int64) *StimulusGen {
	return &StimulusGen{
		rng:          rand.New(rand.NewSource(seed)), //nolint:gosec // Test data.
		signals:      collect(reflect.TypeOf(bus.Stimulus{}), "", nil),
		TrueRate:     0.1,
		SystemOnRate: 0.9,
		Density:      0.2,
	}
}

func collect(t reflect.Type, prefix string, index []int) []signal {
	var out []signal
	for i := range t.NumField() {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if prefix != "" {
			name = prefix + "." + name
		}
		idx := append(append([]int(nil), index...), i)
		if f.Type.Kind() == reflect.Struct {
			out = append(out, collect(f.Type, name, idx)...)
			continue
		}
		out = append(out, signal{key: name, index: idx, kind: f.Type.Kind()})
	}
	return out
}

// Keys returns every patchable signal name.
func (g *StimulusGen) Keys() []string {
	keys := make([]string, len(g.signals))
	for i, s := range g.signals {
		keys[i] = s.key
	}
	return keys
}

func (g *StimulusGen) value(s signal) any {
	if s.kind == reflect.Bool {
		rate := g.TrueRate
		if s.key == "topLevel.systemOn" {
			rate = g.SystemOnRate
		}
		return g.rng.Float64() < rate
	}
	return g.rng.Intn(config.MaxSignal + 1)
}

// Stimulus returns a stimulus with every signal drawn at random.
func (g *StimulusGen) Stimulus() bus.Stimulus {
	var st bus.Stimulus
	v := reflect.ValueOf(&st).Elem()
	for _, s := range g.signals {
		f := v.FieldByIndex(s.index)
		switch x := g.value(s).(type) {
		case bool:
			f.SetBool(x)
		case int:
			f.SetInt(int64(x))
		}
	}
	return st
}

// Patch returns a patch due at tick that sets a random subset of signals.
func (g *StimulusGen) Patch(at uint64) config.Patch {
	p := config.Patch{At: at, Set: make(map[string]any)}
	for _, s := range g.signals {
		if g.rng.Float64() < g.Density {
			p.Set[s.key] = g.value(s)
		}
	}
	if len(p.Set) == 0 {
		s := g.signals[g.rng.Intn(len(g.signals))]
		p.Set[s.key] = g.value(s)
	}
	return p
}

// Sequence returns one patch for each of ticks 0..n-1.
func (g *StimulusGen) Sequence(n uint64) []config.Patch {
	patches := make([]config.Patch, n)
	for t := range n {
		patches[t] = g.Patch(t)
	}
	return patches
}
