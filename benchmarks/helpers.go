// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"fmt"
	"testing"

	"github.com/comalice/pumpchart"
	"github.com/comalice/pumpchart/internal/alarm"
	"github.com/comalice/pumpchart/internal/infusion"
)

// Counter is the context of the synthetic charts. Every during action
// increments it.
type Counter struct {
	N int
}

func inc(c *Counter) { c.N++ }

// GenDeepChart creates a chain of depth nested OR states with two leaves
// at the bottom flipping every tick.
func GenDeepChart(depth int) (*pumpchart.Machine[*Counter], error) {
	if depth < 1 {
		depth = 1
	}
	b := pumpchart.NewMachineBuilder[*Counter](fmt.Sprintf("deep_%d", depth))
	b.Root().Default("c0", nil, nil)

	path := ""
	for i := range depth {
		name := fmt.Sprintf("c%d", i)
		if path == "" {
			path = name
		} else {
			path += "." + name
		}
		sb := b.State(path, 1).Or().During(inc)
		if i < depth-1 {
			sb.Default(fmt.Sprintf("c%d", i+1), nil, nil)
		} else {
			sb.Default("leaf1", nil, nil)
		}
	}
	b.State(path+".leaf1", 1).On(path+".leaf2", nil, nil)
	b.State(path+".leaf2", 2).On(path+".leaf1", nil, nil)

	return b.Build()
}

// GenWideChart creates one main state with n guarded transitions of which
// only the last fires. Every target returns to main on the next tick.
func GenWideChart(n int) (*pumpchart.Machine[*Counter], error) {
	if n < 1 {
		n = 1
	}
	b := pumpchart.NewMachineBuilder[*Counter](fmt.Sprintf("wide_%d", n))
	b.Root().Default("main", nil, nil)

	never := func(*Counter) bool { return false }
	main := b.State("main", 1).During(inc)
	for i := range n {
		target := fmt.Sprintf("target%d", i)
		b.State(target, pumpchart.Tag(i+2)).On("main", nil, nil)
		if i == n-1 {
			main.On(target, nil, nil)
		} else {
			main.On(target, never, nil)
		}
	}

	return b.Build()
}

// GenParallelChart creates an AND state with n regions, each flipping
// between two leaves.
func GenParallelChart(n int) (*pumpchart.Machine[*Counter], error) {
	if n < 1 {
		n = 1
	}
	b := pumpchart.NewMachineBuilder[*Counter](fmt.Sprintf("parallel_%d", n))
	b.Root().Default("P", nil, nil)
	b.State("P", 1).And()
	for i := range n {
		r := fmt.Sprintf("P.r%d", i)
		b.State(r, 0).Or().Default("off", nil, nil)
		b.State(r+".off", 1).During(inc).On(r+".on", nil, nil)
		b.State(r+".on", 2).During(inc).On(r+".off", nil, nil)
	}
	return b.Build()
}

// Charts builds the alarm and infusion charts or fails the benchmark.
func Charts(tb testing.TB) (*alarm.Chart, *infusion.Chart) {
	tb.Helper()
	a, err := alarm.New()
	if err != nil {
		tb.Fatal(err)
	}
	i, err := infusion.New()
	if err != nil {
		tb.Fatal(err)
	}
	return a, i
}
