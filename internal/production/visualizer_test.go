// Tests for DOT export of the real charts.
package production

import (
	"strings"
	"testing"

	"github.com/comalice/pumpchart/internal/alarm"
	"github.com/comalice/pumpchart/internal/bus"
	"github.com/comalice/pumpchart/internal/infusion"
)

func TestDefaultVisualizer_ExportDOT_Alarm(t *testing.T) {
	c, err := alarm.New()
	if err != nil {
		t.Fatal(err)
	}
	mem := c.NewMemory()
	c.Init(&mem)

	v := &DefaultVisualizer{}
	dot := v.ExportDOT(c.Describe(), c.Configuration(&mem))

	if !strings.HasPrefix(dot, `digraph "Alarm" {`) {
		t.Errorf("missing DOT header: %q", dot[:40])
	}
	if !strings.Contains(dot, `"ALARMS" -> "NOT_ON" [label="[g]"]`) {
		t.Error("missing ALARMS -> NOT_ON edge")
	}
	if !strings.Contains(dot, "subgraph cluster_ALARMS_CheckAlarm_Level4 {") {
		t.Error("missing Level4 cluster")
	}
	if strings.Contains(dot, "lightgreen") {
		t.Error("no state should be highlighted before the first tick")
	}
	if strings.Count(dot, "{") != strings.Count(dot, "}") {
		t.Error("unbalanced braces")
	}
}

func TestDefaultVisualizer_ExportDOT_Active(t *testing.T) {
	c, err := infusion.New()
	if err != nil {
		t.Fatal(err)
	}
	mem := c.NewMemory()
	c.Init(&mem)

	var in infusion.Inputs
	in.TopLevel.SystemOn = true
	in.Config = bus.ConfigOutputs{Configured: 1, InfusionTotalDuration: 100, VTBITotal: 100, FlowRateBasal: 10}
	in.Operator.InfusionInitiate = true
	for range 2 {
		if _, err := c.Evaluate(in, &mem); err != nil {
			t.Fatal(err)
		}
	}

	v := &DefaultVisualizer{}
	dot := v.ExportDOT(c.Describe(), c.Configuration(&mem))

	if !strings.Contains(dot, `"Infusion_Manager.THERAPY.ACTIVE.Arbiter.Basal" [label="Basal" style="rounded,filled" fillcolor=lightgreen]`) {
		t.Error("active basal leaf not highlighted")
	}
	if !strings.Contains(dot, `"Infusion_Manager.IDLE" [label="IDLE"];`) {
		t.Error("inactive IDLE leaf should not be highlighted")
	}
	if !strings.Contains(dot, "style=dashed;") {
		t.Error("AND states should be drawn dashed")
	}
}

func TestDefaultVisualizer_ExportJSON(t *testing.T) {
	c, err := alarm.New()
	if err != nil {
		t.Fatal(err)
	}
	v := &DefaultVisualizer{}
	data, err := v.ExportJSON(c.Describe())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"id": "Alarm"`) {
		t.Error("JSON export missing machine id")
	}
}

func TestActiveStates(t *testing.T) {
	active := activeStates("Root", []string{"A.B.C", "D"})
	for _, want := range []string{"Root", "A", "A.B", "A.B.C", "D"} {
		if !active[want] {
			t.Errorf("%s should be active", want)
		}
	}
	if active["B"] {
		t.Error("B is not a path")
	}
	if len(activeStates("Root", nil)) != 0 {
		t.Error("nothing is active before the first tick")
	}
}
