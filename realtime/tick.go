package realtime

import (
	"context"
	"encoding/json"

	"github.com/comalice/pumpchart/internal/alarm"
	"github.com/comalice/pumpchart/internal/bus"
	"github.com/comalice/pumpchart/internal/config"
	"github.com/comalice/pumpchart/internal/infusion"
	"github.com/comalice/pumpchart/internal/logger"
	"github.com/comalice/pumpchart/internal/safety"
)

// Step runs one complete cycle and returns its record. The only errors
// are a safety violation, which halts the driver, and the halt itself on
// later calls.
func (d *Driver) Step(ctx context.Context) (bus.Cycle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.halted != nil {
		return bus.Cycle{}, d.halted
	}
	h := d.alarmPhase(ctx, d.infusionMem.Out)
	return d.infusionPhase(ctx, h)
}

// handoff carries the alarm half of a cycle to the infusion half.
type handoff struct {
	tick        uint64
	alarmOut    bus.AlarmOutputs
	diagnostics []string
}

// alarmPhase applies due patches and evaluates the alarm chart against
// the previous cycle's infusion output. Callers hold d.mu.
func (d *Driver) alarmPhase(ctx context.Context, prev bus.InfusionManagerOutputs) handoff {
	h := handoff{tick: d.tickNum}

	due := d.collectPatches(h.tick)
	sortPatches(due)
	for _, batch := range batchByTick(due) {
		if err := config.ApplyTick(&d.stimulus, batch); err != nil {
			h.diagnostics = append(h.diagnostics, err.Error())
			logger.WarnKV(ctx, "patch rejected", "tick", h.tick, "error", err)
		}
	}

	out, err := d.alarm.Evaluate(alarm.FromStimulus(&d.stimulus, prev), &d.alarmMem)
	if err != nil {
		h.diagnostics = append(h.diagnostics, err.Error())
		logger.WarnKV(ctx, "alarm chart diagnostic", "tick", h.tick, "error", err)
	}
	h.alarmOut = out
	return h
}

// infusionPhase evaluates the infusion chart with the alarm output, then
// publishes and checks the cycle. Callers hold d.mu.
func (d *Driver) infusionPhase(ctx context.Context, h handoff) (bus.Cycle, error) {
	out, err := d.infusion.Evaluate(infusion.FromStimulus(&d.stimulus, h.alarmOut), &d.infusionMem)
	if err != nil {
		h.diagnostics = append(h.diagnostics, err.Error())
		logger.WarnKV(ctx, "infusion chart diagnostic", "tick", h.tick, "error", err)
	}

	cycle := bus.Cycle{
		Tick:          h.tick,
		Stimulus:      d.stimulus,
		Alarm:         h.alarmOut,
		CurrentAlarm:  d.alarmMem.CurrentAlarm,
		Infusion:      out,
		AlarmState:    d.alarm.Configuration(&d.alarmMem),
		InfusionState: d.infusion.Configuration(&d.infusionMem),
		Diagnostics:   h.diagnostics,
	}
	d.tickNum++

	signals := Signals(cycle)
	if d.signals != nil {
		d.signals.Publish(signals)
	}
	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, cycle); err != nil {
			logger.WarnKV(ctx, "publish cycle", "tick", h.tick, "error", err)
		}
	}

	logger.DebugKV(ctx, "cycle",
		"tick", h.tick,
		"alarm", alarm.Condition(cycle.CurrentAlarm).String(),
		"level", cycle.Alarm.HighestLevelAlarm,
		"mode", cycle.Infusion.CurrentSystemMode,
		"flow", cycle.Infusion.CommandedFlowRate,
	)

	err = d.monitor.Check(&safety.Sample{
		Tick:     h.tick,
		Stimulus: &d.stimulus,
		Alarm:    &d.alarmMem,
		Infusion: &d.infusionMem,
		Signals:  signals,
	})
	if err != nil {
		d.halted = err
		logger.ErrorKV(ctx, "safety violation", "tick", h.tick, "error", err)
		return cycle, err
	}

	return cycle, nil
}

// collectPatches removes and returns the pending patches due at tick.
func (d *Driver) collectPatches(tick uint64) []PatchWithMeta {
	d.batchMu.Lock()
	defer d.batchMu.Unlock()

	var due []PatchWithMeta
	kept := d.pending[:0]
	for _, p := range d.pending {
		if p.Patch.At <= tick {
			due = append(due, p)
		} else {
			kept = append(kept, p)
		}
	}
	clear(d.pending[len(kept):])
	d.pending = kept

	return due
}

// batchByTick splits sorted patches into runs sharing the same tick.
func batchByTick(sorted []PatchWithMeta) [][]config.Patch {
	var batches [][]config.Patch
	for i, p := range sorted {
		if i == 0 || p.Patch.At != sorted[i-1].Patch.At {
			batches = append(batches, nil)
		}
		batches[len(batches)-1] = append(batches[len(batches)-1], p.Patch)
	}
	return batches
}

// Signals flattens a cycle record into dotted signal names. Booleans
// become 0 and 1. Active state lists and diagnostics are not included.
func Signals(c bus.Cycle) map[string]int64 {
	out := map[string]int64{
		"tick":               int64(c.Tick),
		"alarm.currentAlarm": int64(c.CurrentAlarm),
	}
	flatten("stimulus", c.Stimulus, out)
	flatten("alarm", c.Alarm, out)
	flatten("infusion", c.Infusion, out)
	return out
}

func flatten(prefix string, v any, out map[string]int64) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return
	}
	walk(prefix, doc, out)
}

func walk(prefix string, doc map[string]any, out map[string]int64) {
	for key, v := range doc {
		name := prefix + "." + key
		switch v := v.(type) {
		case map[string]any:
			walk(name, v, out)
		case float64:
			out[name] = int64(v)
		case bool:
			if v {
				out[name] = 1
			} else {
				out[name] = 0
			}
		}
	}
}
