package minepump

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPumpRunning is returned when the system is started or stopped
	// while the pump cannot be switched off.
	ErrPumpRunning = errors.New("pump running")
	// ErrUnknownFeature is returned by ParseFeatures.
	ErrUnknownFeature = errors.New("unknown feature")
)

// Feature is an optional controller feature.
type Feature uint8

const (
	HighWaterSensor Feature = 1 << iota
	LowWaterSensor
	MethaneAlarm
)

// DefaultFeatures is the product with the high water sensor and the
// methane alarm.
const DefaultFeatures = HighWaterSensor | MethaneAlarm

var featureNames = []struct {
	f    Feature
	name string
}{
	{HighWaterSensor, "highWaterSensor"},
	{LowWaterSensor, "lowWaterSensor"},
	{MethaneAlarm, "methaneAlarm"},
}

func (f Feature) String() string {
	var names []string
	for _, n := range featureNames {
		if f&n.f != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "base"
	}
	return strings.Join(names, ",")
}

// ParseFeatures parses a comma separated feature list. "base" and the
// empty string select no optional feature.
func ParseFeatures(s string) (Feature, error) {
	var f Feature
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == "base" {
			continue
		}
		found := false
		for _, n := range featureNames {
			if strings.EqualFold(part, n.name) {
				f |= n.f
				found = true
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: %q", ErrUnknownFeature, part)
		}
	}
	return f, nil
}

// Policy is one link of the controller chain. Apply reports whether it
// acted; the chain stops at the first policy that does.
type Policy struct {
	Name  string
	Apply func(p *Pump) bool
}

// Pump is the pump controller.
type Pump struct {
	env      *Environment
	running  bool
	active   bool
	features Feature
	chain    []Policy
}

// NewPump builds a controller for env with the given features. Policies
// run outermost first: methaneAlarm, lowWaterSensor, highWaterSensor,
// base.
func NewPump(env *Environment, features Feature) *Pump {
	p := &Pump{env: env, active: true, features: features}
	if features&MethaneAlarm != 0 {
		p.chain = append(p.chain, Policy{Name: "methaneAlarm", Apply: func(p *Pump) bool {
			if p.running && p.MethaneAlarm() {
				p.Deactivate()
				return true
			}
			return false
		}})
	}
	if features&LowWaterSensor != 0 {
		p.chain = append(p.chain, Policy{Name: "lowWaterSensor", Apply: func(p *Pump) bool {
			if p.running && p.env.LowWaterSensorDry() {
				p.Deactivate()
				return true
			}
			return false
		}})
	}
	if features&HighWaterSensor != 0 {
		p.chain = append(p.chain, Policy{Name: "highWaterSensor", Apply: func(p *Pump) bool {
			if !p.running && p.HighWaterLevel() {
				p.Activate()
				return true
			}
			return false
		}})
	}
	p.chain = append(p.chain, Policy{Name: "base", Apply: func(*Pump) bool { return true }})
	return p
}

// Policies returns the names of the chain in evaluation order.
func (p *Pump) Policies() []string {
	names := make([]string, len(p.chain))
	for i, pol := range p.chain {
		names[i] = pol.Name
	}
	return names
}

// TimeShift advances one time step. A running pump lowers the water, then
// an active system processes the environment.
func (p *Pump) TimeShift() {
	if p.running {
		p.env.Lower()
	}
	if p.active {
		p.processEnvironment()
	}
}

func (p *Pump) processEnvironment() {
	for _, pol := range p.chain {
		if pol.Apply(p) {
			return
		}
	}
}

func (p *Pump) Activate()   { p.running = true }
func (p *Pump) Deactivate() { p.running = false }

// Running reports whether the pump is on.
func (p *Pump) Running() bool { return p.running }

// Active reports whether the control system is on.
func (p *Pump) Active() bool { return p.active }

// Features returns the features the pump was built with.
func (p *Pump) Features() Feature { return p.features }

// MethaneAlarm reports whether methane is critical.
func (p *Pump) MethaneAlarm() bool { return p.env.MethaneCritical }

// HighWaterLevel reports whether the high water sensor is wet.
func (p *Pump) HighWaterLevel() bool { return !p.env.HighWaterSensorDry() }

// Stop switches the pump and the control system off.
func (p *Pump) Stop() error {
	p.Deactivate()
	if p.running {
		return fmt.Errorf("stop system: %w", ErrPumpRunning)
	}
	p.active = false
	return nil
}

// Start switches the control system on. The pump must be off.
func (p *Pump) Start() error {
	if p.running {
		return fmt.Errorf("start system: %w", ErrPumpRunning)
	}
	p.active = true
	return nil
}

func (p *Pump) String() string {
	onOff := func(b bool) string {
		if b {
			return "On"
		}
		return "Off"
	}
	return fmt.Sprintf("Pump(System:%s,Pump:%s) %s", onOff(p.active), onOff(p.running), p.env)
}
