package minepump

import (
	"context"

	"github.com/comalice/pumpchart"
	"github.com/comalice/pumpchart/internal/logger"
)

// Specification names reported in SafetyViolation.Property.
const (
	Spec1 = "specification-1" // methane critical and pump running
	Spec2 = "specification-2" // pump left running in methane for two steps
	Spec3 = "specification-3" // high water, no methane, pump off
	Spec4 = "specification-4" // pump running at low water
	Spec5 = "specification-5" // pump switched on below the high sensor
)

// System is the pump, its environment and the specification monitors.
type System struct {
	Env  Environment
	Pump *Pump

	tick                   uint64
	methAndRunningLastTime bool
	// pump state sampled just before the current time shift
	switchedOnBeforeTS bool
}

// NewSystem returns a system with low water, no methane and an active
// controller built with features.
func NewSystem(features Feature) *System {
	s := &System{}
	s.Pump = NewPump(&s.Env, features)
	return s
}

// Tick returns the number of completed time shifts.
func (s *System) Tick() uint64 { return s.tick }

// WaterRise is an inflow surge. It raises the water one level.
func (s *System) WaterRise() {
	s.Env.Rise()
}

// MethaneChange toggles the methane reading.
func (s *System) MethaneChange() {
	s.Env.ToggleMethane()
}

// StopSystem stops an active system.
func (s *System) StopSystem() error {
	if s.Pump.Active() {
		return s.Pump.Stop()
	}
	return nil
}

// StartSystem starts an inactive system.
func (s *System) StartSystem() error {
	if !s.Pump.Active() {
		return s.Pump.Start()
	}
	return nil
}

// TimeShift advances one step and checks the specifications while the
// system is active. It returns the first violated specification.
func (s *System) TimeShift(ctx context.Context) error {
	if s.Pump.Active() {
		s.switchedOnBeforeTS = s.Pump.Running()
	}
	s.Pump.TimeShift()
	tick := s.tick
	s.tick++

	logger.DebugKV(ctx, "time shift", "tick", tick, "state", s.Pump.String())

	if !s.Pump.Active() {
		return nil
	}
	for _, check := range []func() (string, string){s.spec1, s.spec2, s.spec3, s.spec4, s.spec5} {
		if name, detail := check(); name != "" {
			return &pumpchart.SafetyViolation{Property: name, Tick: tick, Detail: detail}
		}
	}
	return nil
}

func (s *System) spec1() (string, string) {
	if s.Env.MethaneCritical && s.Pump.Running() {
		return Spec1, "pump running with critical methane"
	}
	return "", ""
}

func (s *System) spec2() (string, string) {
	if !s.Env.MethaneCritical || !s.Pump.Running() {
		s.methAndRunningLastTime = false
		return "", ""
	}
	if s.methAndRunningLastTime {
		return Spec2, "pump still running with critical methane"
	}
	s.methAndRunningLastTime = true
	return "", ""
}

func (s *System) spec3() (string, string) {
	if !s.Env.MethaneCritical && s.Env.Water == High && !s.Pump.Running() {
		return Spec3, "pump off at high water"
	}
	return "", ""
}

func (s *System) spec4() (string, string) {
	if s.Env.Water == Low && s.Pump.Running() {
		return Spec4, "pump running at low water"
	}
	return "", ""
}

func (s *System) spec5() (string, string) {
	if s.Env.Water != High && s.Pump.Running() && !s.switchedOnBeforeTS {
		return Spec5, "pump switched on below the high water sensor at " + s.Env.Water.String() + " water"
	}
	return "", ""
}
