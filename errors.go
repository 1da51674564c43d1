package pumpchart

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedChart marks a chart whose structure or guards leave a
	// region without an applicable branch.
	ErrMalformedChart = errors.New("malformed chart")
	// ErrSafetyViolation marks a safety property that no longer holds.
	ErrSafetyViolation = errors.New("safety violation")
	// ErrNotInitialized is returned when Step is called with memory that was
	// not produced by the machine's Init.
	ErrNotInitialized = errors.New("chart memory not initialized")
)

// MalformedChartError is a diagnostic for one state. The engine reports it
// and leaves the active tag unchanged; the tick still completes.
type MalformedChartError struct {
	State  string
	Reason string
}

func (e *MalformedChartError) Error() string {
	return fmt.Sprintf("malformed chart at %q: %s", e.State, e.Reason)
}

func (e *MalformedChartError) Unwrap() error {
	return ErrMalformedChart
}

// SafetyViolation reports a property that failed after a tick. It is never
// retried; the run that produced it must halt.
type SafetyViolation struct {
	Property string
	Tick     uint64
	Detail   string
}

func (e *SafetyViolation) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("safety violation: %s at tick %d", e.Property, e.Tick)
	}
	return fmt.Sprintf("safety violation: %s at tick %d: %s", e.Property, e.Tick, e.Detail)
}

func (e *SafetyViolation) Unwrap() error {
	return ErrSafetyViolation
}
