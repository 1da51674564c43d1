package pumpchart

// Tracer observes state changes while a machine steps. Paths are dotted
// from the root, e.g. "ALARMS.Notification.Audio.ON".
type Tracer interface {
	OnEnter(path string)
	OnExit(path string)
	OnTransition(from, to string)
}

type machineOptions struct {
	name   string
	timers int
	tracer Tracer
}

// Option configures a Machine via the functional options pattern.
type Option func(*machineOptions)

// WithName sets the machine identifier used in snapshots and diagrams.
func WithName(name string) Option {
	return func(o *machineOptions) {
		o.name = name
	}
}

// WithTimers declares how many timers the chart uses. Timer ids must be in
// [0, n).
func WithTimers(n int) Option {
	return func(o *machineOptions) {
		o.timers = n
	}
}

// WithTracer installs a Tracer. A nil tracer disables tracing.
func WithTracer(t Tracer) Option {
	return func(o *machineOptions) {
		o.tracer = t
	}
}
