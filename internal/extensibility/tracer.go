package extensibility

import (
	"context"
	"slices"
	"sync"

	"github.com/comalice/pumpchart"
	"github.com/comalice/pumpchart/internal/logger"
)

// LoggingTracer logs every state change of one machine at debug level.
type LoggingTracer struct {
	ctx context.Context
}

// NewLoggingTracer creates a LoggingTracer writing through the logger
// carried by ctx, tagged with the machine name.
func NewLoggingTracer(ctx context.Context, machine string) *LoggingTracer {
	return &LoggingTracer{ctx: logger.WithKV(ctx, "machine", machine)}
}

func (t *LoggingTracer) OnEnter(path string) {
	logger.DebugKV(t.ctx, "enter", "state", path)
}

func (t *LoggingTracer) OnExit(path string) {
	logger.DebugKV(t.ctx, "exit", "state", path)
}

func (t *LoggingTracer) OnTransition(from, to string) {
	logger.DebugKV(t.ctx, "transition", "from", from, "to", to)
}

// TraceKind classifies a recorded trace event.
type TraceKind string

const (
	TraceEnter      TraceKind = "enter"
	TraceExit       TraceKind = "exit"
	TraceTransition TraceKind = "transition"
)

// TraceEvent is one recorded state change. For enter and exit events only
// To and From respectively are set.
type TraceEvent struct {
	Kind TraceKind
	From string
	To   string
}

// RecordingTracer keeps every state change in memory. It is safe for
// concurrent use.
type RecordingTracer struct {
	mu     sync.Mutex
	events []TraceEvent
}

func (t *RecordingTracer) record(e TraceEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

func (t *RecordingTracer) OnEnter(path string) {
	t.record(TraceEvent{Kind: TraceEnter, To: path})
}

func (t *RecordingTracer) OnExit(path string) {
	t.record(TraceEvent{Kind: TraceExit, From: path})
}

func (t *RecordingTracer) OnTransition(from, to string) {
	t.record(TraceEvent{Kind: TraceTransition, From: from, To: to})
}

// Events returns a copy of the recorded events.
func (t *RecordingTracer) Events() []TraceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.events)
}

// Entered returns the entered paths in order.
func (t *RecordingTracer) Entered() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for _, e := range t.events {
		if e.Kind == TraceEnter {
			out = append(out, e.To)
		}
	}
	return out
}

// Reset forgets every recorded event.
func (t *RecordingTracer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}

type multiTracer []pumpchart.Tracer

// MultiTracer fans every event out to tracers in order. Nil tracers are
// skipped.
func MultiTracer(tracers ...pumpchart.Tracer) pumpchart.Tracer {
	var m multiTracer
	for _, t := range tracers {
		if t != nil {
			m = append(m, t)
		}
	}
	return m
}

func (m multiTracer) OnEnter(path string) {
	for _, t := range m {
		t.OnEnter(path)
	}
}

func (m multiTracer) OnExit(path string) {
	for _, t := range m {
		t.OnExit(path)
	}
}

func (m multiTracer) OnTransition(from, to string) {
	for _, t := range m {
		t.OnTransition(from, to)
	}
}
