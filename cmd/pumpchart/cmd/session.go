package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/comalice/pumpchart"
	"github.com/comalice/pumpchart/internal/alarm"
	"github.com/comalice/pumpchart/internal/bus"
	"github.com/comalice/pumpchart/internal/config"
	"github.com/comalice/pumpchart/internal/extensibility"
	"github.com/comalice/pumpchart/internal/infusion"
	"github.com/comalice/pumpchart/internal/logger"
	"github.com/comalice/pumpchart/internal/production"
	"github.com/comalice/pumpchart/internal/safety"
	"github.com/comalice/pumpchart/realtime"
)

// session is one scenario wired to a driver.
type session struct {
	scenario *config.Scenario
	alarm    *alarm.Chart
	infusion *infusion.Chart
	monitor  *safety.Monitor
	driver   *realtime.Driver
	signals  *pumpchart.Signals
	cycles   chan bus.Cycle
	pub      *production.ChannelPublisher
}

// newSession builds both charts, the safety monitor with the scenario's
// watch expressions and a driver that records every cycle.
func newSession(ctx context.Context, sc *config.Scenario, extraWatch []string) (*session, error) {
	s := &session{
		scenario: sc,
		signals:  pumpchart.NewSignals(),
		cycles:   make(chan bus.Cycle, sc.Ticks+1),
	}
	s.pub = production.NewChannelPublisher(s.cycles)

	traceCtx := logger.WithName(ctx, "trace")

	var err error
	s.alarm, err = alarm.New(pumpchart.WithTracer(extensibility.NewLoggingTracer(traceCtx, alarm.Name)))
	if err != nil {
		return nil, err
	}
	s.infusion, err = infusion.New(pumpchart.WithTracer(extensibility.NewLoggingTracer(traceCtx, infusion.Name)))
	if err != nil {
		return nil, err
	}

	s.monitor = safety.New(s.alarm, s.infusion)
	for _, w := range append(append([]string(nil), sc.Watch...), extraWatch...) {
		prop, err := extensibility.WatchProperty(w)
		if err != nil {
			return nil, err
		}
		s.monitor.Add(prop)
	}

	s.driver, err = realtime.NewDriver(s.alarm, s.infusion, realtime.Config{
		TickRate:  sc.TickRate,
		Base:      sc.Base,
		Patches:   sc.Patches,
		Publisher: s.pub,
		Signals:   s.signals,
		Monitor:   s.monitor,
	})
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	logger.InfoKV(ctx, "scenario loaded",
		"name", sc.Name,
		"ticks", sc.Ticks,
		"patches", len(sc.Patches),
		"watch", len(sc.Watch)+len(extraWatch),
	)
	return s, nil
}

// recorded closes the publisher and returns the cycles published so far.
func (s *session) recorded() []bus.Cycle {
	_ = s.pub.Close()
	out := make([]bus.Cycle, 0, len(s.cycles))
	for c := range s.cycles {
		out = append(out, c)
	}
	if n := s.pub.Dropped(); n > 0 {
		logger.Warnf(context.Background(), "%d cycles dropped from the trace", n)
	}
	return out
}

// saveSnapshots persists both charts' memory in the scenario's format.
func (s *session) saveSnapshots(ctx context.Context, dir, format string) error {
	a, i := s.driver.Memories()
	tick := s.driver.Tick()

	if err := saveSnapshot(ctx, dir, format, alarm.Name, s.alarm.Describe().Version, tick, a); err != nil {
		return err
	}
	if err := saveSnapshot(ctx, dir, format, infusion.Name, s.infusion.Describe().Version, tick, i); err != nil {
		return err
	}

	logger.InfoKV(ctx, "snapshots saved", "dir", dir, "format", format, "tick", tick)
	return nil
}

func saveSnapshot[M any](ctx context.Context, dir, format, id, ver string, tick uint64, mem M) error {
	p, err := production.New[M](format, dir)
	if err != nil {
		return err
	}
	return p.Save(ctx, production.Snapshot[M]{
		MachineID: id,
		Version:   ver,
		Tick:      tick,
		Timestamp: time.Now(),
		Memory:    mem,
	})
}

// restoreSnapshots loads both charts' memory and resumes the driver from
// the snapshot tick.
func (s *session) restoreSnapshots(ctx context.Context, dir, format string) error {
	ap, err := production.New[alarm.Memory](format, dir)
	if err != nil {
		return err
	}
	ip, err := production.New[infusion.Memory](format, dir)
	if err != nil {
		return err
	}

	as, err := production.Restore(ctx, ap, alarm.Name, s.alarm.Describe().Version)
	if err != nil {
		return err
	}
	is, err := production.Restore(ctx, ip, infusion.Name, s.infusion.Describe().Version)
	if err != nil {
		return err
	}
	if as.Tick != is.Tick {
		return fmt.Errorf("snapshots disagree: alarm at tick %d, infusion at tick %d", as.Tick, is.Tick)
	}

	s.driver.Restore(as.Memory, is.Memory, as.Tick)
	logger.InfoKV(ctx, "snapshots restored", "dir", dir, "tick", as.Tick)
	return nil
}
