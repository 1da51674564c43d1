package extensibility

import (
	"context"
	"time"

	"github.com/comalice/pumpchart/internal/config"
)

// PatchSource produces stimulus patches for a running driver.
type PatchSource interface {
	Patches() <-chan config.Patch
}

// ChannelPatchSource is a PatchSource backed by a Go channel. Operator
// panels and other goroutines send on the channel.
type ChannelPatchSource struct {
	ch chan config.Patch
}

// NewChannelPatchSource creates a ChannelPatchSource with the given channel.
// The channel should be buffered if backpressure handling is needed.
func NewChannelPatchSource(ch chan config.Patch) *ChannelPatchSource {
	return &ChannelPatchSource{ch: ch}
}

// Patches returns the receive-only channel for patches.
func (s *ChannelPatchSource) Patches() <-chan config.Patch {
	return s.ch
}

// TimerPatchSource emits the same patch every d. The At field is left at
// zero so the driver applies it on its next cycle.
type TimerPatchSource struct {
	ch     chan config.Patch
	set    map[string]any
	ticker *time.Ticker
	stop   chan struct{}
}

// NewTimerPatchSource creates a TimerPatchSource that emits set every d.
func NewTimerPatchSource(set map[string]any, d time.Duration) *TimerPatchSource {
	t := &TimerPatchSource{
		ch:     make(chan config.Patch, 10),
		set:    set,
		ticker: time.NewTicker(d),
		stop:   make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *TimerPatchSource) run() {
	for {
		select {
		case <-t.ticker.C:
			select {
			case t.ch <- config.Patch{Set: t.set}:
			default:
				// drop if full
			}
		case <-t.stop:
			t.ticker.Stop()
			close(t.ch)
			return
		}
	}
}

// Patches returns the patch channel.
func (t *TimerPatchSource) Patches() <-chan config.Patch {
	return t.ch
}

// Stop stops the ticker and closes the channel.
func (t *TimerPatchSource) Stop() {
	close(t.stop)
}

// Forward schedules every patch from src until src closes or ctx is done.
// A rejected patch stops forwarding and its error is returned.
func Forward(ctx context.Context, src PatchSource, schedule func(config.Patch) error) error {
	ch := src.Patches()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p, ok := <-ch:
			if !ok {
				return nil
			}
			if err := schedule(p); err != nil {
				return err
			}
		}
	}
}
