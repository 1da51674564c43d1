package production

import (
	"context"
	"sync/atomic"

	"github.com/comalice/pumpchart/internal/bus"
)

// ChannelPublisher forwards cycle records to a Go channel. Publish never
// blocks; records are dropped when the channel is full.
type ChannelPublisher struct {
	ch      chan<- bus.Cycle
	dropped atomic.Uint64
}

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher(ch chan<- bus.Cycle) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

// Publish offers one record to the channel.
func (p *ChannelPublisher) Publish(ctx context.Context, cycle bus.Cycle) error {
	select {
	case p.ch <- cycle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.dropped.Add(1)
		return nil
	}
}

// Dropped returns how many records were dropped on backpressure.
func (p *ChannelPublisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Close closes the output channel. Publish must not be called afterwards.
func (p *ChannelPublisher) Close() error {
	close(p.ch)
	return nil
}
