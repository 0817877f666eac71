package production

import (
	"context"

	"github.com/arborio/statecraft"
	"github.com/arborio/statecraft/internal/model"
)

// PublishedEvent bundles an event with its machine metadata.
type PublishedEvent struct {
	Event    model.Event
	Metadata statecraft.Metadata
}

// ChannelPublisher forwards every published event to a Go channel,
// non-blocking: a full channel silently drops rather than stalling the
// machine's macrostep loop.
type ChannelPublisher struct {
	ch chan<- PublishedEvent
}

// NewChannelPublisher creates a ChannelPublisher writing to ch.
func NewChannelPublisher(ch chan<- PublishedEvent) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func (p *ChannelPublisher) Publish(ctx context.Context, ev model.Event, meta statecraft.Metadata) error {
	select {
	case p.ch <- PublishedEvent{Event: ev, Metadata: meta}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (p *ChannelPublisher) Close() error {
	close(p.ch)
	return nil
}
