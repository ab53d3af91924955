package publish

import (
	"github.com/rs/zerolog/log"
)

// Feed is a channel-backed Broadcaster. Consumers range over Events();
// a consumer that falls behind loses events rather than backing up the
// publisher.
type Feed struct {
	events chan Event
}

func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Feed{events: make(chan Event, buffer)}
}

func (f *Feed) Broadcast(event Event) {
	select {
	case f.events <- event:
	default:
		log.Warn().
			Str("event", event.ID).
			Msg("feed consumer lagging, dropping event")
	}
}

func (f *Feed) Events() <-chan Event {
	return f.events
}
