package publish

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"tradesim/internal/common"
	"tradesim/internal/engine"
)

const (
	defaultWorkers = 4
	defaultBuffer  = 256
	defaultRetries = 3
)

type EventKind int

const (
	TradeEvent EventKind = iota
	BookEvent
)

// Event is the envelope handed to sinks. The id is unique per event so
// downstream consumers can de-duplicate redeliveries.
type Event struct {
	ID     string
	Kind   EventKind
	Symbol string
	At     time.Time
	Trade  *common.Trade
	Book   *engine.Snapshot
}

// TradeStore persists one trade at a time. By the time a trade reaches
// the store the match is final; a store failure is retried a bounded
// number of times and never re-runs or undoes matching.
type TradeStore interface {
	SaveTrade(trade common.Trade) error
}

// Broadcaster fans events out to live consumers, fire and forget.
type Broadcaster interface {
	Broadcast(event Event)
}

// Publisher delivers trade and book events to the configured sinks on a
// pool of workers. Callers hand events over only after the originating
// book's lock has been released, so sink latency never stalls matching.
type Publisher struct {
	store   TradeStore
	caster  Broadcaster
	events  chan Event
	workers int
	retries int
	t       *tomb.Tomb
}

type Options struct {
	Workers int
	Buffer  int
	Retries int
}

func New(store TradeStore, caster Broadcaster, opts Options) *Publisher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	if opts.Retries < 0 {
		opts.Retries = defaultRetries
	}
	return &Publisher{
		store:   store,
		caster:  caster,
		events:  make(chan Event, opts.Buffer),
		workers: opts.Workers,
		retries: opts.Retries,
	}
}

// Run starts the worker pool. Workers live until the context ends or
// Close is called.
func (p *Publisher) Run(ctx context.Context) {
	t, _ := tomb.WithContext(ctx)
	p.t = t
	for i := 0; i < p.workers; i++ {
		t.Go(p.worker)
	}
	log.Info().Int("workers", p.workers).Msg("publisher running")
}

// Close stops the workers and waits for them to drain.
func (p *Publisher) Close() error {
	if p.t == nil {
		return nil
	}
	p.t.Kill(nil)
	return p.t.Wait()
}

// PublishTrades enqueues one event per trade, best effort. A full buffer
// drops the event with a log line rather than blocking the caller.
func (p *Publisher) PublishTrades(symbol string, trades []common.Trade) {
	for i := range trades {
		trade := trades[i]
		p.enqueue(Event{
			ID:     uuid.New().String(),
			Kind:   TradeEvent,
			Symbol: symbol,
			At:     time.Now(),
			Trade:  &trade,
		})
	}
}

// PublishBook enqueues a book snapshot event, best effort.
func (p *Publisher) PublishBook(symbol string, snapshot engine.Snapshot) {
	p.enqueue(Event{
		ID:     uuid.New().String(),
		Kind:   BookEvent,
		Symbol: symbol,
		At:     time.Now(),
		Book:   &snapshot,
	})
}

func (p *Publisher) enqueue(event Event) {
	select {
	case p.events <- event:
	default:
		log.Warn().
			Str("event", event.ID).
			Str("symbol", event.Symbol).
			Msg("publisher buffer full, dropping event")
	}
}

// Workers wait on events in the buffer and deliver them.
func (p *Publisher) worker() error {
	for {
		select {
		case <-p.t.Dying():
			return nil
		case event := <-p.events:
			p.deliver(event)
		}
	}
}

func (p *Publisher) deliver(event Event) {
	if event.Kind == TradeEvent && p.store != nil {
		p.persist(event)
	}
	if p.caster != nil {
		p.caster.Broadcast(event)
	}
}

// persist writes the trade to the store, retrying a bounded number of
// times. The trade is already effective inside the book; after the last
// attempt we log and move on.
func (p *Publisher) persist(event Event) {
	for attempt := 0; ; attempt++ {
		err := p.store.SaveTrade(*event.Trade)
		if err == nil {
			return
		}
		if attempt >= p.retries {
			log.Error().
				Err(err).
				Str("event", event.ID).
				Int64("trade", event.Trade.TradeID).
				Msg("giving up on trade persistence")
			return
		}
		log.Warn().
			Err(err).
			Str("event", event.ID).
			Int("attempt", attempt+1).
			Msg("trade persistence failed, retrying")
	}
}
