package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Outbox is the storage side of the outbox pattern.
type Outbox interface {
	Unpublished(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, id int64) error
}

type publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Poller struct {
	outbox    Outbox
	publisher publisher
	log       zerolog.Logger
	tick      time.Duration
	batch     int
	observe   func(outcome string)
}

type PollerOption func(*Poller)

func WithTick(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.tick = d
		}
	}
}

func WithBatch(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.batch = n
		}
	}
}

// WithPublishObserver is called with "published" or "failed" for each event.
func WithPublishObserver(fn func(outcome string)) PollerOption {
	return func(p *Poller) { p.observe = fn }
}

func NewPoller(outbox Outbox, pub publisher, logger zerolog.Logger, opts ...PollerOption) *Poller {
	p := &Poller{
		outbox:    outbox,
		publisher: pub,
		log:       logger.With().Str("component", "outbox").Logger(),
		tick:      time.Second,
		batch:     100,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run flushes the outbox every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Flush(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Flush publishes one batch and returns how many events were marked published.
// An event that fails to publish stays in the outbox for the next round.
func (p *Poller) Flush(ctx context.Context) int {
	batch, err := p.outbox.Unpublished(ctx, p.batch)
	if err != nil {
		p.log.Error().Err(err).Msg("fetch unpublished events")
		return 0
	}
	published := 0
	for _, e := range batch {
		if err := p.publisher.Publish(ctx, e); err != nil {
			p.log.Warn().Err(err).Int64("event_id", e.ID).Str("event_type", e.Type).Msg("publish event")
			p.done("failed")
			continue
		}
		if err := p.outbox.MarkPublished(ctx, e.ID); err != nil {
			p.log.Error().Err(err).Int64("event_id", e.ID).Msg("mark event published")
			continue
		}
		p.done("published")
		published++
	}
	return published
}

func (p *Poller) done(outcome string) {
	if p.observe != nil {
		p.observe(outcome)
	}
}
