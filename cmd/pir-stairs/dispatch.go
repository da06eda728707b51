package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/pir-stairs/internal/history"
	"github.com/sweeney/pir-stairs/internal/metrics"
	"github.com/sweeney/pir-stairs/internal/mqtt"
	"github.com/sweeney/pir-stairs/internal/stairs"
)

// storeTimeout bounds a single history write or prune.
const storeTimeout = 5 * time.Second

// dispatcher moves accepted triggers off the poll goroutine. It stores each
// one in the history repository and publishes it as an MQTT event.
type dispatcher struct {
	events    chan stairs.TriggerEvent
	done      chan struct{}
	repo      history.Repository
	publisher mqtt.Publisher
	metrics   *metrics.Metrics
	retention time.Duration
	log       zerolog.Logger
}

func newDispatcher(size int, repo history.Repository, publisher mqtt.Publisher, m *metrics.Metrics, retention time.Duration, logger zerolog.Logger) *dispatcher {
	return &dispatcher{
		events:    make(chan stairs.TriggerEvent, size),
		done:      make(chan struct{}),
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		retention: retention,
		log:       logger.With().Str("component", "dispatch").Logger(),
	}
}

// enqueue hands ev to the dispatcher without blocking. A full queue drops ev.
func (d *dispatcher) enqueue(ev stairs.TriggerEvent) {
	select {
	case d.events <- ev:
	default:
		d.metrics.QueueDrop()
		d.log.Warn().Str("direction", string(ev.Direction)).Msg("event queue full, dropping trigger")
	}
}

// run processes events until stop is called. prune may be nil.
func (d *dispatcher) run(prune <-chan time.Time) {
	defer close(d.done)
	for {
		select {
		case ev, ok := <-d.events:
			if !ok {
				return
			}
			d.handle(ev)
		case t := <-prune:
			d.prune(t)
		}
	}
}

// stop closes the queue and waits for queued events to be handled.
// It must be called from the goroutine that calls enqueue.
func (d *dispatcher) stop() {
	close(d.events)
	<-d.done
}

func (d *dispatcher) handle(ev stairs.TriggerEvent) {
	if d.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		err := d.repo.Save(ctx, history.FromEvent(ev))
		cancel()
		if err != nil {
			d.log.Error().Err(err).Msg("save trigger")
		}
	}

	if err := d.publisher.Publish(ev); err != nil {
		d.log.Error().Err(err).Msg("publish error")
	}
}

func (d *dispatcher) prune(now time.Time) {
	if d.repo == nil || d.retention <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	n, err := d.repo.Prune(ctx, now.Add(-d.retention))
	if err != nil {
		d.log.Error().Err(err).Msg("prune history")
		return
	}
	if n > 0 {
		d.log.Info().Int64("removed", n).Msg("pruned history")
	}
}
