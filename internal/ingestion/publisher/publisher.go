// Package publisher announces processed datasets. It records them in the
// PostgreSQL catalog, refreshes the Redis summary cache and publishes a
// dataset-ready event to Kafka for downstream training jobs.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/resilience"
)

// publishTimeout bounds the side effects of one announcement. They outlive
// the request context so a client hanging up does not leave the catalog
// behind the data root.
const publishTimeout = 15 * time.Second

// announceTimeout bounds the background retries of one dataset-ready event.
const announceTimeout = 30 * time.Second

// RecordStore persists catalog records.
type RecordStore interface {
	Upsert(ctx context.Context, rec *ingestion.DatasetRecord) error
}

// RecordCache holds catalog summaries.
type RecordCache interface {
	Set(ctx context.Context, rec *ingestion.DatasetRecord)
}

// EventProducer publishes events to the message bus.
type EventProducer interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Publisher fans a pipeline result out to the catalog, the cache and Kafka.
// Any collaborator may be nil, which disables that side effect. Kafka events
// are sent in the background; Drain waits for them.
type Publisher struct {
	store    RecordStore
	cache    RecordCache
	producer EventProducer
	metrics  *metrics.Metrics
	retry    resilience.RetryConfig
	now      func() time.Time
	inflight sync.WaitGroup
}

// New creates a Publisher.
func New(store RecordStore, cache RecordCache, producer EventProducer, m *metrics.Metrics) *Publisher {
	return &Publisher{
		store:    store,
		cache:    cache,
		producer: producer,
		metrics:  m,
		retry: resilience.RetryConfig{
			MaxAttempts:  4,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     3 * time.Second,
			Multiplier:   2,
		},
		now: time.Now,
	}
}

// Publish records res in the catalog and cache, queues its dataset-ready
// event and returns the catalog record it built. Failures are logged and
// never returned: the dataset is already on disk.
func (p *Publisher) Publish(ctx context.Context, res *pipeline.Result) *ingestion.DatasetRecord {
	log := logger.FromContext(ctx).With("component", "publisher")
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	now := p.now().UTC()
	rec := ingestion.NewDatasetRecord(res, now)

	if p.store != nil {
		if err := p.store.Upsert(ctx, rec); err != nil {
			log.Error("catalog upsert failed", "dataset_id", rec.ID, "error", err)
		}
	}
	if p.cache != nil {
		p.cache.Set(ctx, rec)
	}
	if p.producer != nil {
		actx := context.WithoutCancel(ctx)
		p.inflight.Go(func() {
			actx, cancel := context.WithTimeout(actx, announceTimeout)
			defer cancel()
			p.announce(actx, log, rec, now)
		})
	}
	return rec
}

// Drain waits until every queued event has been published or given up on,
// or until ctx is done.
func (p *Publisher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) announce(ctx context.Context, log *slog.Logger, rec *ingestion.DatasetRecord, now time.Time) {
	event := kafka.Event{Key: rec.ID, Value: rec.Event(now)}
	err := resilience.Retry(ctx, "dataset-ready", p.retry, func() error {
		return p.producer.Publish(ctx, event)
	})
	status := "ok"
	if err != nil {
		status = "error"
		log.Error("dataset-ready event not published", "dataset_id", rec.ID, "error", err)
	}
	if p.metrics != nil {
		p.metrics.EventsPublishedTotal.WithLabelValues(status).Inc()
	}
}
