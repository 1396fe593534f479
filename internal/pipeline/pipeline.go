// Package pipeline turns a raw photo into a persisted, classified capture
// record.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/couchcryptid/cloudtracker/internal/domain"
	"github.com/couchcryptid/cloudtracker/internal/observability"
)

// Pipeline orchestrates one capture at a time: normalize, locate, classify,
// name the place, save.
type Pipeline struct {
	images     domain.ImageNormalizer
	locations  domain.LocationProvider
	classifier domain.Classifier
	store      domain.RecordStore
	publisher  domain.EventPublisher
	observer   Observer
	concurrent bool
	guard      *semaphore.Weighted
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPublisher announces every saved record. Publish failures never fail a capture.
func WithPublisher(pub domain.EventPublisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithObserver reports stage transitions.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithConcurrentLookup runs the location lookup alongside classification.
func WithConcurrentLookup(enabled bool) Option {
	return func(p *Pipeline) { p.concurrent = enabled }
}

// New creates a Pipeline with the given collaborators and observability.
func New(
	images domain.ImageNormalizer,
	locations domain.LocationProvider,
	classifier domain.Classifier,
	store domain.RecordStore,
	logger *slog.Logger,
	metrics *observability.Metrics,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		images:     images,
		locations:  locations,
		classifier: classifier,
		store:      store,
		guard:      semaphore.NewWeighted(1),
		logger:     logger,
		metrics:    metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness reports whether the record store is reachable.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	return p.store.Ping(ctx)
}

// Capture runs one capture end to end and returns the saved record. A capture
// that overlaps a running one fails immediately with
// domain.ErrCaptureInProgress. Nothing is persisted unless every required step
// succeeds.
func (p *Pipeline) Capture(ctx context.Context, raw []byte) (domain.CaptureRecord, error) {
	if !p.guard.TryAcquire(1) {
		p.metrics.CapturesTotal.WithLabelValues("busy").Inc()
		return domain.CaptureRecord{}, domain.ErrCaptureInProgress
	}
	defer p.guard.Release(1)

	p.metrics.CaptureInFlight.Set(1)
	defer p.metrics.CaptureInFlight.Set(0)

	start := time.Now()
	rec, err := p.run(ctx, raw)
	if err != nil {
		outcome := outcomeOf(err)
		p.notify(StageFailed)
		p.metrics.CapturesTotal.WithLabelValues(outcome).Inc()
		p.logger.Error("capture failed", "outcome", outcome, "error", err, "duration", time.Since(start))
		return domain.CaptureRecord{}, err
	}

	p.notify(StageDone)
	p.metrics.CapturesTotal.WithLabelValues("success").Inc()
	p.logger.Info("capture saved",
		"id", rec.ID,
		"cloud_type", rec.CloudType,
		"has_location", rec.HasLocation(),
		"location_name", rec.LocationName,
		"duration", time.Since(start),
	)
	return rec, nil
}

func (p *Pipeline) run(ctx context.Context, raw []byte) (domain.CaptureRecord, error) {
	p.notify(StageNormalizing)
	var normalized []byte
	err := p.timed(StageNormalizing, func() (err error) {
		normalized, err = p.images.Normalize(raw)
		return err
	})
	if err != nil {
		return domain.CaptureRecord{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.CaptureRecord{}, err
	}

	loc, cls, err := p.lookup(ctx, normalized)
	if err != nil {
		return domain.CaptureRecord{}, err
	}

	var name string
	if loc != nil {
		p.notify(StageResolvingLocationName)
		_ = p.timed(StageResolvingLocationName, func() error {
			name, _ = p.locations.LocationName(ctx, *loc)
			return nil
		})
	}
	if err := ctx.Err(); err != nil {
		return domain.CaptureRecord{}, err
	}

	rec := domain.NewCaptureRecord(normalized, cls, loc, name)

	p.notify(StageSaving)
	if err := p.timed(StageSaving, func() error { return p.store.Insert(ctx, rec) }); err != nil {
		return domain.CaptureRecord{}, err
	}

	p.publish(ctx, rec)
	return rec, nil
}

// lookup resolves the location and classifies the photo, one after the other
// or side by side. A classification failure is the result regardless of the
// location outcome.
func (p *Pipeline) lookup(ctx context.Context, image []byte) (*domain.Coordinates, domain.Classification, error) {
	var (
		loc *domain.Coordinates
		cls domain.Classification
	)
	locate := func(ctx context.Context) {
		_ = p.timed(StageResolvingLocation, func() error {
			if c, ok := p.locations.CurrentLocation(ctx); ok {
				loc = &c
			}
			return nil
		})
	}
	classify := func(ctx context.Context) error {
		return p.timed(StageClassifying, func() (err error) {
			cls, err = p.classifier.Classify(ctx, image)
			return err
		})
	}

	if !p.concurrent {
		p.notify(StageResolvingLocation)
		locate(ctx)
		p.notify(StageClassifying)
		if err := classify(ctx); err != nil {
			return nil, domain.Classification{}, err
		}
		return loc, cls, nil
	}

	p.notify(StageResolvingLocation)
	p.notify(StageClassifying)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		locate(gctx)
		return nil
	})
	g.Go(func() error {
		return classify(gctx)
	})
	if err := g.Wait(); err != nil {
		return nil, domain.Classification{}, err
	}
	return loc, cls, nil
}

func (p *Pipeline) publish(ctx context.Context, rec domain.CaptureRecord) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishCapture(ctx, rec); err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Warn("publish capture event failed", "id", rec.ID, "error", err)
		return
	}
	p.metrics.EventsPublished.Inc()
}

func (p *Pipeline) notify(s Stage) {
	if p.observer != nil {
		p.observer(s)
	}
}

func (p *Pipeline) timed(s Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	p.metrics.StageDuration.WithLabelValues(s.String()).Observe(time.Since(start).Seconds())
	return err
}

func outcomeOf(err error) string {
	var cerr *domain.ClassificationError
	var perr *domain.PersistenceError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, domain.ErrImageProcessing):
		return "image_error"
	case errors.As(err, &cerr):
		return "classification_error"
	case errors.As(err, &perr):
		return "persistence_error"
	default:
		return "error"
	}
}
