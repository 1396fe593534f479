package main

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	kafkaadapter "github.com/couchcryptid/cloudtracker/internal/adapter/kafka"
	"github.com/couchcryptid/cloudtracker/internal/adapter/mapbox"
	"github.com/couchcryptid/cloudtracker/internal/adapter/openai"
	"github.com/couchcryptid/cloudtracker/internal/config"
	"github.com/couchcryptid/cloudtracker/internal/domain"
	"github.com/couchcryptid/cloudtracker/internal/imagestore"
	"github.com/couchcryptid/cloudtracker/internal/location"
	"github.com/couchcryptid/cloudtracker/internal/observability"
	"github.com/couchcryptid/cloudtracker/internal/pipeline"
	"github.com/couchcryptid/cloudtracker/internal/store"
)

// metrics registers the collectors once per process.
var metrics = sync.OnceValue(observability.NewMetrics)

// app holds the components shared by every command.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observability.Metrics
	store     *store.Store
	platform  *location.DevicePlatform
	publisher *kafkaadapter.Publisher
}

func openApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	st, err := store.Open(cfg.DatabasePath, cfg.ImageDir, logger)
	if err != nil {
		return nil, err
	}
	status, err := location.ParseAuthorization(cfg.LocationPermission)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics(),
		store:    st,
		platform: location.NewDevicePlatform(status, cfg.FixedLocation, logger),
	}, nil
}

// newPipeline assembles the capture pipeline. It fails without a classifier key.
func (a *app) newPipeline(opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	if err := a.cfg.RequireClassifier(); err != nil {
		return nil, err
	}

	var geocoder domain.Geocoder
	if a.cfg.MapboxEnabled {
		client := mapbox.NewClient(a.cfg.MapboxToken, a.cfg.MapboxTimeout, a.logger, a.metrics)
		geocoder = mapbox.NewCachedGeocoder(client, a.cfg.MapboxCacheTTL, a.metrics)
		a.metrics.GeocodeEnabled.Set(1)
		a.logger.Info("mapbox geocoding enabled", "cache_ttl", a.cfg.MapboxCacheTTL, "timeout", a.cfg.MapboxTimeout)
	} else {
		a.logger.Info("mapbox geocoding disabled")
	}

	locations := location.NewProvider(a.platform, geocoder, a.logger, a.metrics,
		location.WithGracePeriod(a.cfg.LocationGracePeriod),
		location.WithFixTimeout(a.cfg.LocationTimeout),
	)
	classifier := openai.NewClient(a.cfg.OpenAIAPIKey, a.logger, a.metrics,
		openai.WithBaseURL(a.cfg.OpenAIBaseURL),
		openai.WithModel(a.cfg.OpenAIModel),
		openai.WithMaxTokens(a.cfg.OpenAIMaxTokens),
	)
	normalizer := imagestore.NewNormalizer(a.cfg.ImageMaxDimension, a.cfg.ImageQuality)

	opts = append(opts, pipeline.WithConcurrentLookup(a.cfg.ConcurrentLookup))
	if a.cfg.PublishEnabled() {
		a.publisher = kafkaadapter.NewPublisher(a.cfg, a.logger)
		opts = append(opts, pipeline.WithPublisher(a.publisher))
		a.logger.Info("capture events enabled", "topic", a.cfg.KafkaTopic, "brokers", a.cfg.KafkaBrokers)
	}

	return pipeline.New(normalizer, locations, classifier, a.store, a.logger, a.metrics, opts...), nil
}

func (a *app) Close() error {
	var errs []error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kafka publisher: %w", err))
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
