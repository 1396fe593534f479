// Package location resolves where a capture happened: the current fix, gated
// by the user's permission, and a display name for it.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/cloudtracker/internal/domain"
	"github.com/couchcryptid/cloudtracker/internal/observability"
)

const (
	DefaultGracePeriod = 500 * time.Millisecond
	DefaultFixTimeout  = 10 * time.Second
)

var errNotAuthorized = errors.New("location not authorized")

// Provider implements domain.LocationProvider on top of a Platform and an
// optional Geocoder.
type Provider struct {
	platform Platform
	geocoder domain.Geocoder
	clock    clockwork.Clock
	grace    time.Duration
	timeout  time.Duration
	group    singleflight.Group
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context shared by every caller waiting on one lookup. It is
// cancelled when the last of them leaves.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Option configures a Provider.
type Option func(*Provider)

// WithClock sets the clock used to measure the permission grace period.
func WithClock(c clockwork.Clock) Option {
	return func(p *Provider) { p.clock = c }
}

// WithGracePeriod sets how long a pending permission prompt is waited on.
func WithGracePeriod(d time.Duration) Option {
	return func(p *Provider) { p.grace = d }
}

// WithFixTimeout bounds a single fix request.
func WithFixTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// NewProvider creates a Provider. geocoder may be nil, in which case no place
// names are resolved.
func NewProvider(platform Platform, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Provider {
	p := &Provider{
		platform: platform,
		geocoder: geocoder,
		clock:    clockwork.NewRealClock(),
		grace:    DefaultGracePeriod,
		timeout:  DefaultFixTimeout,
		logger:   logger,
		metrics:  metrics,
		flights:  make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CurrentLocation blocks until a fix is available or the lookup gives up.
// Denied and Restricted return immediately. Concurrent callers with the same
// reported fix share one in-flight request; a caller whose context ends early
// gets no location while the shared request runs on for the others. When the
// last caller leaves, the request is cancelled and waited out before
// CurrentLocation returns.
func (p *Provider) CurrentLocation(ctx context.Context) (domain.Coordinates, bool) {
	if status := p.platform.Authorization(); status.Final() {
		p.metrics.LocationLookups.WithLabelValues("denied").Inc()
		p.logger.Debug("location lookup skipped", "status", status.String())
		return domain.Coordinates{}, false
	}

	key := flightKey(ctx)
	f := p.join(ctx, key)
	ch := p.group.DoChan(key, func() (any, error) {
		return p.resolve(f.ctx)
	})

	select {
	case res := <-ch:
		p.leave(key, f)
		if res.Err != nil {
			return domain.Coordinates{}, false
		}
		return res.Val.(domain.Coordinates), true
	case <-ctx.Done():
		if p.leave(key, f) {
			<-ch
		}
		p.metrics.LocationLookups.WithLabelValues("cancelled").Inc()
		return domain.Coordinates{}, false
	}
}

// flightKey separates lookups by the fix their caller reported, so a caller
// never receives a position that came from another request.
func flightKey(ctx context.Context) string {
	if c, ok := ReportedFix(ctx); ok {
		return fmt.Sprintf("reported:%v,%v", c.Latitude, c.Longitude)
	}
	return "current"
}

func (p *Provider) join(ctx context.Context, key string) *flight {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.flights[key]
	if !ok {
		shared, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: shared, cancel: cancel}
		p.flights[key] = f
	}
	f.waiters++
	return f
}

// leave reports whether the caller was the last one waiting on f. The last
// caller cancels the shared request and drops it so later callers start fresh.
func (p *Provider) leave(key string, f *flight) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return false
	}
	f.cancel()
	if p.flights[key] == f {
		delete(p.flights, key)
	}
	p.group.Forget(key)
	return true
}

func (p *Provider) resolve(ctx context.Context) (domain.Coordinates, error) {
	status := p.platform.Authorization()
	if status == NotDetermined {
		p.platform.RequestAuthorization()
		t := p.clock.NewTimer(p.grace)
		select {
		case <-t.Chan():
		case <-ctx.Done():
			t.Stop()
			return domain.Coordinates{}, ctx.Err()
		}
		status = p.platform.Authorization()
	}

	if !status.Allowed() {
		outcome := "denied"
		if status == NotDetermined {
			outcome = "undetermined"
		}
		p.metrics.LocationLookups.WithLabelValues(outcome).Inc()
		p.logger.Info("location not available", "status", status.String())
		return domain.Coordinates{}, fmt.Errorf("%w: %s", errNotAuthorized, status)
	}

	fixCtx, cancel := clockwork.WithTimeout(ctx, p.clock, p.timeout)
	defer cancel()

	c, err := p.platform.RequestLocation(fixCtx)
	if err != nil {
		p.metrics.LocationLookups.WithLabelValues("unavailable").Inc()
		p.logger.Warn("location request failed", "error", err)
		return domain.Coordinates{}, err
	}

	p.metrics.LocationLookups.WithLabelValues("fix").Inc()
	return c, nil
}

// LocationName reverse-geocodes c. Any failure yields no name.
func (p *Provider) LocationName(ctx context.Context, c domain.Coordinates) (string, bool) {
	if p.geocoder == nil {
		return "", false
	}

	result, err := p.geocoder.ReverseGeocode(ctx, c.Latitude, c.Longitude)
	if err != nil {
		p.logger.Warn("reverse geocoding failed",
			"lat", c.Latitude,
			"lon", c.Longitude,
			"error", err,
		)
		return "", false
	}

	name := result.PlaceName()
	if name == "" {
		p.logger.Debug("reverse geocoding returned no place", "lat", c.Latitude, "lon", c.Longitude)
		return "", false
	}
	return name, true
}
