package location

import (
	"context"
	"log/slog"
	"sync"

	"github.com/couchcryptid/cloudtracker/internal/domain"
)

// Platform is the device side of location: the permission prompt and the
// positioning hardware.
type Platform interface {
	Authorization() Authorization
	RequestAuthorization()
	RequestLocation(ctx context.Context) (domain.Coordinates, error)
}

type fixKey struct{}

// WithReportedFix attaches the fix the client device reported for this request.
func WithReportedFix(ctx context.Context, c domain.Coordinates) context.Context {
	return context.WithValue(ctx, fixKey{}, c)
}

// ReportedFix returns the fix attached by WithReportedFix.
func ReportedFix(ctx context.Context) (domain.Coordinates, bool) {
	c, ok := ctx.Value(fixKey{}).(domain.Coordinates)
	return c, ok
}

// DevicePlatform serves location for a process that has no positioning
// hardware of its own. The client reports its fix with each request and the
// user's permission decision is recorded through SetAuthorization.
type DevicePlatform struct {
	mu       sync.RWMutex
	status   Authorization
	fallback *domain.Coordinates
	logger   *slog.Logger
}

// NewDevicePlatform creates a platform starting at status. fallback, when
// non-nil, is returned for requests that carry no reported fix.
func NewDevicePlatform(status Authorization, fallback *domain.Coordinates, logger *slog.Logger) *DevicePlatform {
	var fb *domain.Coordinates
	if fallback != nil {
		c := *fallback
		fb = &c
	}
	return &DevicePlatform{status: status, fallback: fb, logger: logger}
}

func (d *DevicePlatform) Authorization() Authorization {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// SetAuthorization records the user's answer to the permission prompt.
func (d *DevicePlatform) SetAuthorization(a Authorization) {
	d.mu.Lock()
	prev := d.status
	d.status = a
	d.mu.Unlock()

	if prev != a {
		d.logger.Info("location authorization changed", "from", prev.String(), "to", a.String())
	}
}

// RequestAuthorization asks the user for permission. The answer arrives
// asynchronously through SetAuthorization.
func (d *DevicePlatform) RequestAuthorization() {
	d.logger.Info("location authorization requested", "status", d.Authorization().String())
}

func (d *DevicePlatform) RequestLocation(ctx context.Context) (domain.Coordinates, error) {
	select {
	case <-ctx.Done():
		return domain.Coordinates{}, ctx.Err()
	default:
	}
	if c, ok := ReportedFix(ctx); ok {
		return c, nil
	}
	if d.fallback != nil {
		return *d.fallback, nil
	}
	return domain.Coordinates{}, domain.ErrLocationUnavailable
}
