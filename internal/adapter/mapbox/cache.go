package mapbox

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/couchcryptid/cloudtracker/internal/domain"
	"github.com/couchcryptid/cloudtracker/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory TTL cache keyed by
// coordinates rounded to four decimals (about 11 m).
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *cache.Cache
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder. Entries
// expire after ttl.
func NewCachedGeocoder(inner domain.Geocoder, ttl time.Duration, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   cache.New(ttl, 2*ttl),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	key := cacheKey(lat, lon)
	if v, ok := c.cache.Get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return v.(domain.GeocodingResult), nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	result, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return result, err
	}
	// Only cache results that name a place so empty answers can be retried.
	if result.PlaceName() != "" {
		c.cache.SetDefault(key, result)
	}
	return result, nil
}

// Len reports the number of cached places, including expired entries not yet
// swept.
func (c *CachedGeocoder) Len() int {
	return c.cache.ItemCount()
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("rev:%.4f,%.4f", lat, lon)
}
