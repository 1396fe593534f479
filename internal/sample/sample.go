// Package sample builds the demo collection: four captures with generated
// placeholder photos.
package sample

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/cloudtracker/internal/domain"
)

// Capture describes one demo cloud.
type Capture struct {
	CloudType    string
	Description  string
	LocationName string
	Location     domain.Coordinates
	palette      palette
}

var captures = []Capture{
	{
		CloudType:    "Cumulus",
		Description:  "Puffy, cotton-like clouds with flat bases floating against a brilliant blue sky. These fair-weather clouds often appear during sunny afternoons and indicate stable atmospheric conditions.",
		LocationName: "Santa Monica, CA",
		Location:     domain.Coordinates{Latitude: 34.0195, Longitude: -118.4912},
		palette:      palette{top: rgb(0.53, 0.81, 0.92), bottom: rgb(0.95, 0.95, 1.0)},
	},
	{
		CloudType:    "Cirrus",
		Description:  "Thin, wispy clouds stretched across the high atmosphere like delicate brushstrokes. Found at altitudes above 20,000 feet, these ice crystal clouds often precede a change in weather.",
		LocationName: "Sedona, AZ",
		Location:     domain.Coordinates{Latitude: 34.8697, Longitude: -111.7610},
		palette:      palette{top: rgb(0.98, 0.85, 0.75), bottom: rgb(0.85, 0.92, 0.98)},
	},
	{
		CloudType:    "Stratus",
		Description:  "A uniform gray layer blanketing the sky like a soft veil. These low-level clouds often bring light drizzle or mist, creating a peaceful, subdued atmosphere perfect for contemplation.",
		LocationName: "San Francisco, CA",
		Location:     domain.Coordinates{Latitude: 37.7749, Longitude: -122.4194},
		palette:      palette{top: rgb(0.85, 0.87, 0.90), bottom: rgb(0.95, 0.95, 0.97)},
	},
	{
		CloudType:    "Cumulonimbus",
		Description:  "A towering giant reaching from near the surface to the upper atmosphere. This dramatic thunderstorm cloud features an anvil-shaped top and brings lightning, heavy rain, and sometimes hail.",
		LocationName: "Denver, CO",
		Location:     domain.Coordinates{Latitude: 39.7392, Longitude: -104.9903},
		palette:      palette{top: rgb(0.4, 0.45, 0.55), bottom: rgb(0.75, 0.78, 0.85)},
	},
}

// Captures returns the demo clouds in collection order.
func Captures() []Capture {
	out := make([]Capture, len(captures))
	copy(out, captures)
	return out
}

// Records renders every demo cloud into a capture record. The i-th record is
// dated i*2 days before now.
func Records(now time.Time) ([]domain.CaptureRecord, error) {
	records := make([]domain.CaptureRecord, 0, len(captures))
	for i, c := range captures {
		photo, err := Photo(c)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", c.CloudType, err)
		}
		loc := c.Location
		rec := domain.NewCaptureRecord(photo, domain.Classification{
			CloudType:   c.CloudType,
			Description: c.Description,
		}, &loc, c.LocationName)
		rec.CapturedAt = now.AddDate(0, 0, -2*i).UTC()
		records = append(records, rec)
	}
	return records, nil
}

// Seed inserts the demo collection into store and returns what was saved.
func Seed(ctx context.Context, store domain.RecordStore, now time.Time) ([]domain.CaptureRecord, error) {
	records, err := Records(now)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := store.Insert(ctx, rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}
