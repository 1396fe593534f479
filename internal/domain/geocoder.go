package domain

import "context"

// GeocodingResult contains place details returned by a geocoding provider.
type GeocodingResult struct {
	Locality         string
	Region           string
	Country          string
	FormattedAddress string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// PlaceName formats the result the way captures display it: "locality, region",
// falling back to the country alone. Empty when nothing usable was returned.
func (r GeocodingResult) PlaceName() string {
	switch {
	case r.Locality != "" && r.Region != "":
		return r.Locality + ", " + r.Region
	case r.Locality != "":
		return r.Locality
	case r.Region != "":
		return r.Region
	default:
		return r.Country
	}
}

// Geocoder converts coordinates to place details.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}
