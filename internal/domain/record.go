package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Coordinates is a WGS-84 latitude/longitude pair. Records hold it by pointer so
// a capture either has both values or neither.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f, %.4f", c.Latitude, c.Longitude)
}

// Classification is the cloud-type label and description returned by the vision service.
type Classification struct {
	CloudType   string `json:"cloudType"`
	Description string `json:"description"`
}

// CaptureRecord is the persisted result of one successful capture.
type CaptureRecord struct {
	ID           string       `json:"id"`
	ImageBytes   []byte       `json:"-"`
	CloudType    string       `json:"cloud_type"`
	Description  string       `json:"description"`
	CapturedAt   time.Time    `json:"captured_at"`
	Location     *Coordinates `json:"location,omitempty"`
	LocationName string       `json:"location_name,omitempty"`
}

// NewCaptureRecord assembles a record with a fresh ID, stamped with the package
// clock. The image bytes are owned by the record from here on.
func NewCaptureRecord(image []byte, c Classification, loc *Coordinates, name string) CaptureRecord {
	rec := CaptureRecord{
		ID:           uuid.New().String(),
		ImageBytes:   image,
		CloudType:    c.CloudType,
		Description:  c.Description,
		CapturedAt:   clock.Now().UTC(),
		LocationName: name,
	}
	if loc != nil {
		pair := *loc
		rec.Location = &pair
	}
	return rec
}

// HasLocation reports whether the record carries a coordinate pair.
func (r CaptureRecord) HasLocation() bool {
	return r.Location != nil
}

// DisplayLocation prefers the place name, then the raw coordinates.
func (r CaptureRecord) DisplayLocation() string {
	switch {
	case r.LocationName != "":
		return r.LocationName
	case r.Location != nil:
		return r.Location.String()
	default:
		return "Unknown Location"
	}
}

// FormattedDate renders CapturedAt as a medium date with a short time, in the
// local zone of loc (UTC when nil).
func (r CaptureRecord) FormattedDate(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return r.CapturedAt.In(loc).Format("Jan 2, 2006 at 3:04 PM")
}

// CaptureEvent is the announcement published after a record is persisted. It
// omits the image bytes.
type CaptureEvent struct {
	ID           string    `json:"id"`
	CloudType    string    `json:"cloud_type"`
	Description  string    `json:"description"`
	CapturedAt   time.Time `json:"captured_at"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	LocationName string    `json:"location_name,omitempty"`
}

// NewCaptureEvent flattens a record into its published form.
func NewCaptureEvent(r CaptureRecord) CaptureEvent {
	ev := CaptureEvent{
		ID:           r.ID,
		CloudType:    r.CloudType,
		Description:  r.Description,
		CapturedAt:   r.CapturedAt,
		LocationName: r.LocationName,
	}
	if r.Location != nil {
		lat, lon := r.Location.Latitude, r.Location.Longitude
		ev.Latitude = &lat
		ev.Longitude = &lon
	}
	return ev
}
