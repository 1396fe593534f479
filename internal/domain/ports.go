package domain

import "context"

// ImageNormalizer bounds a photo's size and compression before it leaves the device.
type ImageNormalizer interface {
	Normalize(raw []byte) ([]byte, error)
}

// LocationProvider resolves where a capture happened. Both lookups are
// best-effort: absence is reported with ok=false, never as an error.
type LocationProvider interface {
	CurrentLocation(ctx context.Context) (Coordinates, bool)
	LocationName(ctx context.Context, c Coordinates) (string, bool)
}

// Classifier sends a normalized photo to the vision service.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (Classification, error)
}

// RecordStore persists capture records. List orders by CapturedAt descending,
// ties in insertion order.
type RecordStore interface {
	Insert(ctx context.Context, rec CaptureRecord) error
	Get(ctx context.Context, id string) (CaptureRecord, error)
	List(ctx context.Context) ([]CaptureRecord, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	Ping(ctx context.Context) error
}

// EventPublisher announces persisted captures to downstream consumers.
type EventPublisher interface {
	PublishCapture(ctx context.Context, rec CaptureRecord) error
}
