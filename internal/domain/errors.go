package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrImageProcessing means the photo could not be decoded or re-encoded.
	ErrImageProcessing = errors.New("image processing failed")

	// ErrLocationUnavailable means no fix could be obtained. Callers treat it as
	// "no location", never as a capture failure.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrNotFound is returned by the record store for unknown IDs.
	ErrNotFound = errors.New("capture not found")

	// ErrCaptureInProgress rejects a capture that overlaps a running one.
	ErrCaptureInProgress = errors.New("a capture is already in progress")
)

// ClassificationErrorKind groups classifier failures.
type ClassificationErrorKind string

const (
	KindTransport ClassificationErrorKind = "transport"
	KindAPI       ClassificationErrorKind = "api"
	KindNoContent ClassificationErrorKind = "no_content"
)

// ClassificationError is a hard failure of the classification call. Malformed
// model output is not an error; see ParseClassification.
type ClassificationError struct {
	Kind       ClassificationErrorKind
	StatusCode int    // set for KindAPI
	Body       string // set for KindAPI
	Err        error
}

func (e *ClassificationError) Error() string {
	switch e.Kind {
	case KindAPI:
		if e.Body != "" {
			return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Body)
		}
		return fmt.Sprintf("API error: %d", e.StatusCode)
	case KindNoContent:
		if e.Err != nil {
			return "no response content: " + e.Err.Error()
		}
		return "no response content"
	default:
		if e.Err != nil {
			return "classification request failed: " + e.Err.Error()
		}
		return "classification request failed"
	}
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a record store failure with the operation that failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s capture: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// UserMessage renders err as the single message shown for a failed capture.
func UserMessage(err error) string {
	var cerr *ClassificationError
	var perr *PersistenceError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrImageProcessing):
		return "Failed to process image"
	case errors.Is(err, ErrCaptureInProgress):
		return "A capture is already in progress"
	case errors.Is(err, ErrNotFound):
		return "Cloud not found"
	case errors.As(err, &cerr):
		return "Failed to identify cloud: " + cerr.Error()
	case errors.As(err, &perr):
		return "Failed to save cloud: " + perr.Err.Error()
	default:
		return "Failed to identify cloud: " + err.Error()
	}
}
