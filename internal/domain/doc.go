// Package domain models cloud captures: the persisted CaptureRecord, the
// classification returned by the vision service, and the ports the capture
// pipeline depends on.
//
// # Classification Output
//
// The vision model is asked to answer with a JSON object:
//
//	{"cloudType": "Cumulus", "description": "Puffy clouds with flat bases."}
//
// Models do not always comply. [ParseClassification] accepts, in order:
//
//   - the bare object, possibly surrounded by whitespace;
//   - the object inside the first fenced block (```json ... ``` or ``` ... ```);
//   - anything else, as CloudType "Unknown" with the trimmed answer as description.
//
// Extra keys are ignored. Malformed output never fails a capture; only transport
// errors, non-2xx responses and empty envelopes do (see [ClassificationError]).
//
// # Location
//
// Coordinates are held as a single optional pair so a record can never carry a
// latitude without a longitude. The place name is independent: a capture may
// have coordinates without a name (reverse geocoding failed) or, for seeded
// samples, a name with coordinates supplied by the sample set.
package domain
