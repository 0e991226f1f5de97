package attendance

import "errors"

var (
	// ErrMissingField is returned when a required registration field is empty.
	ErrMissingField = errors.New("missing required field")

	// ErrTooFewImages is returned when fewer than the minimum enrollment images are supplied.
	ErrTooFewImages = errors.New("at least 5 face images are required")

	// ErrTooManyImages is returned when more than the maximum enrollment images are supplied.
	ErrTooManyImages = errors.New("maximum 10 face images allowed")

	// ErrNoUsableSignature is returned when no enrollment image produced a usable signature.
	ErrNoUsableSignature = errors.New("no valid images could be processed")

	// ErrStoreUnavailable wraps store failures on paths that cannot fall back.
	ErrStoreUnavailable = errors.New("store unavailable")
)
