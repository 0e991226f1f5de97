// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face matching constants
const (
	// MatchThreshold is the similarity a face must strictly exceed to be
	// paired with an enrolled identity.
	MatchThreshold = 0.70

	// SignatureSide is the edge length of the square grayscale patch a
	// signature is computed from.
	SignatureSide = 64

	// SignatureDim is the length of a face signature (SignatureSide squared)
	SignatureDim = SignatureSide * SignatureSide
)

// Face box confidence constants
const (
	// MinBoxConfidence and MaxBoxConfidence clamp the area-derived box
	// confidence before it is scaled to a percentage.
	MinBoxConfidence = 0.6
	MaxBoxConfidence = 0.95

	// BoxAreaScale multiplies the box/image area ratio.
	BoxAreaScale = 10
)

// Registration constants
const (
	// MinEnrollmentImages is the minimum number of images accepted per registration
	MinEnrollmentImages = 5

	// MaxEnrollmentImages is the maximum number of images accepted per registration
	MaxEnrollmentImages = 10
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel workers for signature extraction
	WorkerPoolSize = 8

	// DefaultNearestLimit is the default number of neighbours returned by the debug lookup
	DefaultNearestLimit = 5
)

// Messages shared between the service and the HTTP layer
const (
	// MsgEmptyRoster is returned by recognition when nobody is enrolled
	MsgEmptyRoster = "No students registered in the system"
)
