// Package facematch pairs detected faces with enrolled identities and
// decides whether a match is a new attendance event.
package facematch

import (
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// Outcome tags a MatchResult
type Outcome string

const (
	OutcomeMatched        Outcome = "matched"          // Paired with an identity above the threshold
	OutcomeBelowThreshold Outcome = "below_threshold"  // Best candidate did not exceed the threshold
	OutcomeNoFaceDetected Outcome = "no_face_detected" // Nothing to compare against (empty roster)
)

// Status classifies a matched face against today's attendance
type Status string

const (
	StatusPresent        Status = "present"         // First recognition today, record written
	StatusAlreadyPresent Status = "already_present" // A record for today already exists
)

// DetectedFace is a face box with its extracted signature.
type DetectedFace struct {
	Box        vision.FaceBox
	Signature  vision.Signature
	WholeImage bool // pseudo-box synthesized because detection found nothing
	Degraded   bool // signature is the zero-vector fallback
}

// MatchResult is the matcher's verdict for one detected face.
type MatchResult struct {
	Identity   *database.Identity // set only when Outcome is OutcomeMatched
	Similarity float64            // best similarity found across unassigned identities
	Face       DetectedFace
	Outcome    Outcome
}

// Matched reports whether the face was paired with an identity.
func (r MatchResult) Matched() bool {
	return r.Outcome == OutcomeMatched && r.Identity != nil
}

// Decision is the attendance verdict for a matched face.
type Decision struct {
	Status Status
	// Record is the record to persist; nil when already present.
	Record *database.AttendanceRecord
	// LookupErr holds a failed existence check. The decision then assumes
	// no record exists and relies on the store's conditional insert.
	LookupErr error
}
