package facematch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceLookup is satisfied by database.AttendanceReader.
type AttendanceLookup interface {
	HasAttendance(ctx context.Context, studentID string, day time.Time) (bool, error)
}

// ErrNotMatched is returned when Decide is handed a face without an identity.
var ErrNotMatched = errors.New("match result has no identity")

// Decide classifies a matched face against today's attendance. now must
// already be in the timezone attendance days are counted in.
//
// The check is not atomic with the later write; stores enforce the
// (student, date) uniqueness themselves and report whether a row was written.
func Decide(ctx context.Context, lookup AttendanceLookup, match MatchResult, now time.Time) (Decision, error) {
	if !match.Matched() {
		return Decision{}, ErrNotMatched
	}

	day := database.DateOf(now)
	exists, err := lookup.HasAttendance(ctx, match.Identity.ID, day)
	if err != nil {
		// Assume absent: the conditional insert still prevents a duplicate.
		exists = false
		err = fmt.Errorf("check attendance for %s: %w", match.Identity.RollNumber, err)
	}
	if exists {
		return Decision{Status: StatusAlreadyPresent}, nil
	}

	return Decision{
		Status: StatusPresent,
		Record: &database.AttendanceRecord{
			StudentID:       match.Identity.ID,
			Date:            day,
			Time:            now,
			SimilarityScore: match.Similarity,
		},
		LookupErr: err,
	}, nil
}
