package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// Identity is an enrolled student: a roster entry with its enrollment signatures.
type Identity struct {
	ID           string
	Name         string
	RollNumber   string // unique identity key
	Year         string
	Session      string
	Signatures   []vision.Signature // immutable after registration
	ImageURLs    []string
	RegisteredAt time.Time
}

// AttendanceRecord marks a student present on a calendar day.
// At most one record exists per (StudentID, Date).
type AttendanceRecord struct {
	StudentID       string
	Date            time.Time // calendar day, see DateOf
	Time            time.Time
	SimilarityScore float64
}

// AttendanceEntry is an attendance record joined with the student's details.
type AttendanceEntry struct {
	AttendanceRecord
	StudentName string
	RollNumber  string
	Year        string
	Session     string
}

// ErrInvalidRecord is returned when a record is missing required fields.
var ErrInvalidRecord = errors.New("invalid record")

// Validate checks the fields a stored identity must carry.
func (i *Identity) Validate() error {
	switch {
	case i.Name == "":
		return fmt.Errorf("%w: identity name is required", ErrInvalidRecord)
	case i.RollNumber == "":
		return fmt.Errorf("%w: identity roll number is required", ErrInvalidRecord)
	case len(i.Signatures) == 0:
		return fmt.Errorf("%w: identity %s has no signatures", ErrInvalidRecord, i.RollNumber)
	}
	for n, sig := range i.Signatures {
		if len(sig) != constants.SignatureDim {
			return fmt.Errorf("%w: identity %s signature %d has dimension %d, want %d",
				ErrInvalidRecord, i.RollNumber, n, len(sig), constants.SignatureDim)
		}
	}
	return nil
}

// Validate checks the fields an attendance record must carry.
func (r *AttendanceRecord) Validate() error {
	switch {
	case r.StudentID == "":
		return fmt.Errorf("%w: attendance student id is required", ErrInvalidRecord)
	case r.Date.IsZero():
		return fmt.Errorf("%w: attendance date is required", ErrInvalidRecord)
	case r.Time.IsZero():
		return fmt.Errorf("%w: attendance time is required", ErrInvalidRecord)
	case r.SimilarityScore < 0 || r.SimilarityScore > 1:
		return fmt.Errorf("%w: similarity %v outside [0, 1]", ErrInvalidRecord, r.SimilarityScore)
	}
	return nil
}

// DateOf returns the calendar day of t (in t's location) as midnight UTC,
// which is how days are compared and stored.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayKey formats a calendar day as YYYY-MM-DD.
func DayKey(day time.Time) string {
	return day.Format(time.DateOnly)
}
