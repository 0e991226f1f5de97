package database

import (
	"context"
	"time"
)

// RosterReader provides read-only access to enrolled identities
type RosterReader interface {
	// ListIdentities returns every identity with its signatures, ordered by
	// registration time then id. This order is the matcher's tie-break order.
	ListIdentities(ctx context.Context) ([]Identity, error)
	// GetIdentityByRollNumber returns nil, nil when no identity has the roll number
	GetIdentityByRollNumber(ctx context.Context, rollNumber string) (*Identity, error)
	// CountIdentities returns the number of enrolled identities
	CountIdentities(ctx context.Context) (int, error)
}

// RosterWriter provides write access to the roster
type RosterWriter interface {
	RosterReader

	// CreateIdentity stores a new identity. An empty ID is replaced by a new UUID.
	// Returns ErrDuplicateIdentity when the roll number is taken.
	CreateIdentity(ctx context.Context, identity *Identity) error
}

// AttendanceReader provides read-only access to attendance records
type AttendanceReader interface {
	// HasAttendance checks if a record exists for the student on the given day
	HasAttendance(ctx context.Context, studentID string, day time.Time) (bool, error)
	// ListAttendanceByDate returns the day's records joined with students, sorted by time
	ListAttendanceByDate(ctx context.Context, day time.Time) ([]AttendanceEntry, error)
}

// AttendanceWriter provides write access to attendance records
type AttendanceWriter interface {
	AttendanceReader

	// RecordAttendance inserts the record unless one already exists for
	// (student, date). Returns true when a row was written.
	RecordAttendance(ctx context.Context, record AttendanceRecord) (bool, error)
}
