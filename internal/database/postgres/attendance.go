package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// HasAttendance checks if the student already has a record for the day.
func (r *AttendanceRepository) HasAttendance(ctx context.Context, studentID string, day time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM attendance WHERE student_id = $1 AND date = $2::date)",
		studentID, database.DayKey(day),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check attendance exists: %w", err)
	}
	return exists, nil
}

// ListAttendanceByDate returns the day's records joined with students, sorted by time.
func (r *AttendanceRepository) ListAttendanceByDate(ctx context.Context, day time.Time) ([]database.AttendanceEntry, error) {
	query := `
		SELECT a.student_id, a.date, a.time, a.similarity_score,
		       s.name, s.roll_number, s.year, s.session
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		WHERE a.date = $1::date
		ORDER BY a.time, s.roll_number
	`

	rows, err := r.pool.Query(ctx, query, database.DayKey(day))
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var entries []database.AttendanceEntry
	for rows.Next() {
		var e database.AttendanceEntry
		if err := rows.Scan(&e.StudentID, &e.Date, &e.Time, &e.SimilarityScore,
			&e.StudentName, &e.RollNumber, &e.Year, &e.Session); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return entries, nil
}

// RecordAttendance inserts the record unless one already exists for the
// (student, date) pair. Returns true when a row was written.
func (r *AttendanceRepository) RecordAttendance(ctx context.Context, rec database.AttendanceRecord) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}

	result, err := r.pool.Exec(ctx, `
		INSERT INTO attendance (student_id, date, time, similarity_score)
		VALUES ($1, $2::date, $3, $4)
		ON CONFLICT (student_id, date) DO NOTHING
	`, rec.StudentID, database.DayKey(rec.Date), rec.Time, rec.SimilarityScore)
	if err != nil {
		return false, fmt.Errorf("insert attendance: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return n == 1, nil
}
