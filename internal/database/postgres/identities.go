package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// pqUniqueViolation is the SQLSTATE for unique constraint violations.
const pqUniqueViolation = "23505"

// RosterRepository provides PostgreSQL-backed identity storage.
type RosterRepository struct {
	pool *Pool
}

// NewRosterRepository creates a new PostgreSQL roster repository.
func NewRosterRepository(pool *Pool) *RosterRepository {
	return &RosterRepository{pool: pool}
}

const identityColumns = `s.id, s.name, s.roll_number, s.year, s.session, s.image_urls, s.registered_at`

// ListIdentities returns every identity with its signatures in roster order.
func (r *RosterRepository) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	query := `
		SELECT ` + identityColumns + `, sig.position, sig.signature
		FROM students s
		JOIN student_signatures sig ON sig.student_id = s.id
		ORDER BY s.registered_at, s.id, sig.position
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	return scanIdentities(rows)
}

// GetIdentityByRollNumber returns the identity with the roll number, or nil if none.
func (r *RosterRepository) GetIdentityByRollNumber(ctx context.Context, rollNumber string) (*database.Identity, error) {
	query := `
		SELECT ` + identityColumns + `, sig.position, sig.signature
		FROM students s
		JOIN student_signatures sig ON sig.student_id = s.id
		WHERE s.roll_number = $1
		ORDER BY sig.position
	`

	rows, err := r.pool.Query(ctx, query, rollNumber)
	if err != nil {
		return nil, fmt.Errorf("query identity %s: %w", rollNumber, err)
	}
	defer rows.Close()

	identities, err := scanIdentities(rows)
	if err != nil {
		return nil, err
	}
	if len(identities) == 0 {
		return nil, nil
	}
	return &identities[0], nil
}

// CountIdentities returns the number of enrolled students.
func (r *RosterRepository) CountIdentities(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM students").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// CreateIdentity stores the student and its signatures in one transaction.
func (r *RosterRepository) CreateIdentity(ctx context.Context, identity *database.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	if identity.RegisteredAt.IsZero() {
		identity.RegisteredAt = time.Now()
	}
	imageURLs := identity.ImageURLs
	if imageURLs == nil {
		imageURLs = []string{}
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO students (id, name, roll_number, year, session, image_urls, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, identity.ID, identity.Name, identity.RollNumber, identity.Year, identity.Session,
		pq.Array(imageURLs), identity.RegisteredAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("%w: roll number %s", database.ErrDuplicateIdentity, identity.RollNumber)
		}
		return fmt.Errorf("insert student: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO student_signatures (student_id, position, signature) VALUES ($1, $2, $3)
	`)
	if err != nil {
		return fmt.Errorf("prepare signature insert: %w", err)
	}
	defer stmt.Close()

	for pos, sig := range identity.Signatures {
		if _, err := stmt.ExecContext(ctx, identity.ID, pos, pgvector.NewVector(sig)); err != nil {
			return fmt.Errorf("insert signature %d: %w", pos, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit identity: %w", err)
	}
	return nil
}

// scanIdentities folds one row per signature into identities, preserving row order.
func scanIdentities(rows *sql.Rows) ([]database.Identity, error) {
	var identities []database.Identity
	for rows.Next() {
		var (
			id        database.Identity
			imageURLs pq.StringArray
			position  int
			signature pgvector.Vector
		)
		if err := rows.Scan(&id.ID, &id.Name, &id.RollNumber, &id.Year, &id.Session,
			&imageURLs, &id.RegisteredAt, &position, &signature); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}

		n := len(identities)
		if n == 0 || identities[n-1].ID != id.ID {
			id.ImageURLs = []string(imageURLs)
			identities = append(identities, id)
			n++
		}
		identities[n-1].Signatures = append(identities[n-1].Signatures, vision.Signature(signature.Slice()))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}

	for i := range identities {
		if err := identities[i].Validate(); err != nil {
			return nil, err
		}
	}
	return identities, nil
}
