package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// RosterRepository stores identities in MariaDB. Signatures and image URLs
// are kept as JSON documents on the student row.
type RosterRepository struct {
	pool *Pool
}

// NewRosterRepository creates a new MariaDB roster repository.
func NewRosterRepository(pool *Pool) *RosterRepository {
	return &RosterRepository{pool: pool}
}

const identityColumns = `id, name, roll_number, year, session, signatures, image_urls, registered_at`

// ListIdentities returns every identity ordered by registration time then id.
func (r *RosterRepository) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT `+identityColumns+` FROM students ORDER BY registered_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var identities []database.Identity
	for rows.Next() {
		id, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, *id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

// GetIdentityByRollNumber returns the identity with the roll number, or nil if none.
func (r *RosterRepository) GetIdentityByRollNumber(ctx context.Context, rollNumber string) (*database.Identity, error) {
	row := r.pool.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM students WHERE roll_number = ?`, rollNumber)
	id, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return id, nil
}

// CountIdentities returns the number of enrolled students.
func (r *RosterRepository) CountIdentities(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM students").Scan(&count); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// CreateIdentity stores a new identity.
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

	signatures, err := json.Marshal(identity.Signatures)
	if err != nil {
		return fmt.Errorf("marshal signatures: %w", err)
	}
	imageURLs := identity.ImageURLs
	if imageURLs == nil {
		imageURLs = []string{}
	}
	urls, err := json.Marshal(imageURLs)
	if err != nil {
		return fmt.Errorf("marshal image urls: %w", err)
	}

	_, err = r.pool.db.ExecContext(ctx, `
		INSERT INTO students (`+identityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, identity.ID, identity.Name, identity.RollNumber, identity.Year, identity.Session,
		signatures, urls, identity.RegisteredAt.UTC())
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return fmt.Errorf("%w: roll number %s", database.ErrDuplicateIdentity, identity.RollNumber)
		}
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*database.Identity, error) {
	var (
		id         database.Identity
		signatures []byte
		imageURLs  []byte
	)
	err := row.Scan(&id.ID, &id.Name, &id.RollNumber, &id.Year, &id.Session,
		&signatures, &imageURLs, &id.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan identity: %w", err)
	}

	var sigs [][]float32
	if err := json.Unmarshal(signatures, &sigs); err != nil {
		return nil, fmt.Errorf("unmarshal signatures of %s: %w", id.RollNumber, err)
	}
	id.Signatures = make([]vision.Signature, len(sigs))
	for i, s := range sigs {
		id.Signatures[i] = vision.Signature(s)
	}
	if err := json.Unmarshal(imageURLs, &id.ImageURLs); err != nil {
		return nil, fmt.Errorf("unmarshal image urls of %s: %w", id.RollNumber, err)
	}
	return &id, nil
}
