// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// MockRoster is a mock implementation of database.RosterWriter
type MockRoster struct {
	mu         sync.RWMutex
	identities []database.Identity

	// Error injection
	ListError   error
	GetError    error
	CountError  error
	CreateError error
}

// NewMockRoster creates a new mock roster
func NewMockRoster() *MockRoster {
	return &MockRoster{}
}

// AddIdentity adds an identity to the mock store without validation
func (m *MockRoster) AddIdentity(identity database.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	m.identities = append(m.identities, identity)
}

// ListIdentities returns identities in insertion order
func (m *MockRoster) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.Identity, len(m.identities))
	copy(out, m.identities)
	return out, nil
}

// GetIdentityByRollNumber returns the identity or nil if not found
func (m *MockRoster) GetIdentityByRollNumber(ctx context.Context, rollNumber string) (*database.Identity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.identities {
		if m.identities[i].RollNumber == rollNumber {
			identity := m.identities[i]
			return &identity, nil
		}
	}
	return nil, nil
}

// CountIdentities returns the number of identities
func (m *MockRoster) CountIdentities(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

// CreateIdentity validates and stores an identity
func (m *MockRoster) CreateIdentity(ctx context.Context, identity *database.Identity) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	if err := identity.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.identities {
		if m.identities[i].RollNumber == identity.RollNumber {
			return database.ErrDuplicateIdentity
		}
	}
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	if identity.RegisteredAt.IsZero() {
		identity.RegisteredAt = time.Now()
	}
	m.identities = append(m.identities, *identity)
	return nil
}

// MockAttendance is a mock implementation of database.AttendanceWriter.
// It enforces the (student, date) uniqueness like the real stores.
type MockAttendance struct {
	mu      sync.RWMutex
	records map[string]database.AttendanceRecord
	roster  *MockRoster

	// Error injection
	HasError    error
	ListError   error
	RecordError error
	// RecordErrorFor fails RecordAttendance only for these student IDs
	RecordErrorFor map[string]error
}

// NewMockAttendance creates a new mock attendance store. roster is used to
// join student details in ListAttendanceByDate and may be nil.
func NewMockAttendance(roster *MockRoster) *MockAttendance {
	return &MockAttendance{
		records: make(map[string]database.AttendanceRecord),
		roster:  roster,
	}
}

func recordKey(studentID string, day time.Time) string {
	return studentID + "|" + database.DayKey(day)
}

// AddRecord inserts a record directly
func (m *MockAttendance) AddRecord(rec database.AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[recordKey(rec.StudentID, rec.Date)] = rec
}

// Records returns all stored records
func (m *MockAttendance) Records() []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.AttendanceRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// HasAttendance checks for a record on the given day
func (m *MockAttendance) HasAttendance(ctx context.Context, studentID string, day time.Time) (bool, error) {
	if m.HasError != nil {
		return false, m.HasError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[recordKey(studentID, day)]
	return ok, nil
}

// ListAttendanceByDate returns the day's records joined with the roster, sorted by time
func (m *MockAttendance) ListAttendanceByDate(ctx context.Context, day time.Time) ([]database.AttendanceEntry, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	key := database.DayKey(day)

	m.mu.RLock()
	var entries []database.AttendanceEntry
	for _, r := range m.records {
		if database.DayKey(r.Date) != key {
			continue
		}
		entries = append(entries, database.AttendanceEntry{AttendanceRecord: r})
	}
	m.mu.RUnlock()

	if m.roster != nil {
		identities, _ := m.roster.ListIdentities(ctx)
		byID := make(map[string]database.Identity, len(identities))
		for _, id := range identities {
			byID[id.ID] = id
		}
		for i := range entries {
			if id, ok := byID[entries[i].StudentID]; ok {
				entries[i].StudentName = id.Name
				entries[i].RollNumber = id.RollNumber
				entries[i].Year = id.Year
				entries[i].Session = id.Session
			}
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Time.Before(entries[j].Time) })
	return entries, nil
}

// RecordAttendance inserts the record unless one exists for (student, date)
func (m *MockAttendance) RecordAttendance(ctx context.Context, rec database.AttendanceRecord) (bool, error) {
	if m.RecordError != nil {
		return false, m.RecordError
	}
	if err, ok := m.RecordErrorFor[rec.StudentID]; ok {
		return false, err
	}
	if err := rec.Validate(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey(rec.StudentID, rec.Date)
	if _, exists := m.records[key]; exists {
		return false, nil
	}
	m.records[key] = rec
	return true, nil
}
