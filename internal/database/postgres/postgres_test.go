//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if _, err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func testSignature(seed int) vision.Signature {
	sig := make(vision.Signature, constants.SignatureDim)
	for i := range sig {
		sig[i] = float32((i*seed)%255) / 255
	}
	return sig
}

func TestRosterRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewRosterRepository(pool)

	t.Run("CreateAndList", func(t *testing.T) {
		alice := &database.Identity{
			Name:         "Alice",
			RollNumber:   "CS-001",
			Year:         "2",
			Session:      "2024-25",
			Signatures:   []vision.Signature{testSignature(3), testSignature(5)},
			ImageURLs:    []string{"/images/CS-001/image_0.jpg"},
			RegisteredAt: time.Now().Add(-time.Hour),
		}
		if err := repo.CreateIdentity(ctx, alice); err != nil {
			t.Fatalf("Failed to create identity: %v", err)
		}
		if alice.ID == "" {
			t.Fatal("Expected identity ID to be assigned")
		}

		bob := &database.Identity{
			Name:       "Bob",
			RollNumber: "CS-002",
			Signatures: []vision.Signature{testSignature(7)},
		}
		if err := repo.CreateIdentity(ctx, bob); err != nil {
			t.Fatalf("Failed to create identity: %v", err)
		}

		identities, err := repo.ListIdentities(ctx)
		if err != nil {
			t.Fatalf("Failed to list identities: %v", err)
		}
		if len(identities) != 2 {
			t.Fatalf("Expected 2 identities, got %d", len(identities))
		}
		if identities[0].RollNumber != "CS-001" || identities[1].RollNumber != "CS-002" {
			t.Errorf("Unexpected roster order: %s, %s", identities[0].RollNumber, identities[1].RollNumber)
		}
		if len(identities[0].Signatures) != 2 {
			t.Errorf("Expected 2 signatures, got %d", len(identities[0].Signatures))
		}
		if got := vision.Similarity(identities[0].Signatures[1], testSignature(5)); got < 0.9999 {
			t.Errorf("Stored signature similarity = %v, want 1", got)
		}
		if len(identities[0].ImageURLs) != 1 {
			t.Errorf("Expected 1 image URL, got %v", identities[0].ImageURLs)
		}
	})

	t.Run("DuplicateRollNumber", func(t *testing.T) {
		dup := &database.Identity{
			Name:       "Impostor",
			RollNumber: "CS-001",
			Signatures: []vision.Signature{testSignature(11)},
		}
		err := repo.CreateIdentity(ctx, dup)
		if !errors.Is(err, database.ErrDuplicateIdentity) {
			t.Errorf("Expected ErrDuplicateIdentity, got %v", err)
		}
	})

	t.Run("GetByRollNumber", func(t *testing.T) {
		got, err := repo.GetIdentityByRollNumber(ctx, "CS-002")
		if err != nil {
			t.Fatalf("Failed to get identity: %v", err)
		}
		if got == nil || got.Name != "Bob" {
			t.Fatalf("Expected Bob, got %+v", got)
		}

		missing, err := repo.GetIdentityByRollNumber(ctx, "NOPE")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if missing != nil {
			t.Errorf("Expected nil for missing roll number, got %+v", missing)
		}
	})

	t.Run("Count", func(t *testing.T) {
		count, err := repo.CountIdentities(ctx)
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 2 {
			t.Errorf("Expected 2, got %d", count)
		}
	})
}

func TestAttendanceRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	roster := NewRosterRepository(pool)
	repo := NewAttendanceRepository(pool)

	student := &database.Identity{
		Name:       "Carol",
		RollNumber: "EE-010",
		Year:       "3",
		Signatures: []vision.Signature{testSignature(13)},
	}
	if err := roster.CreateIdentity(ctx, student); err != nil {
		t.Fatalf("Failed to create identity: %v", err)
	}

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	day := database.DateOf(now)

	t.Run("RecordOncePerDay", func(t *testing.T) {
		rec := database.AttendanceRecord{StudentID: student.ID, Date: day, Time: now, SimilarityScore: 0.82}

		inserted, err := repo.RecordAttendance(ctx, rec)
		if err != nil {
			t.Fatalf("Failed to record: %v", err)
		}
		if !inserted {
			t.Error("Expected first record to be inserted")
		}

		rec.Time = now.Add(time.Hour)
		inserted, err = repo.RecordAttendance(ctx, rec)
		if err != nil {
			t.Fatalf("Failed to record duplicate: %v", err)
		}
		if inserted {
			t.Error("Expected second record on the same day to be ignored")
		}
	})

	t.Run("HasAttendance", func(t *testing.T) {
		ok, err := repo.HasAttendance(ctx, student.ID, day)
		if err != nil {
			t.Fatalf("Failed to check: %v", err)
		}
		if !ok {
			t.Error("Expected attendance for today")
		}

		ok, err = repo.HasAttendance(ctx, student.ID, day.AddDate(0, 0, 1))
		if err != nil {
			t.Fatalf("Failed to check: %v", err)
		}
		if ok {
			t.Error("Expected no attendance for tomorrow")
		}
	})

	t.Run("ListByDate", func(t *testing.T) {
		entries, err := repo.ListAttendanceByDate(ctx, day)
		if err != nil {
			t.Fatalf("Failed to list: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("Expected 1 entry, got %d", len(entries))
		}
		e := entries[0]
		if e.StudentName != "Carol" || e.RollNumber != "EE-010" || e.Year != "3" {
			t.Errorf("Unexpected entry: %+v", e)
		}
		if database.DayKey(e.Date) != "2026-03-14" {
			t.Errorf("Expected date 2026-03-14, got %s", database.DayKey(e.Date))
		}
		if e.SimilarityScore != 0.82 {
			t.Errorf("Expected similarity 0.82, got %v", e.SimilarityScore)
		}
	})
}

func TestMigrations(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	applied, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("Failed to get applied migrations: %v", err)
	}

	expectedMigrations := []string{
		"001_students.sql",
		"002_attendance.sql",
	}

	if len(applied) != len(expectedMigrations) {
		t.Errorf("Expected %d migrations, got %d", len(expectedMigrations), len(applied))
	}

	for i, expected := range expectedMigrations {
		if i < len(applied) && applied[i] != expected {
			t.Errorf("Migration %d: expected '%s', got '%s'", i, expected, applied[i])
		}
	}

	again, err := pool.Migrate(ctx)
	if err != nil {
		t.Fatalf("Second migrate failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("Expected no pending migrations, got %v", again)
	}
}
