//go:build integration

package mariadb

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
		Image:        "mariadb:11",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MARIADB_USER":          "test",
			"MARIADB_PASSWORD":      "test",
			"MARIADB_DATABASE":      "testdb",
			"MARIADB_ROOT_PASSWORD": "root",
		},
		WaitingFor: wait.ForLog("ready for connections").
			WithOccurrence(2).
			WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		Driver:       "mariadb",
		URL:          fmt.Sprintf("test:test@tcp(%s:%s)/testdb", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}
	if err := pool.EnsureSchema(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to create schema: %v", err)
	}

	return pool, func() {
		pool.Close()
		container.Terminate(ctx)
	}
}

func testSignature(seed int) vision.Signature {
	sig := make(vision.Signature, constants.SignatureDim)
	for i := range sig {
		sig[i] = float32((i*seed)%255) / 255
	}
	return sig
}

func TestMariaDBBackend(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	roster := NewRosterRepository(pool)
	attendance := NewAttendanceRepository(pool)

	// schema bootstrap is idempotent
	if err := pool.EnsureSchema(ctx); err != nil {
		t.Fatalf("Second EnsureSchema failed: %v", err)
	}

	dave := &database.Identity{
		Name:       "Dave",
		RollNumber: "ME-100",
		Year:       "1",
		Session:    "2025-26",
		Signatures: []vision.Signature{testSignature(3), testSignature(7)},
		ImageURLs:  []string{"/images/ME-100/image_0.png"},
	}
	if err := roster.CreateIdentity(ctx, dave); err != nil {
		t.Fatalf("Failed to create identity: %v", err)
	}

	t.Run("Duplicate", func(t *testing.T) {
		err := roster.CreateIdentity(ctx, &database.Identity{
			Name:       "Other",
			RollNumber: "ME-100",
			Signatures: []vision.Signature{testSignature(5)},
		})
		if !errors.Is(err, database.ErrDuplicateIdentity) {
			t.Errorf("Expected ErrDuplicateIdentity, got %v", err)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		got, err := roster.GetIdentityByRollNumber(ctx, "ME-100")
		if err != nil {
			t.Fatalf("Failed to get identity: %v", err)
		}
		if got == nil {
			t.Fatal("Expected identity")
		}
		if len(got.Signatures) != 2 {
			t.Fatalf("Expected 2 signatures, got %d", len(got.Signatures))
		}
		if sim := vision.Similarity(got.Signatures[1], testSignature(7)); sim < 0.9999 {
			t.Errorf("Signature similarity after round trip = %v", sim)
		}

		missing, err := roster.GetIdentityByRollNumber(ctx, "none")
		if err != nil || missing != nil {
			t.Errorf("Expected nil, nil for missing roll number, got %v, %v", missing, err)
		}

		all, err := roster.ListIdentities(ctx)
		if err != nil {
			t.Fatalf("Failed to list identities: %v", err)
		}
		if len(all) != 1 {
			t.Errorf("Expected 1 identity, got %d", len(all))
		}
	})

	t.Run("Attendance", func(t *testing.T) {
		now := time.Date(2026, 5, 2, 8, 15, 0, 0, time.UTC)
		rec := database.AttendanceRecord{StudentID: dave.ID, Date: database.DateOf(now), Time: now, SimilarityScore: 0.75}

		inserted, err := attendance.RecordAttendance(ctx, rec)
		if err != nil || !inserted {
			t.Fatalf("Expected insert, got %v, %v", inserted, err)
		}
		inserted, err = attendance.RecordAttendance(ctx, rec)
		if err != nil || inserted {
			t.Fatalf("Expected duplicate to be ignored, got %v, %v", inserted, err)
		}

		ok, err := attendance.HasAttendance(ctx, dave.ID, rec.Date)
		if err != nil || !ok {
			t.Errorf("Expected attendance present, got %v, %v", ok, err)
		}

		entries, err := attendance.ListAttendanceByDate(ctx, rec.Date)
		if err != nil {
			t.Fatalf("Failed to list: %v", err)
		}
		if len(entries) != 1 || entries[0].RollNumber != "ME-100" {
			t.Fatalf("Unexpected entries: %+v", entries)
		}
		if database.DayKey(entries[0].Date) != "2026-05-02" {
			t.Errorf("Expected 2026-05-02, got %s", database.DayKey(entries[0].Date))
		}
	})
}
