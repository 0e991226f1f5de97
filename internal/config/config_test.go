package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected int
	}{
		{"unset", "", 7},
		{"valid", "12", 12},
		{"zero falls back", "0", 7},
		{"negative falls back", "-3", 7},
		{"garbage falls back", "abc", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_ENV_INT", tt.value)
			if got := envInt("TEST_ENV_INT", 7); got != tt.expected {
				t.Errorf("envInt() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestEnvFloat(t *testing.T) {
	t.Setenv("TEST_ENV_FLOAT", "1.25")
	if got := envFloat("TEST_ENV_FLOAT", 2); got != 1.25 {
		t.Errorf("envFloat() = %v, want 1.25", got)
	}
	t.Setenv("TEST_ENV_FLOAT", "nope")
	if got := envFloat("TEST_ENV_FLOAT", 2); got != 2 {
		t.Errorf("envFloat() = %v, want default 2", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDefaultDetectorConfig(t *testing.T) {
	d := DefaultDetectorConfig()
	if d.ScaleFactor != 1.1 {
		t.Errorf("expected scale factor 1.1, got %v", d.ScaleFactor)
	}
	if d.MinNeighbors != 4 {
		t.Errorf("expected min neighbors 4, got %d", d.MinNeighbors)
	}
	if d.Backend != "pigo" {
		t.Errorf("expected pigo backend, got %q", d.Backend)
	}
	if d.CascadePath != "" {
		t.Errorf("expected the built-in cascade by default, got %q", d.CascadePath)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("S3_BUCKET", "")
	t.Setenv("DETECTOR_MIN_NEIGHBORS", "")
	t.Setenv("ATTENDANCE_DEDUPE_IMAGES", "")

	cfg := Load()

	if cfg.Database.Driver != "postgres" {
		t.Errorf("expected postgres driver, got %q", cfg.Database.Driver)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected 25 max open conns, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Storage.Backend != "local" {
		t.Errorf("expected local storage, got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.S3Bucket != "student-images" {
		t.Errorf("expected student-images bucket, got %q", cfg.Storage.S3Bucket)
	}
	if cfg.Detector.MinNeighbors != 4 {
		t.Errorf("expected min neighbors 4, got %d", cfg.Detector.MinNeighbors)
	}
	if cfg.Attendance.DedupeImages {
		t.Error("expected image dedupe disabled by default")
	}
}

func TestLoad_DetectorOverrides(t *testing.T) {
	t.Setenv("DETECTOR_MIN_NEIGHBORS", "6")
	t.Setenv("DETECTOR_CASCADE_PATH", "/opt/facefinder")

	cfg := Load()

	if cfg.Detector.MinNeighbors != 6 {
		t.Errorf("expected min neighbors 6, got %d", cfg.Detector.MinNeighbors)
	}
	if cfg.Detector.CascadePath != "/opt/facefinder" {
		t.Errorf("expected cascade override, got %q", cfg.Detector.CascadePath)
	}
	if cfg.Detector.ScaleFactor != 1.1 {
		t.Errorf("scale factor should keep its default, got %v", cfg.Detector.ScaleFactor)
	}
}

func TestAttendanceLocation(t *testing.T) {
	loc, err := AttendanceConfig{}.Location()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc == nil {
		t.Fatal("expected local location")
	}

	loc, err = AttendanceConfig{Timezone: "UTC"}.Location()
	if err != nil || loc.String() != "UTC" {
		t.Errorf("expected UTC, got %v (err %v)", loc, err)
	}

	if _, err := (AttendanceConfig{Timezone: "Mars/Olympus"}).Location(); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("recognized", "student", "R-1")

	if strings.Contains(stderr.String(), "hidden") {
		t.Error("debug message should be filtered")
	}
	if !strings.Contains(stderr.String(), "student=R-1") {
		t.Errorf("expected text output, got %q", stderr.String())
	}
	if !strings.Contains(file.String(), `"student":"R-1"`) {
		t.Errorf("expected JSON output, got %q", file.String())
	}
}
