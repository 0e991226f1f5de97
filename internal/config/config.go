package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed detector.yaml
var detectorYAML []byte

type Config struct {
	Database   DatabaseConfig
	Detector   DetectorConfig
	Storage    StorageConfig
	Attendance AttendanceConfig
	Log        LogConfig
}

type DatabaseConfig struct {
	Driver       string // postgres (default) or mariadb
	URL          string // connection URL or DSN
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// DetectorConfig holds the cascade tuning constants.
type DetectorConfig struct {
	Backend          string  `yaml:"backend"`      // pigo or haar (haar needs the gocv build tag)
	CascadePath      string  `yaml:"cascade_path"` // empty = embedded pigo cascade
	ScaleFactor      float64 `yaml:"scale_factor"`
	MinNeighbors     int     `yaml:"min_neighbors"`
	ShiftFactor      float64 `yaml:"shift_factor"`
	MinSize          int     `yaml:"min_size"`
	MaxSize          int     `yaml:"max_size"` // 0 = bounded by the image
	IoUThreshold     float64 `yaml:"iou_threshold"`
	QualityThreshold float64 `yaml:"quality_threshold"`
}

// DefaultLocalPublicURL is the path the web server serves local images under.
const DefaultLocalPublicURL = "/images"

type StorageConfig struct {
	Backend     string // local (default), s3 or none
	Dir         string // local backend root directory
	PublicURL   string // URL prefix for stored images
	S3Bucket    string
	S3Region    string
	S3Endpoint  string // custom endpoint, e.g. MinIO
	S3PathStyle bool
}

type AttendanceConfig struct {
	Timezone     string // IANA name; empty means the process local zone
	DedupeImages bool   // drop repeated photos within one registration
}

// Location resolves the timezone attendance days are counted in.
func (c AttendanceConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

type LogConfig struct {
	Level slog.Level
	File  string // optional JSON log file
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return defaultVal
	}
	return b
}

// parseLogLevel maps a level name to slog.Level, defaulting to info.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DefaultDetectorConfig returns the embedded detector defaults.
func DefaultDetectorConfig() DetectorConfig {
	var d DetectorConfig
	if err := yaml.Unmarshal(detectorYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded detector.yaml: " + err.Error())
	}
	return d
}

func loadDetector() DetectorConfig {
	d := DefaultDetectorConfig()
	d.Backend = getEnv("DETECTOR_BACKEND", d.Backend)
	d.CascadePath = getEnv("DETECTOR_CASCADE_PATH", d.CascadePath)
	d.ScaleFactor = envFloat("DETECTOR_SCALE_FACTOR", d.ScaleFactor)
	d.MinNeighbors = envInt("DETECTOR_MIN_NEIGHBORS", d.MinNeighbors)
	d.ShiftFactor = envFloat("DETECTOR_SHIFT_FACTOR", d.ShiftFactor)
	d.MinSize = envInt("DETECTOR_MIN_SIZE", d.MinSize)
	d.MaxSize = envInt("DETECTOR_MAX_SIZE", d.MaxSize)
	d.IoUThreshold = envFloat("DETECTOR_IOU_THRESHOLD", d.IoUThreshold)
	d.QualityThreshold = envFloat("DETECTOR_QUALITY_THRESHOLD", d.QualityThreshold)
	return d
}

func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:       getEnv("DATABASE_DRIVER", "postgres"),
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Detector: loadDetector(),
		Storage: StorageConfig{
			Backend:     getEnv("STORAGE_BACKEND", "local"),
			Dir:         getEnv("STORAGE_DIR", "data/student-images"),
			PublicURL:   getEnv("STORAGE_PUBLIC_URL", DefaultLocalPublicURL),
			S3Bucket:    getEnv("S3_BUCKET", "student-images"),
			S3Region:    os.Getenv("S3_REGION"),
			S3Endpoint:  os.Getenv("S3_ENDPOINT"),
			S3PathStyle: envBool("S3_PATH_STYLE", false),
		},
		Attendance: AttendanceConfig{
			Timezone:     os.Getenv("ATTENDANCE_TIMEZONE"),
			DedupeImages: envBool("ATTENDANCE_DEDUPE_IMAGES", false),
		},
		Log: LogConfig{
			Level: parseLogLevel(os.Getenv("LOG_LEVEL")),
			File:  os.Getenv("LOG_FILE"),
		},
	}
}
