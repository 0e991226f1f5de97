package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/storage"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// app holds everything a command needs: config, logger, stores and the service.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	images  storage.ImageStore
	service *attendance.Service
	closers []func() error
}

// newApp loads configuration, connects the database backend selected by
// DATABASE_DRIVER and builds the attendance service.
func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	logger, closeLog := config.SetupLogger(cfg.Log.File, cfg.Log.Level)
	a := &app{cfg: cfg, logger: logger, closers: []func() error{closeLog}}

	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) build(ctx context.Context) error {
	if err := a.openDatabase(ctx); err != nil {
		return err
	}

	loc, err := a.cfg.Attendance.Location()
	if err != nil {
		return err
	}

	a.images, err = storage.New(ctx, a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize image storage: %w", err)
	}

	detector, err := vision.NewDetector(a.cfg.Detector)
	if err != nil {
		return fmt.Errorf("failed to load face detector: %w", err)
	}
	if c, ok := detector.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}

	roster, err := database.GetRosterWriter(ctx)
	if err != nil {
		return err
	}
	records, err := database.GetAttendanceWriter(ctx)
	if err != nil {
		return err
	}
	rosterView, err := database.GetRosterReader(ctx)
	if err != nil {
		return err
	}
	recordsView, err := database.GetAttendanceReader(ctx)
	if err != nil {
		return err
	}

	a.service, err = attendance.NewService(attendance.Options{
		Detector:     detector,
		Roster:       roster,
		Attendance:   records,
		Images:       a.images,
		Metrics:      metrics.NewCollector(),
		Logger:       a.logger,
		Location:     loc,
		DedupeImages: a.cfg.Attendance.DedupeImages,

		RosterReader:     rosterView,
		AttendanceReader: recordsView,
	})
	if err != nil {
		return err
	}

	if err := a.service.RefreshIndex(ctx); err != nil {
		// Recognition reads the roster per request; only the similarity
		// report and the nearest lookup depend on the index.
		a.logger.Warn("roster index not built", "error", err)
	}
	return nil
}

// openDatabase connects the configured backend and registers its repositories.
func (a *app) openDatabase(ctx context.Context) error {
	cfg := &a.cfg.Database
	if cfg.URL == "" {
		return database.ErrBackendNotInitialized
	}

	switch cfg.Driver {
	case "", "postgres", "postgresql":
		pool, err := postgres.Initialize(ctx, cfg, a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		roster := postgres.NewRosterRepository(pool)
		records := postgres.NewAttendanceRepository(pool)
		database.RegisterBackend("postgres",
			func() database.RosterWriter { return roster },
			func() database.AttendanceWriter { return records },
		)
	case "mariadb", "mysql":
		pool, err := mariadb.Initialize(ctx, cfg, a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		roster := mariadb.NewRosterRepository(pool)
		records := mariadb.NewAttendanceRepository(pool)
		database.RegisterBackend("mariadb",
			func() database.RosterWriter { return roster },
			func() database.AttendanceWriter { return records },
		)
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q (use postgres or mariadb)", cfg.Driver)
	}

	a.logger.Info("database backend ready", "driver", database.BackendName())
	return nil
}

// Close releases resources in reverse order of acquisition and unregisters
// the database backend, whose pool is closed by then.
func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	database.ResetBackend()
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("cleanup failed", "error", err)
	}
}
