package database

import (
	"context"
	"fmt"
	"sync"
)

var (
	mu               sync.RWMutex
	backendName      string
	rosterReader     func() RosterReader
	rosterWriter     func() RosterWriter
	attendanceReader func() AttendanceReader
	attendanceWriter func() AttendanceWriter
	initialized      bool
)

// RegisterBackend registers repository constructors for the active backend.
// This is called by the cmd layer to avoid import cycles between the
// backend packages and their consumers.
func RegisterBackend(
	name string,
	roster func() RosterWriter,
	attendance func() AttendanceWriter,
) {
	mu.Lock()
	defer mu.Unlock()
	backendName = name
	rosterWriter = roster
	rosterReader = func() RosterReader { return roster() }
	attendanceWriter = attendance
	attendanceReader = func() AttendanceReader { return attendance() }
	initialized = true
}

// ResetBackend clears the registry. Called on shutdown once the backend
// pool is closed.
func ResetBackend() {
	mu.Lock()
	defer mu.Unlock()
	backendName = ""
	rosterReader, rosterWriter = nil, nil
	attendanceReader, attendanceWriter = nil, nil
	initialized = false
}

// IsInitialized returns whether a backend has been registered.
func IsInitialized() bool {
	mu.RLock()
	defer mu.RUnlock()
	return initialized
}

// BackendName returns the registered backend name ("postgres", "mariadb", ...).
func BackendName() string {
	mu.RLock()
	defer mu.RUnlock()
	return backendName
}

// GetRosterReader returns a RosterReader from the registered backend
func GetRosterReader(ctx context.Context) (RosterReader, error) {
	mu.RLock()
	defer mu.RUnlock()
	if !initialized {
		return nil, ErrBackendNotInitialized
	}
	if rosterReader == nil {
		return nil, fmt.Errorf("%s roster reader not registered", backendName)
	}
	return rosterReader(), nil
}

// GetRosterWriter returns a RosterWriter from the registered backend
func GetRosterWriter(ctx context.Context) (RosterWriter, error) {
	mu.RLock()
	defer mu.RUnlock()
	if !initialized {
		return nil, ErrBackendNotInitialized
	}
	if rosterWriter == nil {
		return nil, fmt.Errorf("%s roster writer not registered", backendName)
	}
	return rosterWriter(), nil
}

// GetAttendanceReader returns an AttendanceReader from the registered backend
func GetAttendanceReader(ctx context.Context) (AttendanceReader, error) {
	mu.RLock()
	defer mu.RUnlock()
	if !initialized {
		return nil, ErrBackendNotInitialized
	}
	if attendanceReader == nil {
		return nil, fmt.Errorf("%s attendance reader not registered", backendName)
	}
	return attendanceReader(), nil
}

// GetAttendanceWriter returns an AttendanceWriter from the registered backend
func GetAttendanceWriter(ctx context.Context) (AttendanceWriter, error) {
	mu.RLock()
	defer mu.RUnlock()
	if !initialized {
		return nil, ErrBackendNotInitialized
	}
	if attendanceWriter == nil {
		return nil, fmt.Errorf("%s attendance writer not registered", backendName)
	}
	return attendanceWriter(), nil
}
