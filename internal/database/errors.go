package database

import "errors"

var (
	// ErrDuplicateIdentity is returned when a roll number is already enrolled.
	ErrDuplicateIdentity = errors.New("identity already exists")

	// ErrBackendNotInitialized is returned by the registry before a backend is registered.
	ErrBackendNotInitialized = errors.New("database backend not initialized: DATABASE_URL is required")
)
