// Package constants provides shared constants used across the codebase.
package constants

// File upload constants
const (
	// MaxUploadSize is the maximum multipart upload size in bytes (100MB)
	MaxUploadSize = 100 << 20

	// DefaultConcurrency is the default number of parallel workers for CLI imports
	DefaultConcurrency = 4
)

// Multipart form field names
const (
	FormFieldImage  = "image"
	FormFieldImages = "images"
)
