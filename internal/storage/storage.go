// Package storage persists enrollment images and hands back URLs for them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/config"
)

var (
	// ErrInvalidKey is returned for keys that are empty or escape the store root.
	ErrInvalidKey = errors.New("invalid storage key")
	// ErrExists is returned by Put when the key is already taken. Stores
	// never overwrite.
	ErrExists = errors.New("storage key already exists")
)

// ImageStore stores encoded images under keys and hands back public URLs.
type ImageStore interface {
	// Put stores data under key and returns its URL. An existing key fails
	// with ErrExists.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// New builds the store selected by cfg.Backend. Backend "none" returns a nil
// store, which callers treat as "do not persist images".
func New(ctx context.Context, cfg config.StorageConfig) (ImageStore, error) {
	switch cfg.Backend {
	case "", "local":
		store, err := NewLocalStore(cfg.Dir, cfg.PublicURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		store, err := NewS3Store(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// ImageKey returns the key of the i-th enrollment image of a student. Keys
// are scoped by the student's ID, never by a user-supplied field.
func ImageKey(studentID string, i int, ext string) string {
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("%s/image_%d.%s", studentID, i, ext)
}

// ExtensionFor maps a content type to a file extension.
func ExtensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/bmp":
		return "bmp"
	case "image/webp":
		return "webp"
	case "image/tiff":
		return "tiff"
	default:
		return "jpg"
	}
}

// cleanKey rejects keys that are absolute or climb out of the store root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}
