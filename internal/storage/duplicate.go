package storage

import (
	"fmt"
	"image"
	"sync"

	"github.com/corona10/goimagehash"
)

// DuplicateGuard remembers the difference hashes of images seen so far and
// flags images whose hash is within maxDistance of an earlier one.
type DuplicateGuard struct {
	mu          sync.Mutex
	maxDistance int
	hashes      []*goimagehash.ImageHash
}

// NewDuplicateGuard creates a guard. maxDistance 0 only flags identical hashes.
func NewDuplicateGuard(maxDistance int) *DuplicateGuard {
	return &DuplicateGuard{maxDistance: maxDistance}
}

// Seen reports whether img duplicates an earlier image. Unseen images are
// remembered.
func (g *DuplicateGuard) Seen(img image.Image) (bool, error) {
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return false, fmt.Errorf("difference hash: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, prev := range g.hashes {
		d, err := prev.Distance(hash)
		if err != nil {
			return false, fmt.Errorf("hash distance: %w", err)
		}
		if d <= g.maxDistance {
			return true, nil
		}
	}
	g.hashes = append(g.hashes, hash)
	return false, nil
}
