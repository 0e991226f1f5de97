package vision

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// Detector locates face-like rectangles in a decoded image. Implementations
// are loaded once and shared read-only across requests. An empty result
// means no face was found; callers choose the fallback.
type Detector interface {
	Detect(img image.Image) ([]FaceBox, error)
}

// ErrDetectorNotLoaded is returned by a detector whose model was never loaded.
var ErrDetectorNotLoaded = errors.New("face detector not loaded")

// NewDetector builds the detector selected by cfg.Backend.
func NewDetector(cfg config.DetectorConfig) (Detector, error) {
	switch cfg.Backend {
	case "", "pigo":
		return LoadPigoDetector(cfg)
	case "haar":
		return newHaarDetector(cfg)
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.Backend)
	}
}

// StubDetector returns a fixed set of boxes. Used in tests and for
// whole-image-only deployments.
type StubDetector struct {
	Boxes []FaceBox
	Err   error
}

func (d *StubDetector) Detect(img image.Image) ([]FaceBox, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	out := make([]FaceBox, len(d.Boxes))
	copy(out, d.Boxes)
	return out, nil
}

// sortBoxes orders boxes top-to-bottom, then left-to-right.
func sortBoxes(boxes []FaceBox) {
	sort.SliceStable(boxes, func(i, j int) bool {
		if boxes[i].Y != boxes[j].Y {
			return boxes[i].Y < boxes[j].Y
		}
		return boxes[i].X < boxes[j].X
	})
}
