package vision

import (
	_ "embed"
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// facefinderCascade is the frontal face cascade shipped with pigo (MIT).
//
//go:embed cascade/facefinder
var facefinderCascade []byte

// PigoDetector is a pure-Go pixel-intensity-comparison cascade detector.
// The classifier is unpacked once and never mutated, so Detect is safe for
// concurrent use.
type PigoDetector struct {
	classifier *pigo.Pigo
	cfg        config.DetectorConfig
}

// LoadPigoDetector unpacks the cascade file named in cfg, or the embedded
// facefinder cascade when no path is set.
func LoadPigoDetector(cfg config.DetectorConfig) (*PigoDetector, error) {
	if cfg.CascadePath == "" {
		return NewPigoDetector(facefinderCascade, cfg)
	}
	data, err := os.ReadFile(cfg.CascadePath)
	if err != nil {
		return nil, fmt.Errorf("read cascade %s: %w", cfg.CascadePath, err)
	}
	return NewPigoDetector(data, cfg)
}

// NewPigoDetector unpacks a cascade from memory.
func NewPigoDetector(cascade []byte, cfg config.DetectorConfig) (*PigoDetector, error) {
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade: %w", err)
	}
	return &PigoDetector{classifier: classifier, cfg: cfg}, nil
}

func (d *PigoDetector) Detect(img image.Image) ([]FaceBox, error) {
	if d == nil || d.classifier == nil {
		return nil, ErrDetectorNotLoaded
	}

	src := pigo.ImgToNRGBA(img)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()

	maxSize := min(rows, cols)
	if d.cfg.MaxSize > 0 && d.cfg.MaxSize < maxSize {
		maxSize = d.cfg.MaxSize
	}
	if d.cfg.MinSize > maxSize {
		return []FaceBox{}, nil
	}

	params := pigo.CascadeParams{
		MinSize:     d.cfg.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: d.cfg.ShiftFactor,
		ScaleFactor: d.cfg.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(src),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	raw := d.classifier.RunCascade(params, 0.0)
	clusters := d.classifier.ClusterDetections(raw, d.cfg.IoUThreshold)

	boxes := make([]FaceBox, 0, len(clusters))
	for _, c := range clusters {
		if float64(c.Q) < d.cfg.QualityThreshold {
			continue
		}
		box := detectionBox(c)
		if countNeighbors(box, raw, d.cfg.IoUThreshold) < d.cfg.MinNeighbors {
			continue
		}
		box = box.ClipTo(cols, rows)
		if box.Area() == 0 {
			continue
		}
		boxes = append(boxes, box)
	}
	sortBoxes(boxes)
	return boxes, nil
}

func detectionBox(det pigo.Detection) FaceBox {
	return FaceBox{
		X:      det.Col - det.Scale/2,
		Y:      det.Row - det.Scale/2,
		Width:  det.Scale,
		Height: det.Scale,
	}
}

// countNeighbors counts raw cascade hits that overlap box; a cluster backed
// by fewer than min-neighbors hits is discarded as noise.
func countNeighbors(box FaceBox, raw []pigo.Detection, iou float64) int {
	n := 0
	for _, det := range raw {
		if box.IoU(detectionBox(det)) > iou {
			n++
		}
	}
	return n
}
