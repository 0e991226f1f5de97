//go:build gocv

package vision

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// HaarDetector wraps an OpenCV Haar cascade classifier.
type HaarDetector struct {
	mu         sync.Mutex // CascadeClassifier is not safe for concurrent use
	classifier gocv.CascadeClassifier
	cfg        config.DetectorConfig
}

func newHaarDetector(cfg config.DetectorConfig) (Detector, error) {
	if cfg.CascadePath == "" {
		return nil, fmt.Errorf("haar backend needs DETECTOR_CASCADE_PATH")
	}
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cfg.CascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("load haar cascade %s", cfg.CascadePath)
	}
	return &HaarDetector{classifier: classifier, cfg: cfg}, nil
}

func (d *HaarDetector) Detect(img image.Image) ([]FaceBox, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	minSize := image.Pt(d.cfg.MinSize, d.cfg.MinSize)
	maxSize := image.Pt(d.cfg.MaxSize, d.cfg.MaxSize)

	d.mu.Lock()
	rects := d.classifier.DetectMultiScaleWithParams(gray, d.cfg.ScaleFactor, d.cfg.MinNeighbors, 0, minSize, maxSize)
	d.mu.Unlock()

	bounds := img.Bounds()
	boxes := make([]FaceBox, 0, len(rects))
	for _, r := range rects {
		box := FaceBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}.ClipTo(bounds.Dx(), bounds.Dy())
		if box.Area() > 0 {
			boxes = append(boxes, box)
		}
	}
	sortBoxes(boxes)
	return boxes, nil
}

// Close releases the OpenCV classifier.
func (d *HaarDetector) Close() error {
	return d.classifier.Close()
}
