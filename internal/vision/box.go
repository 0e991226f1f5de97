package vision

import (
	"image"
	"math"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// FaceBox is a face rectangle in pixel coordinates relative to the image's
// top-left corner.
type FaceBox struct {
	X      int
	Y      int
	Width  int
	Height int
}

// WholeImageBox returns a box covering the full image.
func WholeImageBox(img image.Image) FaceBox {
	b := img.Bounds()
	return FaceBox{X: 0, Y: 0, Width: b.Dx(), Height: b.Dy()}
}

// Rect returns the box as an image.Rectangle.
func (b FaceBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Area returns the box area in pixels.
func (b FaceBox) Area() int {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// Confidence returns the display confidence in [60, 95]: the box/image area
// ratio scaled by ten, clamped to [0.6, 0.95], as a percentage rounded to
// one decimal. It is a heuristic, not a calibrated probability.
func (b FaceBox) Confidence(imgWidth, imgHeight int) float64 {
	imageArea := imgWidth * imgHeight
	ratio := 0.0
	if imageArea > 0 {
		ratio = float64(b.Area()) / float64(imageArea)
	}
	c := min(constants.MaxBoxConfidence, max(constants.MinBoxConfidence, ratio*constants.BoxAreaScale))
	return math.Round(c*100*10) / 10
}

// ClipTo returns the box intersected with the given bounds (in the same
// 0-based coordinate system). The result may be empty.
func (b FaceBox) ClipTo(width, height int) FaceBox {
	r := b.Rect().Intersect(image.Rect(0, 0, width, height))
	return FaceBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// IoU calculates Intersection over Union between two boxes.
func (b FaceBox) IoU(other FaceBox) float64 {
	inter := b.Rect().Intersect(other.Rect())
	if inter.Empty() {
		return 0
	}
	intersection := float64(inter.Dx() * inter.Dy())
	union := float64(b.Area()+other.Area()) - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}
