package vision

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"golang.org/x/image/draw"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/metrics"
)

// Signature is a face descriptor: a 64x64 grayscale patch flattened row-major
// and scaled to [0, 1]. Signatures are only comparable when computed with the
// same extraction parameters.
type Signature []float32

// ErrEmptyRegion is returned when the requested crop has no pixels inside the image.
var ErrEmptyRegion = errors.New("face region is empty")

// ZeroSignature returns the all-zero fallback signature.
func ZeroSignature() Signature {
	return make(Signature, constants.SignatureDim)
}

// IsZero reports whether every component is zero.
func (s Signature) IsZero() bool {
	for _, v := range s {
		if v != 0 {
			return false
		}
	}
	return true
}

// ExtractSignature computes the signature of the region of img covered by
// box, or of the whole image when box is nil. The box is clipped to the image.
func ExtractSignature(img image.Image, box *FaceBox) (sig Signature, err error) {
	defer func() {
		// Some decoders hand back partially valid images that panic on access.
		if r := recover(); r != nil {
			sig, err = nil, fmt.Errorf("extract signature: %v", r)
		}
	}()

	bounds := img.Bounds()
	region := bounds
	if box != nil {
		clipped := box.ClipTo(bounds.Dx(), bounds.Dy())
		region = clipped.Rect().Add(bounds.Min)
	}
	if region.Empty() {
		return nil, ErrEmptyRegion
	}

	gray := toGrayscale(img, region)

	dst := image.NewGray(image.Rect(0, 0, constants.SignatureSide, constants.SignatureSide))
	draw.BiLinear.Scale(dst, dst.Bounds(), gray, gray.Bounds(), draw.Src, nil)

	sig = make(Signature, constants.SignatureDim)
	for y := range constants.SignatureSide {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+constants.SignatureSide]
		for x, p := range row {
			sig[y*constants.SignatureSide+x] = float32(p) / 255
		}
	}
	return sig, nil
}

// toGrayscale crops region out of img into a single-channel image.
func toGrayscale(img image.Image, region image.Rectangle) *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, region.Dx(), region.Dy()))
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma formula.
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			gray.Pix[(y-region.Min.Y)*gray.Stride+(x-region.Min.X)] = uint8(min(255, math.Round(luma)))
		}
	}
	return gray
}

// Extractor wraps ExtractSignature with the zero-vector fallback. Degraded
// extractions are logged and counted so they stay distinguishable from
// genuine low-similarity faces.
type Extractor struct {
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewExtractor creates an Extractor. A nil logger discards log output.
func NewExtractor(logger *slog.Logger, m *metrics.Collector) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{logger: logger, metrics: m}
}

// Extract always returns a signature of full length. degraded is true when
// extraction failed and the zero vector was substituted.
func (e *Extractor) Extract(img image.Image, box *FaceBox) (sig Signature, degraded bool) {
	defer e.metrics.Since(metrics.OpExtract, time.Now())

	sig, err := ExtractSignature(img, box)
	if err != nil {
		e.logger.Warn("signature extraction degraded to zero vector", "error", err, "box", box)
		e.metrics.Inc(metrics.CounterSignatureDegraded)
		return ZeroSignature(), true
	}
	return sig, false
}
