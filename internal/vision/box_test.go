package vision

import (
	"math"
	"testing"
)

func TestFaceBoxConfidence(t *testing.T) {
	tests := []struct {
		name     string
		box      FaceBox
		w, h     int
		expected float64
	}{
		{"tiny box clamps to 60", FaceBox{0, 0, 10, 10}, 1000, 1000, 60.0},
		{"large box clamps to 95", FaceBox{0, 0, 500, 500}, 1000, 1000, 95.0},
		{"ratio 0.075 gives 75", FaceBox{0, 0, 75, 100}, 100, 1000, 75.0},
		{"ratio 0.0823 rounds to one decimal", FaceBox{0, 0, 823, 100}, 1000, 1000, 82.3},
		{"zero image area", FaceBox{0, 0, 10, 10}, 0, 0, 60.0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.box.Confidence(tc.w, tc.h)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("Confidence() = %v, want %v", got, tc.expected)
			}
			if got < 60 || got > 95 {
				t.Errorf("Confidence() = %v outside [60, 95]", got)
			}
		})
	}
}

func TestFaceBoxIoU(t *testing.T) {
	tests := []struct {
		name     string
		a, b     FaceBox
		expected float64
	}{
		{"identical", FaceBox{0, 0, 10, 10}, FaceBox{0, 0, 10, 10}, 1.0},
		{"disjoint", FaceBox{0, 0, 10, 10}, FaceBox{20, 20, 10, 10}, 0},
		{"touching edges", FaceBox{0, 0, 10, 10}, FaceBox{10, 0, 10, 10}, 0},
		{"half overlap", FaceBox{0, 0, 10, 10}, FaceBox{5, 0, 10, 10}, 50.0 / 150.0},
		{"contained", FaceBox{0, 0, 10, 10}, FaceBox{0, 0, 5, 5}, 0.25},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.a.IoU(tc.b)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("IoU() = %v, want %v", got, tc.expected)
			}
			if rev := tc.b.IoU(tc.a); math.Abs(rev-got) > 1e-12 {
				t.Errorf("IoU not symmetric: %v vs %v", got, rev)
			}
		})
	}
}

func TestFaceBoxClipTo(t *testing.T) {
	tests := []struct {
		name     string
		box      FaceBox
		expected FaceBox
	}{
		{"inside", FaceBox{10, 10, 20, 20}, FaceBox{10, 10, 20, 20}},
		{"overhangs right and bottom", FaceBox{90, 40, 20, 20}, FaceBox{90, 40, 10, 10}},
		{"negative origin", FaceBox{-5, -5, 20, 20}, FaceBox{0, 0, 15, 15}},
		{"outside", FaceBox{200, 200, 10, 10}, FaceBox{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.box.ClipTo(100, 50)
			if got.Area() != tc.expected.Area() || (got.Area() > 0 && got != tc.expected) {
				t.Errorf("ClipTo() = %+v, want %+v", got, tc.expected)
			}
		})
	}
}

func TestWholeImageBox(t *testing.T) {
	box := WholeImageBox(createTestImage(64, 48))
	if box != (FaceBox{0, 0, 64, 48}) {
		t.Errorf("unexpected whole image box %+v", box)
	}
}
