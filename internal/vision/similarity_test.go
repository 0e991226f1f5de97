package vision

import (
	"math"
	"testing"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Signature
		expected float64
	}{
		{"identical", Signature{0.2, 0.4, 0.6}, Signature{0.2, 0.4, 0.6}, 1},
		{"scaled", Signature{0.1, 0.2}, Signature{0.2, 0.4}, 1},
		{"orthogonal", Signature{1, 0}, Signature{0, 1}, 0},
		{"zero vector", Signature{0, 0, 0}, Signature{0.5, 0.5, 0.5}, 0},
		{"both zero", Signature{0, 0}, Signature{0, 0}, 0},
		{"length mismatch", Signature{1, 1}, Signature{1, 1, 1}, 0},
		{"empty", Signature{}, Signature{}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Similarity(tc.a, tc.b)
			if math.Abs(got-tc.expected) > 1e-6 {
				t.Errorf("Similarity() = %v, want %v", got, tc.expected)
			}
		})
	}
}

func TestSimilarity_SelfIsExactlyOne(t *testing.T) {
	img := createTestImage(90, 70)
	sig, err := ExtractSignature(img, &FaceBox{X: 5, Y: 5, Width: 50, Height: 50})
	if err != nil {
		t.Fatal(err)
	}
	if got := Similarity(sig, sig); got != 1.0 {
		t.Errorf("Similarity(a, a) = %v, want exactly 1", got)
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	img := createTestImage(90, 70)
	a, _ := ExtractSignature(img, &FaceBox{X: 0, Y: 0, Width: 40, Height: 40})
	b, _ := ExtractSignature(img, &FaceBox{X: 30, Y: 20, Width: 40, Height: 40})

	if Similarity(a, b) != Similarity(b, a) {
		t.Errorf("Similarity not symmetric: %v vs %v", Similarity(a, b), Similarity(b, a))
	}
	if s := Similarity(a, b); s < 0 || s > 1 {
		t.Errorf("similarity of non-negative signatures out of [0,1]: %v", s)
	}
}
