package facematch

import (
	"image"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// IdentitySimilarity returns the best similarity between sig and any of the
// identity's enrollment signatures.
func IdentitySimilarity(sig vision.Signature, enrolled []vision.Signature) float64 {
	best := 0.0
	for _, e := range enrolled {
		if s := vision.Similarity(sig, e); s > best {
			best = s
		}
	}
	return best
}

// Match assigns each face to at most one identity. Faces are processed in
// order; for each face every identity not yet assigned in this batch is
// scored by its best enrollment signature, and the single best identity is
// taken when its similarity strictly exceeds threshold. Ties go to the
// identity that comes first in roster order. The assigned set lives only for
// this call.
func Match(faces []DetectedFace, roster []database.Identity, threshold float64) []MatchResult {
	results := make([]MatchResult, 0, len(faces))
	assigned := make(map[string]struct{}, len(roster))

	for _, face := range faces {
		res := MatchResult{Face: face}

		best, bestSim := bestIdentity(face.Signature, roster, assigned)
		res.Similarity = bestSim

		switch {
		case len(roster) == 0:
			res.Outcome = OutcomeNoFaceDetected
		case best != nil && bestSim > threshold:
			res.Outcome = OutcomeMatched
			res.Identity = best
			assigned[best.ID] = struct{}{}
		default:
			res.Outcome = OutcomeBelowThreshold
		}
		results = append(results, res)
	}
	return results
}

func bestIdentity(sig vision.Signature, roster []database.Identity, assigned map[string]struct{}) (*database.Identity, float64) {
	var best *database.Identity
	bestSim := 0.0
	for i := range roster {
		identity := &roster[i]
		if _, taken := assigned[identity.ID]; taken {
			continue
		}
		sim := IdentitySimilarity(sig, identity.Signatures)
		if best == nil || sim > bestSim {
			best, bestSim = identity, sim
		}
	}
	return best, bestSim
}

// SignatureExtractor is satisfied by *vision.Extractor.
type SignatureExtractor interface {
	Extract(img image.Image, box *vision.FaceBox) (vision.Signature, bool)
}

// FacesForImage extracts a signature for every box, in box order, using up
// to workers goroutines. With no boxes it synthesizes a single pseudo-box
// over the whole image so a whole-image match is still attempted.
func FacesForImage(img image.Image, boxes []vision.FaceBox, extractor SignatureExtractor, workers int) []DetectedFace {
	wholeImage := len(boxes) == 0
	if wholeImage {
		boxes = []vision.FaceBox{vision.WholeImageBox(img)}
	}
	workers = max(1, workers)

	faces := make([]DetectedFace, len(boxes))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := range boxes {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			box := boxes[i]
			sig, degraded := extractor.Extract(img, &box)
			faces[i] = DetectedFace{
				Box:        box,
				Signature:  sig,
				WholeImage: wholeImage,
				Degraded:   degraded,
			}
		}(i)
	}
	wg.Wait()
	return faces
}
