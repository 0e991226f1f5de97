package attendance

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/storage"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// Skip reasons reported for enrollment images.
const (
	SkipInvalidImage   = "invalid image"
	SkipNoSignature    = "signature extraction failed"
	SkipDuplicateImage = "duplicate image"
)

// processedImage is the per-image outcome of enrollment processing.
type processedImage struct {
	img       image.Image
	signature vision.Signature
	skip      string
}

// Register enrolls a new student from 5 to 10 face images.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	defer s.metrics.Since(metrics.OpRegister, time.Now())

	req.Name = strings.TrimSpace(req.Name)
	req.RollNumber = strings.TrimSpace(req.RollNumber)
	switch {
	case req.Name == "":
		return nil, fmt.Errorf("%w: name", ErrMissingField)
	case req.RollNumber == "":
		return nil, fmt.Errorf("%w: roll_number", ErrMissingField)
	case len(req.Images) < constants.MinEnrollmentImages:
		return nil, fmt.Errorf("%w: got %d", ErrTooFewImages, len(req.Images))
	case len(req.Images) > constants.MaxEnrollmentImages:
		return nil, fmt.Errorf("%w: got %d", ErrTooManyImages, len(req.Images))
	}

	existing, err := s.roster.GetIdentityByRollNumber(ctx, req.RollNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: check roll number: %w", ErrStoreUnavailable, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: roll number %s", database.ErrDuplicateIdentity, req.RollNumber)
	}

	processed := s.processEnrollmentImages(req.Images)
	if s.dedupeImages {
		s.markDuplicateImages(processed)
	}

	result := &RegisterResult{SkippedImages: []SkippedImage{}, ImageURLs: []string{}}
	var signatures []vision.Signature
	var usable []int
	decodeFailures := 0
	for i, p := range processed {
		if p.skip != "" {
			if p.skip == SkipInvalidImage {
				decodeFailures++
			}
			result.SkippedImages = append(result.SkippedImages, SkippedImage{
				Index:    i,
				Filename: req.Images[i].Filename,
				Reason:   p.skip,
			})
			s.metrics.Inc(metrics.CounterRegistrationImageSkip)
			s.logger.Warn("enrollment image skipped",
				"roll_number", req.RollNumber, "index", i, "reason", p.skip)
			continue
		}
		signatures = append(signatures, p.signature)
		usable = append(usable, i)
	}

	if len(signatures) == 0 {
		if decodeFailures == len(req.Images) {
			return nil, fmt.Errorf("%w: none of the %d images could be decoded", vision.ErrInvalidImage, len(req.Images))
		}
		return nil, ErrNoUsableSignature
	}

	identity := &database.Identity{
		ID:           uuid.NewString(),
		Name:         req.Name,
		RollNumber:   req.RollNumber,
		Year:         strings.TrimSpace(req.Year),
		Session:      strings.TrimSpace(req.Session),
		Signatures:   signatures,
		RegisteredAt: s.now(),
	}

	keys, urls := s.uploadEnrollmentImages(ctx, identity.ID, req.Images, usable)
	identity.ImageURLs = urls
	result.ImageURLs = urls

	if err := s.roster.CreateIdentity(ctx, identity); err != nil {
		s.removeEnrollmentImages(ctx, keys)
		if errors.Is(err, database.ErrDuplicateIdentity) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: store student: %w", ErrStoreUnavailable, err)
	}

	result.StudentID = identity.ID
	result.Signatures = len(signatures)
	result.SimilarTo = s.similarIdentities(identity)
	s.index.Add(identity)

	s.logger.Info("student registered",
		"student_id", identity.ID,
		"roll_number", identity.RollNumber,
		"signatures", len(signatures),
		"skipped", len(result.SkippedImages),
		"similar_to", len(result.SimilarTo),
	)
	return result, nil
}

// processEnrollmentImages decodes each image, detects faces and extracts a
// signature from the first face (or the whole image). Results keep input order.
func (s *Service) processEnrollmentImages(images []ImageUpload) []processedImage {
	out := make([]processedImage, len(images))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for i := range images {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = s.processEnrollmentImage(images[i].Data)
		}(i)
	}
	wg.Wait()
	return out
}

func (s *Service) processEnrollmentImage(data []byte) processedImage {
	img, err := vision.DecodeImage(data)
	if err != nil {
		return processedImage{skip: SkipInvalidImage}
	}

	var box *vision.FaceBox
	boxes, err := s.detect(img)
	if err != nil {
		s.logger.Warn("face detection failed on enrollment image", "error", err)
	}
	if len(boxes) > 0 {
		box = &boxes[0]
	}

	sig, degraded := s.extractor.Extract(img, box)
	if degraded {
		return processedImage{img: img, skip: SkipNoSignature}
	}
	return processedImage{img: img, signature: sig}
}

// markDuplicateImages skips images that repeat an earlier image of the same
// registration. The first occurrence is kept.
func (s *Service) markDuplicateImages(processed []processedImage) {
	guard := storage.NewDuplicateGuard(0)
	for i := range processed {
		if processed[i].skip != "" {
			continue
		}
		dup, err := guard.Seen(processed[i].img)
		if err != nil {
			s.logger.Warn("perceptual hash failed", "index", i, "error", err)
			continue
		}
		if dup {
			processed[i].skip = SkipDuplicateImage
			s.metrics.Inc(metrics.CounterDuplicateEnrollmentImg)
		}
	}
}

// uploadEnrollmentImages stores the usable images under the student's ID.
// Failures are logged and the image is left out of the returned keys and
// URLs.
func (s *Service) uploadEnrollmentImages(ctx context.Context, studentID string, images []ImageUpload, usable []int) ([]string, []string) {
	keys, urls := []string{}, []string{}
	if s.images == nil {
		return keys, urls
	}
	for _, i := range usable {
		data := images[i].Data
		contentType := http.DetectContentType(data)
		key := storage.ImageKey(studentID, i, storage.ExtensionFor(contentType))
		url, err := s.images.Put(ctx, key, data, contentType)
		if err != nil {
			s.logger.Warn("failed to upload enrollment image", "key", key, "error", err)
			continue
		}
		keys = append(keys, key)
		urls = append(urls, url)
	}
	return keys, urls
}

// removeEnrollmentImages deletes images uploaded for a registration that was
// not persisted.
func (s *Service) removeEnrollmentImages(ctx context.Context, keys []string) {
	if s.images == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.images.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to remove orphaned enrollment image", "key", key, "error", err)
		}
	}
}

// similarIdentities reports enrolled students whose nearest signature to any
// of the new signatures exceeds the match threshold.
func (s *Service) similarIdentities(identity *database.Identity) []database.Neighbor {
	best := make(map[string]database.Neighbor)
	for _, sig := range identity.Signatures {
		for _, n := range s.index.Nearest(sig, constants.DefaultNearestLimit, identity.ID) {
			if n.Similarity <= constants.MatchThreshold {
				continue
			}
			if cur, ok := best[n.StudentID]; !ok || n.Similarity > cur.Similarity {
				best[n.StudentID] = n
			}
		}
	}

	out := make([]database.Neighbor, 0, len(best))
	for _, n := range best {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out
}
