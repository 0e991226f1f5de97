// Package attendance ties face detection, matching and the attendance
// decision to the roster and attendance stores.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sort"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/storage"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// Options configures a Service. Detector, Roster and Attendance are required.
type Options struct {
	Detector   vision.Detector
	Roster     database.RosterWriter
	Attendance database.AttendanceWriter
	Images     storage.ImageStore // nil disables image persistence
	Index      *database.RosterIndex
	Metrics    *metrics.Collector
	Logger     *slog.Logger
	Location   *time.Location // timezone attendance days are counted in
	Now        func() time.Time
	Workers    int
	// DedupeImages drops enrollment images that are perceptual duplicates
	// of an earlier image in the same registration.
	DedupeImages bool

	// Read-only stores behind the listing, counting and reporting
	// operations. They default to Roster and Attendance.
	RosterReader     database.RosterReader
	AttendanceReader database.AttendanceReader
}

// Service implements the attendance operations.
type Service struct {
	detector     vision.Detector
	extractor    *vision.Extractor
	roster       database.RosterWriter
	records      database.AttendanceWriter
	rosterView   database.RosterReader
	recordsView  database.AttendanceReader
	images       storage.ImageStore
	index        *database.RosterIndex
	metrics      *metrics.Collector
	logger       *slog.Logger
	location     *time.Location
	now          func() time.Time
	workers      int
	dedupeImages bool
}

// NewService validates opts and fills defaults.
func NewService(opts Options) (*Service, error) {
	if opts.Detector == nil {
		return nil, vision.ErrDetectorNotLoaded
	}
	if opts.Roster == nil || opts.Attendance == nil {
		return nil, database.ErrBackendNotInitialized
	}

	s := &Service{
		detector:     opts.Detector,
		roster:       opts.Roster,
		records:      opts.Attendance,
		images:       opts.Images,
		index:        opts.Index,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		location:     opts.Location,
		now:          opts.Now,
		workers:      opts.Workers,
		dedupeImages: opts.DedupeImages,
		rosterView:   opts.RosterReader,
		recordsView:  opts.AttendanceReader,
	}
	if s.rosterView == nil {
		s.rosterView = s.roster
	}
	if s.recordsView == nil {
		s.recordsView = s.records
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.index == nil {
		s.index = database.NewRosterIndex()
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.workers <= 0 {
		s.workers = constants.WorkerPoolSize
	}
	s.extractor = vision.NewExtractor(s.logger, s.metrics)
	return s, nil
}

// RefreshIndex rebuilds the roster index from the store.
func (s *Service) RefreshIndex(ctx context.Context) error {
	identities, err := s.rosterView.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("%w: load roster: %w", ErrStoreUnavailable, err)
	}
	s.index.Build(identities)
	s.logger.Info("roster index built",
		"students", s.index.IdentityCount(),
		"signatures", s.index.Len(),
	)
	return nil
}

// today returns the current time in the attendance timezone.
func (s *Service) today() time.Time {
	return s.now().In(s.location)
}

func (s *Service) detect(img image.Image) ([]vision.FaceBox, error) {
	defer s.metrics.Since(metrics.OpDetect, time.Now())
	boxes, err := s.detector.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	s.metrics.Add(metrics.CounterFacesDetected, int64(len(boxes)))
	return boxes, nil
}

func faceInfos(img image.Image, boxes []vision.FaceBox) []FaceInfo {
	b := img.Bounds()
	out := make([]FaceInfo, len(boxes))
	for i, box := range boxes {
		out[i] = FaceInfo{Box: box, Confidence: box.Confidence(b.Dx(), b.Dy())}
	}
	return out
}

// DetectFaces finds faces in an encoded image.
func (s *Service) DetectFaces(ctx context.Context, data []byte) (*DetectionResult, error) {
	img, err := vision.DecodeImage(data)
	if err != nil {
		return nil, err
	}
	boxes, err := s.detect(img)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &DetectionResult{Width: b.Dx(), Height: b.Dy(), Faces: faceInfos(img, boxes)}, nil
}

// TodayAttendance returns today's attendance sorted by time.
func (s *Service) TodayAttendance(ctx context.Context) (*AttendanceReport, error) {
	day := database.DateOf(s.today())
	entries, err := s.recordsView.ListAttendanceByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("%w: list attendance: %w", ErrStoreUnavailable, err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time.Before(entries[j].Time)
	})
	return &AttendanceReport{Date: day, Entries: entries}, nil
}

// Students returns the roster, optionally filtered by a name or roll number
// query. Matching ignores case and diacritics.
func (s *Service) Students(ctx context.Context, query string) ([]StudentSummary, error) {
	identities, err := s.rosterView.ListIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list students: %w", ErrStoreUnavailable, err)
	}

	out := make([]StudentSummary, 0, len(identities))
	for _, id := range identities {
		if query != "" && !facematch.MatchesQuery(id.Name, id.RollNumber, query) {
			continue
		}
		out = append(out, StudentSummary{
			ID:             id.ID,
			Name:           id.Name,
			RollNumber:     id.RollNumber,
			Year:           id.Year,
			Session:        id.Session,
			ImageURLs:      id.ImageURLs,
			SignatureCount: len(id.Signatures),
			RegisteredAt:   id.RegisteredAt,
		})
	}
	return out, nil
}

// CountStudents returns the number of enrolled students.
func (s *Service) CountStudents(ctx context.Context) (int, error) {
	n, err := s.rosterView.CountIdentities(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: count students: %w", ErrStoreUnavailable, err)
	}
	return n, nil
}

// Nearest returns, for every face in the image, the k enrolled students
// with the closest signatures.
func (s *Service) Nearest(ctx context.Context, data []byte, k int) ([]NearestFace, error) {
	if k <= 0 {
		k = constants.DefaultNearestLimit
	}
	img, err := vision.DecodeImage(data)
	if err != nil {
		return nil, err
	}
	boxes, err := s.detect(img)
	if err != nil {
		return nil, err
	}

	faces := facematch.FacesForImage(img, boxes, s.extractor, s.workers)
	out := make([]NearestFace, len(faces))
	for i, f := range faces {
		out[i] = NearestFace{
			Box:        f.Box,
			WholeImage: f.WholeImage,
			Neighbors:  s.index.Nearest(f.Signature, k, ""),
		}
	}
	return out, nil
}

// Stats returns runtime metrics and index sizes.
func (s *Service) Stats() Stats {
	return Stats{
		Metrics:           s.metrics.Snapshot(),
		IndexedStudents:   s.index.IdentityCount(),
		IndexedSignatures: s.index.Len(),
	}
}

// IsClientError reports whether err is caused by the request rather than
// by the service or its stores.
func IsClientError(err error) bool {
	return errors.Is(err, vision.ErrInvalidImage) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrTooFewImages) ||
		errors.Is(err, ErrTooManyImages) ||
		errors.Is(err, ErrNoUsableSignature)
}
