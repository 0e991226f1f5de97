package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// Recognize identifies every recognizable face in a session image and marks
// each identified student present at most once per day.
func (s *Service) Recognize(ctx context.Context, data []byte) (*RecognitionResult, error) {
	defer s.metrics.Since(metrics.OpRecognize, time.Now())

	img, err := vision.DecodeImage(data)
	if err != nil {
		return nil, err
	}
	boxes, err := s.detect(img)
	if err != nil {
		return nil, err
	}

	result := &RecognitionResult{
		Recognized:     []StudentMatch{},
		AlreadyPresent: []StudentMatch{},
		Unrecorded:     []UnrecordedStudent{},
		DetectedFaces:  faceInfos(img, boxes),
	}

	roster, err := s.rosterView.ListIdentities(ctx)
	if err != nil {
		s.logger.Warn("roster unavailable, recognizing against an empty roster", "error", err)
		s.metrics.Inc(metrics.CounterRosterUnavailable)
		roster = nil
	}
	if len(roster) == 0 {
		result.Message = constants.MsgEmptyRoster
		return result, nil
	}

	faces := facematch.FacesForImage(img, boxes, s.extractor, s.workers)
	if len(boxes) == 0 {
		s.metrics.Inc(metrics.CounterWholeImageFallback)
		s.logger.Debug("no faces detected, matching the whole image")
	}

	start := time.Now()
	matches := facematch.Match(faces, roster, constants.MatchThreshold)
	s.metrics.Since(metrics.OpMatch, start)

	now := s.today()
	for _, m := range matches {
		if !m.Matched() {
			result.Unmatched++
			s.logger.Debug("face not matched",
				"outcome", m.Outcome,
				"best_similarity", m.Similarity,
				"box", m.Face.Box,
			)
			continue
		}
		s.applyMatch(ctx, result, m, now)
	}

	result.Message = fmt.Sprintf("Recognized %d students, %d already present",
		len(result.Recognized), len(result.AlreadyPresent))
	s.logger.Info("recognition complete",
		"faces", len(faces),
		"recognized", len(result.Recognized),
		"already_present", len(result.AlreadyPresent),
		"unrecorded", len(result.Unrecorded),
	)
	return result, nil
}

// applyMatch decides and persists attendance for one matched face. A failed
// write only affects this face.
func (s *Service) applyMatch(ctx context.Context, result *RecognitionResult, m facematch.MatchResult, now time.Time) {
	sm := studentMatch(m)

	decision, err := facematch.Decide(ctx, s.records, m, now)
	if err != nil {
		s.logger.Error("attendance decision failed", "roll_number", sm.RollNumber, "error", err)
		result.Unrecorded = append(result.Unrecorded, UnrecordedStudent{StudentMatch: sm, Error: err.Error()})
		return
	}
	if decision.LookupErr != nil {
		s.logger.Warn("attendance lookup failed, relying on conditional insert",
			"roll_number", sm.RollNumber, "error", decision.LookupErr)
	}

	if decision.Status == facematch.StatusAlreadyPresent {
		sm.Status = facematch.StatusAlreadyPresent
		result.AlreadyPresent = append(result.AlreadyPresent, sm)
		s.metrics.Inc(metrics.CounterAttendanceDuplicate)
		return
	}

	inserted, err := s.records.RecordAttendance(ctx, *decision.Record)
	switch {
	case err != nil:
		s.logger.Error("failed to record attendance", "roll_number", sm.RollNumber, "error", err)
		s.metrics.Inc(metrics.CounterAttendanceWriteFailed)
		sm.Status = facematch.StatusPresent
		result.Unrecorded = append(result.Unrecorded, UnrecordedStudent{StudentMatch: sm, Error: err.Error()})
	case !inserted:
		// a concurrent request recorded the student first
		sm.Status = facematch.StatusAlreadyPresent
		result.AlreadyPresent = append(result.AlreadyPresent, sm)
		s.metrics.Inc(metrics.CounterAttendanceDuplicate)
	default:
		sm.Status = facematch.StatusPresent
		result.Recognized = append(result.Recognized, sm)
		s.metrics.Inc(metrics.CounterAttendanceRecorded)
		s.logger.Info("attendance recorded",
			"roll_number", sm.RollNumber,
			"similarity", sm.Similarity,
			"date", database.DayKey(decision.Record.Date),
		)
	}
}

func studentMatch(m facematch.MatchResult) StudentMatch {
	return StudentMatch{
		StudentID:  m.Identity.ID,
		Name:       m.Identity.Name,
		RollNumber: m.Identity.RollNumber,
		Year:       m.Identity.Year,
		Session:    m.Identity.Session,
		Similarity: m.Similarity,
		Box:        m.Face.Box,
		WholeImage: m.Face.WholeImage,
	}
}
