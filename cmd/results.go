package cmd

import (
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// MatchOutput is a recognized student in --json output
type MatchOutput struct {
	StudentID  string  `json:"student_id"`
	Name       string  `json:"name"`
	RollNumber string  `json:"roll_number"`
	Status     string  `json:"status"`
	Similarity float64 `json:"similarity"`
	Box        [4]int  `json:"box"` // x, y, width, height
	WholeImage bool    `json:"whole_image,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// RecognizeOutput is the --json output of the recognize command
type RecognizeOutput struct {
	Message        string        `json:"message"`
	Recognized     []MatchOutput `json:"recognized"`
	AlreadyPresent []MatchOutput `json:"already_present"`
	Unrecorded     []MatchOutput `json:"unrecorded"`
	DetectedFaces  int           `json:"detected_faces"`
	Unmatched      int           `json:"unmatched"`
}

// RegisterOutput is the --json output of the register command
type RegisterOutput struct {
	StudentID  string          `json:"student_id"`
	RollNumber string          `json:"roll_number"`
	Signatures int             `json:"signatures"`
	Skipped    []SkippedOutput `json:"skipped"`
	ImageURLs  []string        `json:"image_urls"`
	SimilarTo  []SimilarOutput `json:"similar_to"`
	Error      string          `json:"error,omitempty"`
}

type SkippedOutput struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

type SimilarOutput struct {
	StudentID  string  `json:"student_id"`
	RollNumber string  `json:"roll_number"`
	Similarity float64 `json:"similarity"`
}

// AttendanceOutput is one attendance row in --json output
type AttendanceOutput struct {
	StudentID  string    `json:"student_id"`
	Name       string    `json:"name"`
	RollNumber string    `json:"roll_number"`
	Time       time.Time `json:"time"`
	Similarity float64   `json:"similarity"`
}

// StudentOutput is one roster row in --json output
type StudentOutput struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	RollNumber   string    `json:"roll_number"`
	Year         string    `json:"year"`
	Session      string    `json:"session"`
	Signatures   int       `json:"signatures"`
	ImageURLs    []string  `json:"image_urls"`
	RegisteredAt time.Time `json:"registered_at"`
}

func toMatchOutput(m attendance.StudentMatch) MatchOutput {
	return MatchOutput{
		StudentID:  m.StudentID,
		Name:       m.Name,
		RollNumber: m.RollNumber,
		Status:     string(m.Status),
		Similarity: m.Similarity,
		Box:        [4]int{m.Box.X, m.Box.Y, m.Box.Width, m.Box.Height},
		WholeImage: m.WholeImage,
	}
}

func toRecognizeOutput(r *attendance.RecognitionResult) RecognizeOutput {
	out := RecognizeOutput{
		Message:        r.Message,
		Recognized:     make([]MatchOutput, 0, len(r.Recognized)),
		AlreadyPresent: make([]MatchOutput, 0, len(r.AlreadyPresent)),
		Unrecorded:     make([]MatchOutput, 0, len(r.Unrecorded)),
		DetectedFaces:  len(r.DetectedFaces),
		Unmatched:      r.Unmatched,
	}
	for _, m := range r.Recognized {
		out.Recognized = append(out.Recognized, toMatchOutput(m))
	}
	for _, m := range r.AlreadyPresent {
		out.AlreadyPresent = append(out.AlreadyPresent, toMatchOutput(m))
	}
	for _, u := range r.Unrecorded {
		m := toMatchOutput(u.StudentMatch)
		m.Error = u.Error
		out.Unrecorded = append(out.Unrecorded, m)
	}
	return out
}

func toRegisterOutput(rollNumber string, r *attendance.RegisterResult) RegisterOutput {
	out := RegisterOutput{
		StudentID:  r.StudentID,
		RollNumber: rollNumber,
		Signatures: r.Signatures,
		Skipped:    make([]SkippedOutput, 0, len(r.SkippedImages)),
		ImageURLs:  r.ImageURLs,
		SimilarTo:  make([]SimilarOutput, 0, len(r.SimilarTo)),
	}
	for _, s := range r.SkippedImages {
		out.Skipped = append(out.Skipped, SkippedOutput{Filename: s.Filename, Reason: s.Reason})
	}
	for _, n := range r.SimilarTo {
		out.SimilarTo = append(out.SimilarTo, SimilarOutput{StudentID: n.StudentID, RollNumber: n.RollNumber, Similarity: n.Similarity})
	}
	return out
}

func toAttendanceOutput(entries []database.AttendanceEntry) []AttendanceOutput {
	out := make([]AttendanceOutput, len(entries))
	for i, e := range entries {
		out[i] = AttendanceOutput{
			StudentID:  e.StudentID,
			Name:       e.StudentName,
			RollNumber: e.RollNumber,
			Time:       e.Time,
			Similarity: e.SimilarityScore,
		}
	}
	return out
}

func toStudentOutput(students []attendance.StudentSummary) []StudentOutput {
	out := make([]StudentOutput, len(students))
	for i, s := range students {
		out[i] = StudentOutput{
			ID:           s.ID,
			Name:         s.Name,
			RollNumber:   s.RollNumber,
			Year:         s.Year,
			Session:      s.Session,
			Signatures:   s.SignatureCount,
			ImageURLs:    s.ImageURLs,
			RegisteredAt: s.RegisteredAt,
		}
	}
	return out
}
