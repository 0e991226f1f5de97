package attendance

import (
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// FaceInfo is a detected face box with its display confidence.
type FaceInfo struct {
	Box        vision.FaceBox
	Confidence float64
}

// DetectionResult lists the faces found in one image.
type DetectionResult struct {
	Width  int
	Height int
	Faces  []FaceInfo
}

// ImageUpload is one encoded image submitted for enrollment.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// RegisterRequest enrolls a student.
type RegisterRequest struct {
	Name       string
	RollNumber string
	Year       string
	Session    string
	Images     []ImageUpload
}

// SkippedImage records why an enrollment image was not used.
type SkippedImage struct {
	Index    int
	Filename string
	Reason   string
}

// RegisterResult describes a completed enrollment.
type RegisterResult struct {
	StudentID     string
	Signatures    int
	SkippedImages []SkippedImage
	ImageURLs     []string
	// SimilarTo lists already enrolled students whose signatures are closer
	// than the match threshold to the new enrollment.
	SimilarTo []database.Neighbor
}

// StudentMatch is a recognized face paired with a student.
type StudentMatch struct {
	StudentID  string
	Name       string
	RollNumber string
	Year       string
	Session    string
	Similarity float64
	Status     facematch.Status
	Box        vision.FaceBox
	WholeImage bool
}

// UnrecordedStudent is a recognized student whose attendance write failed.
type UnrecordedStudent struct {
	StudentMatch
	Error string
}

// RecognitionResult is the outcome of recognizing one session image.
type RecognitionResult struct {
	Message        string
	Recognized     []StudentMatch
	AlreadyPresent []StudentMatch
	Unrecorded     []UnrecordedStudent
	DetectedFaces  []FaceInfo
	// Unmatched counts faces that were not paired with anyone.
	Unmatched int
}

// AttendanceReport is one day of attendance.
type AttendanceReport struct {
	Date    time.Time
	Entries []database.AttendanceEntry
}

// StudentSummary is a roster entry without signatures.
type StudentSummary struct {
	ID             string
	Name           string
	RollNumber     string
	Year           string
	Session        string
	ImageURLs      []string
	SignatureCount int
	RegisteredAt   time.Time
}

// NearestFace lists the enrolled students closest to one face of a query image.
type NearestFace struct {
	Box        vision.FaceBox
	WholeImage bool
	Neighbors  []database.Neighbor
}

// Stats combines runtime metrics with roster index sizes.
type Stats struct {
	Metrics           metrics.Snapshot
	IndexedStudents   int
	IndexedSignatures int
}
