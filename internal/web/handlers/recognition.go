package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

// RecognitionHandler serves face detection and recognition endpoints.
type RecognitionHandler struct {
	service *attendance.Service
	logger  *slog.Logger
}

// NewRecognitionHandler creates a new recognition handler.
func NewRecognitionHandler(svc *attendance.Service, logger *slog.Logger) *RecognitionHandler {
	return &RecognitionHandler{service: svc, logger: logger}
}

// DetectFacesResponse is the response of POST /detect-faces.
type DetectFacesResponse struct {
	Success       bool               `json:"success"`
	DetectedFaces []detectedFaceJSON `json:"detected_faces"`
	TotalFaces    int                `json:"total_faces"`
}

// studentMatchJSON is a recognized student in a recognition response.
type studentMatchJSON struct {
	StudentID       string      `json:"student_id"`
	Name            string      `json:"name"`
	RollNumber      string      `json:"roll_number"`
	Year            string      `json:"year"`
	Session         string      `json:"session"`
	SimilarityScore float64     `json:"similarity_score"`
	Status          string      `json:"status"`
	FaceBox         faceBoxJSON `json:"face_box"`
	WholeImage      bool        `json:"whole_image,omitempty"`
}

type unrecordedStudentJSON struct {
	studentMatchJSON
	Error string `json:"error"`
}

// RecognizeResponse is the response of POST /recognize.
type RecognizeResponse struct {
	Success                bool                    `json:"success"`
	Message                string                  `json:"message"`
	RecognizedStudents     []studentMatchJSON      `json:"recognized_students"`
	AlreadyPresentStudents []studentMatchJSON      `json:"already_present_students"`
	UnrecordedStudents     []unrecordedStudentJSON `json:"unrecorded_students"`
	DetectedFaces          []detectedFaceJSON      `json:"detected_faces"`
	TotalFound             int                     `json:"total_found"`
	TotalAlreadyPresent    int                     `json:"total_already_present"`
	UnmatchedFaces         int                     `json:"unmatched_faces"`
}

// neighborJSON is an enrolled student close to a queried face.
type neighborJSON struct {
	StudentID  string  `json:"student_id"`
	Name       string  `json:"name"`
	RollNumber string  `json:"roll_number"`
	Signature  int     `json:"signature_index"`
	Similarity float64 `json:"similarity"`
}

type nearestFaceJSON struct {
	FaceBox    faceBoxJSON    `json:"face_box"`
	WholeImage bool           `json:"whole_image"`
	Neighbors  []neighborJSON `json:"neighbors"`
}

// NearestResponse is the response of POST /debug/nearest.
type NearestResponse struct {
	Success bool              `json:"success"`
	Faces   []nearestFaceJSON `json:"faces"`
}

func toStudentMatches(in []attendance.StudentMatch) []studentMatchJSON {
	out := make([]studentMatchJSON, len(in))
	for i, m := range in {
		out[i] = toStudentMatch(m)
	}
	return out
}

func toStudentMatch(m attendance.StudentMatch) studentMatchJSON {
	return studentMatchJSON{
		StudentID:       m.StudentID,
		Name:            m.Name,
		RollNumber:      m.RollNumber,
		Year:            m.Year,
		Session:         m.Session,
		SimilarityScore: m.Similarity,
		Status:          string(m.Status),
		FaceBox:         toFaceBoxJSON(m.Box),
		WholeImage:      m.WholeImage,
	}
}

// DetectFaces handles POST /detect-faces.
func (h *RecognitionHandler) DetectFaces(w http.ResponseWriter, r *http.Request) {
	data := readSingleImage(w, r)
	if data == nil {
		return
	}

	result, err := h.service.DetectFaces(r.Context(), data)
	if err != nil {
		respondServiceError(w, h.logger, r, "Face detection failed", err)
		return
	}

	faces := toDetectedFaces(result.Faces)
	respondJSON(w, http.StatusOK, DetectFacesResponse{
		Success:       true,
		DetectedFaces: faces,
		TotalFaces:    len(faces),
	})
}

// Recognize handles POST /recognize.
func (h *RecognitionHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	data := readSingleImage(w, r)
	if data == nil {
		return
	}

	result, err := h.service.Recognize(r.Context(), data)
	if err != nil {
		respondServiceError(w, h.logger, r, "Recognition failed", err)
		return
	}

	unrecorded := make([]unrecordedStudentJSON, len(result.Unrecorded))
	for i, u := range result.Unrecorded {
		unrecorded[i] = unrecordedStudentJSON{studentMatchJSON: toStudentMatch(u.StudentMatch), Error: u.Error}
	}

	respondJSON(w, http.StatusOK, RecognizeResponse{
		Success:                true,
		Message:                result.Message,
		RecognizedStudents:     toStudentMatches(result.Recognized),
		AlreadyPresentStudents: toStudentMatches(result.AlreadyPresent),
		UnrecordedStudents:     unrecorded,
		DetectedFaces:          toDetectedFaces(result.DetectedFaces),
		TotalFound:             len(result.Recognized),
		TotalAlreadyPresent:    len(result.AlreadyPresent),
		UnmatchedFaces:         result.Unmatched,
	})
}

// Nearest handles POST /debug/nearest?k=N.
func (h *RecognitionHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	k := constants.DefaultNearestLimit
	if v := r.URL.Query().Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			respondError(w, http.StatusBadRequest, "k must be an integer between 1 and 100")
			return
		}
		k = n
	}

	data := readSingleImage(w, r)
	if data == nil {
		return
	}

	faces, err := h.service.Nearest(r.Context(), data, k)
	if err != nil {
		respondServiceError(w, h.logger, r, "Nearest lookup failed", err)
		return
	}

	out := make([]nearestFaceJSON, len(faces))
	for i, f := range faces {
		neighbors := make([]neighborJSON, len(f.Neighbors))
		for j, n := range f.Neighbors {
			neighbors[j] = neighborJSON{
				StudentID:  n.StudentID,
				Name:       n.Name,
				RollNumber: n.RollNumber,
				Signature:  n.Position,
				Similarity: n.Similarity,
			}
		}
		out[i] = nearestFaceJSON{FaceBox: toFaceBoxJSON(f.Box), WholeImage: f.WholeImage, Neighbors: neighbors}
	}
	respondJSON(w, http.StatusOK, NearestResponse{Success: true, Faces: out})
}
