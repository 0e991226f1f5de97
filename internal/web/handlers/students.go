package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

// StudentsHandler serves enrollment and roster endpoints.
type StudentsHandler struct {
	service *attendance.Service
	logger  *slog.Logger
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(svc *attendance.Service, logger *slog.Logger) *StudentsHandler {
	return &StudentsHandler{service: svc, logger: logger}
}

type skippedImageJSON struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

type similarStudentJSON struct {
	StudentID  string  `json:"student_id"`
	Name       string  `json:"name"`
	RollNumber string  `json:"roll_number"`
	Similarity float64 `json:"similarity"`
}

// RegisterResponse is the response of POST /register.
type RegisterResponse struct {
	Success       bool                 `json:"success"`
	Message       string               `json:"message"`
	StudentID     string               `json:"student_id"`
	Signatures    int                  `json:"signatures"`
	SkippedImages []skippedImageJSON   `json:"skipped_images"`
	ImageURLs     []string             `json:"image_urls"`
	SimilarTo     []similarStudentJSON `json:"similar_to"`
}

// StudentResponse is a roster entry.
type StudentResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	RollNumber     string    `json:"roll_number"`
	Year           string    `json:"year"`
	Session        string    `json:"session"`
	ImageURLs      []string  `json:"image_urls"`
	SignatureCount int       `json:"signature_count"`
	RegisteredAt   time.Time `json:"registration_date"`
}

// StudentsResponse is the response of GET /students.
type StudentsResponse struct {
	Success       bool              `json:"success"`
	Students      []StudentResponse `json:"students"`
	TotalStudents int               `json:"total_students"`
}

// Register handles POST /register (multipart: name, roll_number, year,
// session, images[]).
func (h *StudentsHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidMultipart)
		return
	}

	req := attendance.RegisterRequest{
		Name:       r.FormValue("name"),
		RollNumber: r.FormValue("roll_number"),
		Year:       r.FormValue("year"),
		Session:    r.FormValue("session"),
	}
	for _, fh := range r.MultipartForm.File[constants.FormFieldImages] {
		data, err := readFormFile(fh)
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read uploaded image")
			return
		}
		req.Images = append(req.Images, attendance.ImageUpload{Filename: fh.Filename, Data: data})
	}

	h.logger.Info("registration request",
		"roll_number", sanitizeForLog(req.RollNumber),
		"images", len(req.Images),
	)

	result, err := h.service.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, r, "Registration failed", err)
		return
	}

	skipped := make([]skippedImageJSON, len(result.SkippedImages))
	for i, s := range result.SkippedImages {
		skipped[i] = skippedImageJSON{Index: s.Index, Filename: s.Filename, Reason: s.Reason}
	}
	similar := make([]similarStudentJSON, len(result.SimilarTo))
	for i, n := range result.SimilarTo {
		similar[i] = similarStudentJSON{StudentID: n.StudentID, Name: n.Name, RollNumber: n.RollNumber, Similarity: n.Similarity}
	}

	respondJSON(w, http.StatusOK, RegisterResponse{
		Success:       true,
		Message:       "Student registered successfully",
		StudentID:     result.StudentID,
		Signatures:    result.Signatures,
		SkippedImages: skipped,
		ImageURLs:     result.ImageURLs,
		SimilarTo:     similar,
	})
}

// List handles GET /students?q=.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	students, err := h.service.Students(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondServiceError(w, h.logger, r, "Failed to fetch students", err)
		return
	}

	out := make([]StudentResponse, len(students))
	for i, s := range students {
		urls := s.ImageURLs
		if urls == nil {
			urls = []string{}
		}
		out[i] = StudentResponse{
			ID:             s.ID,
			Name:           s.Name,
			RollNumber:     s.RollNumber,
			Year:           s.Year,
			Session:        s.Session,
			ImageURLs:      urls,
			SignatureCount: s.SignatureCount,
			RegisteredAt:   s.RegisteredAt,
		}
	}
	respondJSON(w, http.StatusOK, StudentsResponse{Success: true, Students: out, TotalStudents: len(out)})
}

// Debug handles GET /debug/students: names and roll numbers only.
func (h *StudentsHandler) Debug(w http.ResponseWriter, r *http.Request) {
	students, err := h.service.Students(r.Context(), "")
	if err != nil {
		respondServiceError(w, h.logger, r, "Failed to fetch students", err)
		return
	}

	type entry struct {
		Name       string `json:"name"`
		RollNumber string `json:"roll_number"`
		Signatures int    `json:"signatures"`
	}
	out := make([]entry, len(students))
	for i, s := range students {
		out[i] = entry{Name: s.Name, RollNumber: s.RollNumber, Signatures: s.SignatureCount}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"total_students": len(out),
		"students":       out,
	})
}
