package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

const (
	errInvalidMultipart = "failed to parse multipart form"
	errImageRequired    = "image file is required"
)

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps service errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case attendance.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrDuplicateIdentity):
		return http.StatusConflict
	case errors.Is(err, attendance.ErrStoreUnavailable), errors.Is(err, database.ErrBackendNotInitialized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes err with its mapped status. Server-side failures
// are logged and reported with the generic prefix only.
func respondServiceError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, prefix string, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logger.Error(prefix, "path", r.URL.Path, "error", err)
		respondError(w, status, fmt.Sprintf("%s: %s", prefix, http.StatusText(status)))
		return
	}
	respondError(w, status, clientMessage(err))
}

// clientMessage is the user-facing text for a request error. Wrapped
// sentinels are reported without their detail suffix.
func clientMessage(err error) string {
	if errors.Is(err, vision.ErrInvalidImage) {
		return "Invalid image data"
	}
	for _, sentinel := range []error{
		attendance.ErrTooFewImages,
		attendance.ErrTooManyImages,
		attendance.ErrNoUsableSignature,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// readFormFile reads one uploaded file from a parsed multipart form.
func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return data, nil
}

// readSingleImage parses the multipart body and returns the bytes of the
// "image" field. On failure it writes the error response and returns nil.
func readSingleImage(w http.ResponseWriter, r *http.Request) []byte {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidMultipart)
		return nil
	}
	files := r.MultipartForm.File[constants.FormFieldImage]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, errImageRequired)
		return nil
	}
	data, err := readFormFile(files[0])
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read uploaded image")
		return nil
	}
	return data
}

// faceBoxJSON is a face rectangle in pixels.
type faceBoxJSON struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func toFaceBoxJSON(b vision.FaceBox) faceBoxJSON {
	return faceBoxJSON{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

// detectedFaceJSON is a detected face with its display confidence.
type detectedFaceJSON struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}

func toDetectedFaces(faces []attendance.FaceInfo) []detectedFaceJSON {
	out := make([]detectedFaceJSON, len(faces))
	for i, f := range faces {
		out[i] = detectedFaceJSON{
			X:          f.Box.X,
			Y:          f.Box.Y,
			Width:      f.Box.Width,
			Height:     f.Box.Height,
			Confidence: f.Confidence,
		}
	}
	return out
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Root returns the service banner.
func Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Face Recognition Attendance System API",
		"status":  "running",
	})
}

// Ping is a liveness probe used by the frontend.
func Ping(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message":   "Backend is working",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
