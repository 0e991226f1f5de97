package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceHandler serves attendance listings.
type AttendanceHandler struct {
	service *attendance.Service
	logger  *slog.Logger
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(svc *attendance.Service, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{service: svc, logger: logger}
}

// AttendanceRecordResponse is one attendance entry.
type AttendanceRecordResponse struct {
	StudentID       string    `json:"student_id"`
	StudentName     string    `json:"student_name"`
	RollNumber      string    `json:"roll_number"`
	Year            string    `json:"year"`
	Session         string    `json:"session"`
	Time            time.Time `json:"time"`
	SimilarityScore float64   `json:"similarity_score"`
}

// AttendanceResponse is the response of GET /attendance.
type AttendanceResponse struct {
	Success           bool                       `json:"success"`
	Date              string                     `json:"date"`
	AttendanceRecords []AttendanceRecordResponse `json:"attendance_records"`
	TotalPresent      int                        `json:"total_present"`
}

// Today handles GET /attendance.
func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.TodayAttendance(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, r, "Failed to fetch attendance", err)
		return
	}

	records := make([]AttendanceRecordResponse, len(report.Entries))
	for i, e := range report.Entries {
		records[i] = AttendanceRecordResponse{
			StudentID:       e.StudentID,
			StudentName:     e.StudentName,
			RollNumber:      e.RollNumber,
			Year:            e.Year,
			Session:         e.Session,
			Time:            e.Time,
			SimilarityScore: e.SimilarityScore,
		}
	}
	respondJSON(w, http.StatusOK, AttendanceResponse{
		Success:           true,
		Date:              database.DayKey(report.Date),
		AttendanceRecords: records,
		TotalPresent:      len(records),
	})
}

// Debug handles GET /debug/attendance: today's raw records.
func (h *AttendanceHandler) Debug(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.TodayAttendance(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, r, "Failed to fetch attendance", err)
		return
	}

	type record struct {
		StudentID       string    `json:"student_id"`
		Date            string    `json:"date"`
		Time            time.Time `json:"time"`
		SimilarityScore float64   `json:"similarity_score"`
	}
	out := make([]record, len(report.Entries))
	for i, e := range report.Entries {
		out[i] = record{StudentID: e.StudentID, Date: database.DayKey(e.Date), Time: e.Time, SimilarityScore: e.SimilarityScore}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"today_records": out,
		"total_today":   len(out),
	})
}
