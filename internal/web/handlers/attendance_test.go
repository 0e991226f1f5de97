package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

func TestAttendanceHandler_Today(t *testing.T) {
	ts := newTestService(t)
	ts.enroll(t, "s-1", "CS-1", 0)
	ts.enroll(t, "s-2", "CS-2", 1)

	today := database.DateOf(testNow)
	ts.attendance.AddRecord(database.AttendanceRecord{StudentID: "s-2", Date: today, Time: testNow.Add(-time.Hour), SimilarityScore: 0.91})
	ts.attendance.AddRecord(database.AttendanceRecord{StudentID: "s-1", Date: today, Time: testNow, SimilarityScore: 0.8})
	ts.attendance.AddRecord(database.AttendanceRecord{StudentID: "s-1", Date: today.AddDate(0, 0, -1), Time: testNow.AddDate(0, 0, -1), SimilarityScore: 0.8})

	handler := NewAttendanceHandler(ts.svc, testLogger())
	recorder := httptest.NewRecorder()
	handler.Today(recorder, httptest.NewRequest(http.MethodGet, "/attendance", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp AttendanceResponse
	parseJSONResponse(t, recorder, &resp)

	if resp.Date != "2026-04-20" {
		t.Errorf("expected date 2026-04-20, got %s", resp.Date)
	}
	if resp.TotalPresent != 2 {
		t.Fatalf("expected 2 records today, got %d", resp.TotalPresent)
	}
	if resp.AttendanceRecords[0].StudentID != "s-2" {
		t.Errorf("expected records ordered by time, got %s first", resp.AttendanceRecords[0].StudentID)
	}
	if resp.AttendanceRecords[0].StudentName != "Student CS-2" {
		t.Errorf("expected joined student name, got %q", resp.AttendanceRecords[0].StudentName)
	}
}

func TestAttendanceHandler_Today_Empty(t *testing.T) {
	ts := newTestService(t)
	handler := NewAttendanceHandler(ts.svc, testLogger())

	recorder := httptest.NewRecorder()
	handler.Today(recorder, httptest.NewRequest(http.MethodGet, "/attendance", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp AttendanceResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.AttendanceRecords == nil || resp.TotalPresent != 0 {
		t.Errorf("expected empty list, got %+v", resp)
	}
}

func TestAttendanceHandler_Today_StoreDown(t *testing.T) {
	ts := newTestService(t)
	ts.attendance.ListError = errors.New("timeout")
	handler := NewAttendanceHandler(ts.svc, testLogger())

	recorder := httptest.NewRecorder()
	handler.Today(recorder, httptest.NewRequest(http.MethodGet, "/attendance", nil))

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
}

func TestAttendanceHandler_Debug(t *testing.T) {
	ts := newTestService(t)
	ts.enroll(t, "s-1", "CS-1", 0)
	ts.attendance.AddRecord(database.AttendanceRecord{StudentID: "s-1", Date: database.DateOf(testNow), Time: testNow, SimilarityScore: 0.9})
	handler := NewAttendanceHandler(ts.svc, testLogger())

	recorder := httptest.NewRecorder()
	handler.Debug(recorder, httptest.NewRequest(http.MethodGet, "/debug/attendance", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp struct {
		TotalToday   int `json:"total_today"`
		TodayRecords []struct {
			Date string `json:"date"`
		} `json:"today_records"`
	}
	parseJSONResponse(t, recorder, &resp)
	if resp.TotalToday != 1 || resp.TodayRecords[0].Date != "2026-04-20" {
		t.Errorf("unexpected debug response %+v", resp)
	}
}
