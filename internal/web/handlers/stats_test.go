package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/metrics"
)

func TestStatsHandler_Get_Success(t *testing.T) {
	ts := newTestService(t)
	ts.enroll(t, "s-1", "CS-1", 0)
	ts.enroll(t, "s-2", "CS-2", 1)
	if err := ts.svc.RefreshIndex(t.Context()); err != nil {
		t.Fatalf("RefreshIndex: %v", err)
	}
	ts.metrics.Inc(metrics.CounterAttendanceRecorded)

	handler := NewStatsHandler(ts.svc, testLogger())
	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var stats StatsResponse
	parseJSONResponse(t, recorder, &stats)

	if stats.TotalStudents != 2 {
		t.Errorf("expected total_students=2, got %d", stats.TotalStudents)
	}
	if stats.IndexedStudents != 2 || stats.IndexedSignatures != 2 {
		t.Errorf("expected 2 indexed students and signatures, got %d/%d", stats.IndexedStudents, stats.IndexedSignatures)
	}
	if stats.Counters[metrics.CounterAttendanceRecorded] != 1 {
		t.Errorf("expected attendance_recorded=1, got %v", stats.Counters)
	}
}

func TestStatsHandler_Get_Caching(t *testing.T) {
	ts := newTestService(t)
	ts.enroll(t, "s-1", "CS-1", 0)
	handler := NewStatsHandler(ts.svc, testLogger())

	get := func() StatsResponse {
		recorder := httptest.NewRecorder()
		handler.Get(recorder, httptest.NewRequest(http.MethodGet, "/stats", nil))
		assertStatusCode(t, recorder, http.StatusOK)
		var stats StatsResponse
		parseJSONResponse(t, recorder, &stats)
		return stats
	}

	if got := get().TotalStudents; got != 1 {
		t.Fatalf("expected 1 student, got %d", got)
	}

	// A later enrollment and a broken store are both hidden by the cache.
	ts.enroll(t, "s-2", "CS-2", 1)
	ts.roster.CountError = errors.New("down")
	if got := get().TotalStudents; got != 1 {
		t.Errorf("expected cached count 1, got %d", got)
	}
}

func TestStatsHandler_Get_StoreDown(t *testing.T) {
	ts := newTestService(t)
	ts.roster.CountError = errors.New("connection refused")
	handler := NewStatsHandler(ts.svc, testLogger())

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
	assertJSONError(t, recorder, "Failed to fetch stats: Service Unavailable")
}

func TestStudentCountCache_Expiry(t *testing.T) {
	var c studentCountCache
	if _, ok := c.get(); ok {
		t.Error("expected empty cache miss")
	}
	c.set(4)
	if n, ok := c.get(); !ok || n != 4 {
		t.Errorf("expected cached 4, got %d (ok=%v)", n, ok)
	}
}
