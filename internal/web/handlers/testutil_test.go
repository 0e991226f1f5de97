package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

var testNow = time.Date(2026, 4, 20, 9, 30, 0, 0, time.UTC)

// testService bundles a service with the mocks behind it
type testService struct {
	svc        *attendance.Service
	roster     *mock.MockRoster
	attendance *mock.MockAttendance
	detector   *vision.StubDetector
	metrics    *metrics.Collector
}

func newTestService(t *testing.T) *testService {
	t.Helper()
	ts := &testService{
		roster:   mock.NewMockRoster(),
		detector: &vision.StubDetector{},
		metrics:  metrics.NewCollector(),
	}
	ts.attendance = mock.NewMockAttendance(ts.roster)

	svc, err := attendance.NewService(attendance.Options{
		Detector:   ts.detector,
		Roster:     ts.roster,
		Attendance: ts.attendance,
		Metrics:    ts.metrics,
		Location:   time.UTC,
		Now:        func() time.Time { return testNow },
		Workers:    2,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ts.svc = svc
	return ts
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// quadrantPNG is a black square with one bright quadrant (0..3).
func quadrantPNG(t *testing.T, quadrant int) []byte {
	t.Helper()
	return encodePNG(t, quadrantImage(quadrant))
}

func quadrantImage(quadrant int) image.Image {
	const size = 64
	img := image.NewGray(image.Rect(0, 0, size, size))
	half := size / 2
	ox, oy := (quadrant%2)*half, (quadrant/2)*half
	for y := oy; y < oy+half; y++ {
		for x := ox; x < ox+half; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// enroll stores a student whose signature is taken from quadrantImage(quadrant).
func (ts *testService) enroll(t *testing.T, id, roll string, quadrant int) {
	t.Helper()
	sig, err := vision.ExtractSignature(quadrantImage(quadrant), nil)
	if err != nil {
		t.Fatalf("extract signature: %v", err)
	}
	ts.roster.AddIdentity(database.Identity{
		ID:           id,
		Name:         "Student " + roll,
		RollNumber:   roll,
		Year:         "2",
		Session:      "2025-26",
		Signatures:   []vision.Signature{sig},
		RegisteredAt: testNow.Add(-24 * time.Hour),
	})
}

type formFile struct {
	field    string
	filename string
	data     []byte
}

// multipartRequest builds a multipart/form-data request from fields and files
func multipartRequest(t *testing.T, method, path string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(f.data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
