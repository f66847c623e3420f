package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/lookout/internal/detect"
	"github.com/ayusman/lookout/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "lookout-api-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	dbPath := filepath.Join(tmpDir, "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// seedFrame persists a frame with the given detections and returns its record.
func seedFrame(t *testing.T, s *store.Store, seq int64, detections []detect.Detection) *store.FrameRecord {
	t.Helper()

	record := &store.FrameRecord{
		Seq:        seq,
		Source:     "replay",
		CapturedAt: time.Now(),
		RawCount:   len(detections) + 1,
		Detections: detections,
	}
	if err := s.Frames().Create(record); err != nil {
		t.Fatalf("failed to seed frame: %v", err)
	}
	return record
}

func TestFrameHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewFrameHandler(s)

	seedFrame(t, s, 1, []detect.Detection{
		{Box: detect.Box{X1: 0.1, Y1: 0.1, X2: 0.4, Y2: 0.4}, ClassID: 0, ClassName: "person", Confidence: 0.9},
	})
	seedFrame(t, s, 2, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/frames", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var response listFramesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(response.Frames))
	}

	// Newest first
	if response.Frames[0].Seq != 2 {
		t.Errorf("expected newest frame first (seq 2), got seq %d", response.Frames[0].Seq)
	}
	if response.Frames[1].KeptCount != 1 {
		t.Errorf("expected kept_count 1, got %d", response.Frames[1].KeptCount)
	}
}

func TestFrameHandler_List_Limit(t *testing.T) {
	s := newTestStore(t)
	handler := NewFrameHandler(s)

	for seq := int64(1); seq <= 3; seq++ {
		seedFrame(t, s, seq, nil)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/frames?limit=2", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	var response listFramesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Frames) != 2 {
		t.Errorf("expected 2 frames with limit=2, got %d", len(response.Frames))
	}
}

func TestFrameHandler_List_InvalidLimit(t *testing.T) {
	s := newTestStore(t)
	handler := NewFrameHandler(s)

	for _, limit := range []string{"abc", "0", "-5"} {
		req := httptest.NewRequest(http.MethodGet, "/api/frames?limit="+limit, nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit %q: expected status %d, got %d", limit, http.StatusBadRequest, rec.Code)
		}
	}
}

func TestFrameHandler_Latest(t *testing.T) {
	s := newTestStore(t)
	handler := NewFrameHandler(s)

	seedFrame(t, s, 1, nil)
	seedFrame(t, s, 2, []detect.Detection{
		{Box: detect.Box{X1: 0.2, Y1: 0.2, X2: 0.6, Y2: 0.6}, ClassID: 2, ClassName: "car", Confidence: 0.8},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/frames/latest", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response frameDetailResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Seq != 2 {
		t.Errorf("expected seq 2, got %d", response.Seq)
	}
	if len(response.Detections) != 1 || response.Detections[0].ClassName != "car" {
		t.Errorf("unexpected detections: %+v", response.Detections)
	}
}

func TestFrameHandler_Latest_Empty(t *testing.T) {
	s := newTestStore(t)
	handler := NewFrameHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/frames/latest", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestFrameHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewFrameHandler(s)

	record := seedFrame(t, s, 7, []detect.Detection{
		{Box: detect.Box{X1: 0.1, Y1: 0.1, X2: 0.4, Y2: 0.4}, ClassID: 0, ClassName: "person", Confidence: 0.9},
		{Box: detect.Box{X1: 0.5, Y1: 0.5, X2: 0.8, Y2: 0.8}, ClassID: 2, ClassName: "car", Confidence: 0.7},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/frames/"+record.ID, nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response frameDetailResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.ID != record.ID {
		t.Errorf("expected ID %q, got %q", record.ID, response.ID)
	}
	if response.Seq != 7 {
		t.Errorf("expected seq 7, got %d", response.Seq)
	}

	// Detections come back in their stored order
	if len(response.Detections) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(response.Detections))
	}
	if response.Detections[0].ClassName != "person" || response.Detections[1].ClassName != "car" {
		t.Errorf("detections out of order: %+v", response.Detections)
	}
}

func TestFrameHandler_Get_NotFound(t *testing.T) {
	s := newTestStore(t)
	handler := NewFrameHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/frames/non-existent", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestFrameHandler_MethodNotAllowed(t *testing.T) {
	s := newTestStore(t)
	handler := NewFrameHandler(s)

	req := httptest.NewRequest(http.MethodPost, "/api/frames", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestClassHandler(t *testing.T) {
	s := newTestStore(t)
	handler := NewClassHandler(s)

	seedFrame(t, s, 1, []detect.Detection{
		{Box: detect.Box{X1: 0.1, Y1: 0.1, X2: 0.4, Y2: 0.4}, ClassID: 0, ClassName: "person", Confidence: 0.90},
		{Box: detect.Box{X1: 0.5, Y1: 0.5, X2: 0.8, Y2: 0.8}, ClassID: 2, ClassName: "car", Confidence: 0.70},
	})
	seedFrame(t, s, 2, []detect.Detection{
		{Box: detect.Box{X1: 0.2, Y1: 0.2, X2: 0.5, Y2: 0.5}, ClassID: 0, ClassName: "person", Confidence: 0.95},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/classes", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listClassesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Classes) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(response.Classes))
	}

	// Most seen class first
	if response.Classes[0].ClassName != "person" || response.Classes[0].Count != 2 {
		t.Errorf("unexpected first class: %+v", response.Classes[0])
	}
	if response.Classes[0].MaxConfidence != 0.95 {
		t.Errorf("expected max confidence 0.95, got %v", response.Classes[0].MaxConfidence)
	}
}

func TestClassHandler_Empty(t *testing.T) {
	s := newTestStore(t)
	handler := NewClassHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/classes", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listClassesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Classes) != 0 {
		t.Errorf("expected 0 classes, got %d", len(response.Classes))
	}
}

func TestClassHandler_MethodNotAllowed(t *testing.T) {
	s := newTestStore(t)
	handler := NewClassHandler(s)

	req := httptest.NewRequest(http.MethodPost, "/api/classes", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
