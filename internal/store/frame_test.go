package store

import (
	"errors"
	"testing"
	"time"

	"github.com/ayusman/lookout/internal/detect"
)

func testFrame(seq int64) *FrameRecord {
	return &FrameRecord{
		Seq:        seq,
		Source:     "replay",
		CapturedAt: time.Now().Add(-time.Second),
		RawCount:   3,
		Detections: []detect.Detection{
			{Box: detect.Box{X1: 0.30, Y1: 0.40, X2: 0.70, Y2: 0.80}, ClassID: 2, ClassName: "car", Confidence: 0.9},
			{Box: detect.Box{X1: 0.05, Y1: 0.05, X2: 0.20, Y2: 0.45}, ClassID: 0, ClassName: "person", Confidence: 0.75},
		},
	}
}

func TestFrameRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Frames()

	frame := testFrame(12)
	if err := repo.Create(frame); err != nil {
		t.Fatalf("failed to create frame: %v", err)
	}

	// Create assigns the ID and kept count
	if frame.ID == "" {
		t.Error("ID should be assigned on create")
	}
	if frame.KeptCount != 2 {
		t.Errorf("KeptCount should match detections: got %d, want 2", frame.KeptCount)
	}
	if frame.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set after create")
	}

	retrieved, err := repo.GetByID(frame.ID)
	if err != nil {
		t.Fatalf("failed to get frame by ID: %v", err)
	}

	if retrieved.Seq != 12 {
		t.Errorf("Seq mismatch: got %d, want 12", retrieved.Seq)
	}
	if retrieved.Source != "replay" {
		t.Errorf("Source mismatch: got %q, want %q", retrieved.Source, "replay")
	}
	if retrieved.RawCount != 3 {
		t.Errorf("RawCount mismatch: got %d, want 3", retrieved.RawCount)
	}
	if len(retrieved.Detections) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(retrieved.Detections))
	}

	// Detections come back in stored order with their boxes intact
	d := retrieved.Detections[0]
	if d.ClassName != "car" || d.Confidence != 0.9 {
		t.Errorf("unexpected first detection: %+v", d)
	}
	if d.Box != (detect.Box{X1: 0.30, Y1: 0.40, X2: 0.70, Y2: 0.80}) {
		t.Errorf("box mismatch: %+v", d.Box)
	}
	if retrieved.Detections[1].ClassName != "person" {
		t.Errorf("expected person second, got %q", retrieved.Detections[1].ClassName)
	}
}

func TestFrameRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Frames().GetByID("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFrameRepository_Latest(t *testing.T) {
	s := newTestStore(t)
	repo := s.Frames()

	if _, err := repo.Latest(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on empty store, got %v", err)
	}

	for seq := int64(1); seq <= 3; seq++ {
		if err := repo.Create(testFrame(seq)); err != nil {
			t.Fatalf("failed to create frame %d: %v", seq, err)
		}
	}

	latest, err := repo.Latest()
	if err != nil {
		t.Fatalf("failed to get latest frame: %v", err)
	}
	if latest.Seq != 3 {
		t.Errorf("expected latest seq 3, got %d", latest.Seq)
	}
	if len(latest.Detections) != 2 {
		t.Errorf("latest frame should include detections, got %d", len(latest.Detections))
	}
}

func TestFrameRepository_ListRecent(t *testing.T) {
	s := newTestStore(t)
	repo := s.Frames()

	for seq := int64(1); seq <= 5; seq++ {
		if err := repo.Create(testFrame(seq)); err != nil {
			t.Fatalf("failed to create frame %d: %v", seq, err)
		}
	}

	frames, err := repo.ListRecent(3)
	if err != nil {
		t.Fatalf("failed to list frames: %v", err)
	}

	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	if frames[0].Seq != 5 {
		t.Errorf("expected newest frame first, got seq %d", frames[0].Seq)
	}
	if frames[0].Detections != nil {
		t.Error("list summaries should not load detections")
	}
}

func TestFrameRepository_ClassCounts(t *testing.T) {
	s := newTestStore(t)
	repo := s.Frames()

	// Two frames: cars twice at 0.9/0.8, person once
	if err := repo.Create(&FrameRecord{Seq: 1, Detections: []detect.Detection{
		{Box: detect.Box{X1: 0.1, Y1: 0.1, X2: 0.3, Y2: 0.3}, ClassID: 2, ClassName: "car", Confidence: 0.9},
		{Box: detect.Box{X1: 0.5, Y1: 0.5, X2: 0.8, Y2: 0.8}, ClassID: 0, ClassName: "person", Confidence: 0.7},
	}}); err != nil {
		t.Fatalf("failed to create frame: %v", err)
	}
	if err := repo.Create(&FrameRecord{Seq: 2, Detections: []detect.Detection{
		{Box: detect.Box{X1: 0.1, Y1: 0.1, X2: 0.3, Y2: 0.3}, ClassID: 2, ClassName: "car", Confidence: 0.8},
	}}); err != nil {
		t.Fatalf("failed to create frame: %v", err)
	}

	counts, err := repo.ClassCounts()
	if err != nil {
		t.Fatalf("failed to get class counts: %v", err)
	}

	if len(counts) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(counts))
	}
	if counts[0].ClassName != "car" || counts[0].Count != 2 {
		t.Errorf("expected car counted twice first, got %+v", counts[0])
	}
	if counts[0].MaxConfidence != 0.9 {
		t.Errorf("expected max confidence 0.9 for car, got %f", counts[0].MaxConfidence)
	}
	if counts[1].ClassName != "person" || counts[1].Count != 1 {
		t.Errorf("expected person counted once, got %+v", counts[1])
	}
}

func TestFrameRepository_DeleteOlderThan(t *testing.T) {
	s := newTestStore(t)
	repo := s.Frames()

	frame := testFrame(1)
	if err := repo.Create(frame); err != nil {
		t.Fatalf("failed to create frame: %v", err)
	}

	// A cutoff in the past removes nothing
	n, err := repo.DeleteOlderThan(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan error = %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 frames removed, got %d", n)
	}

	// A cutoff in the future removes the frame and cascades to detections
	n, err = repo.DeleteOlderThan(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan error = %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 frame removed, got %d", n)
	}

	var detections int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM detections").Scan(&detections); err != nil {
		t.Fatalf("failed to count detections: %v", err)
	}
	if detections != 0 {
		t.Errorf("expected detections cascaded away, got %d", detections)
	}
}
