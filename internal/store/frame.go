package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/lookout/internal/detect"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// FrameRecord represents a processed frame stored in the database. The
// Detections slice holds the surviving detections in suppression output
// order; list queries leave it nil.
type FrameRecord struct {
	ID         string
	Seq        int64
	Source     string
	CapturedAt time.Time
	RawCount   int
	KeptCount  int
	CreatedAt  time.Time
	Detections []detect.Detection
}

// ClassCount aggregates stored detections for one class.
type ClassCount struct {
	ClassName     string
	Count         int
	MaxConfidence float64
}

// FrameRepository provides CRUD operations for frames and their detections.
type FrameRepository struct {
	db *sql.DB
}

// Frames returns the frame repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db}
}

// Create inserts a frame and its detections in a single transaction.
// A missing ID is assigned; KeptCount is taken from the detections.
func (r *FrameRepository) Create(f *FrameRecord) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	f.KeptCount = len(f.Detections)
	f.CreatedAt = time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO frames (id, seq, source, captured_at, raw_count, kept_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Seq, f.Source, f.CapturedAt, f.RawCount, f.KeptCount, f.CreatedAt,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO detections (frame_id, idx, class_id, class_name, confidence, x1, y1, x2, y2)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, d := range f.Detections {
		_, err := stmt.Exec(f.ID, i, d.ClassID, d.ClassName, d.Confidence,
			d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID retrieves a frame with its detections by ID.
func (r *FrameRepository) GetByID(id string) (*FrameRecord, error) {
	f := &FrameRecord{}
	var capturedAt sql.NullTime

	err := r.db.QueryRow(
		`SELECT id, seq, source, captured_at, raw_count, kept_count, created_at
		 FROM frames WHERE id = ?`,
		id,
	).Scan(&f.ID, &f.Seq, &f.Source, &capturedAt, &f.RawCount, &f.KeptCount, &f.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if capturedAt.Valid {
		f.CapturedAt = capturedAt.Time
	}

	if err := r.loadDetections(f); err != nil {
		return nil, err
	}
	return f, nil
}

// Latest retrieves the most recently stored frame with its detections.
func (r *FrameRepository) Latest() (*FrameRecord, error) {
	var id string
	err := r.db.QueryRow(
		`SELECT id FROM frames ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return r.GetByID(id)
}

// ListRecent retrieves summaries of the most recent frames, newest first.
// Detections are not loaded.
func (r *FrameRepository) ListRecent(limit int) ([]*FrameRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(
		`SELECT id, seq, source, captured_at, raw_count, kept_count, created_at
		 FROM frames ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []*FrameRecord
	for rows.Next() {
		f := &FrameRecord{}
		var capturedAt sql.NullTime

		err := rows.Scan(&f.ID, &f.Seq, &f.Source, &capturedAt, &f.RawCount, &f.KeptCount, &f.CreatedAt)
		if err != nil {
			return nil, err
		}
		if capturedAt.Valid {
			f.CapturedAt = capturedAt.Time
		}
		frames = append(frames, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frames, nil
}

// ClassCounts aggregates stored detections per class, most seen first.
func (r *FrameRepository) ClassCounts() ([]ClassCount, error) {
	rows, err := r.db.Query(
		`SELECT class_name, COUNT(*), MAX(confidence)
		 FROM detections GROUP BY class_name ORDER BY COUNT(*) DESC, class_name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []ClassCount
	for rows.Next() {
		var c ClassCount
		if err := rows.Scan(&c.ClassName, &c.Count, &c.MaxConfidence); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

// DeleteOlderThan removes frames stored before the cutoff. Their detections
// go with them through the foreign key cascade. Returns the number of frames
// removed.
func (r *FrameRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM frames WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// loadDetections fills the frame's detections in stored order.
func (r *FrameRepository) loadDetections(f *FrameRecord) error {
	rows, err := r.db.Query(
		`SELECT class_id, class_name, confidence, x1, y1, x2, y2
		 FROM detections WHERE frame_id = ? ORDER BY idx`,
		f.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	var detections []detect.Detection
	for rows.Next() {
		var d detect.Detection
		err := rows.Scan(&d.ClassID, &d.ClassName, &d.Confidence,
			&d.Box.X1, &d.Box.Y1, &d.Box.X2, &d.Box.Y2)
		if err != nil {
			return err
		}
		detections = append(detections, d)
	}

	if err := rows.Err(); err != nil {
		return err
	}

	f.Detections = detections
	return nil
}
