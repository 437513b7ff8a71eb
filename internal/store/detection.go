package store

import (
	"database/sql"
	"time"
)

// Detection is one served inference result.
type Detection struct {
	ID          int64
	SessionID   string
	Label       string
	Probability float64
	TargetLabel string
	TargetProb  float64
	Confidence  float64
	Matched     bool
	FrameCount  int
	Duration    float64
	CreatedAt   time.Time
}

// DetectionRepository provides persistence for detection results.
type DetectionRepository struct {
	db *sql.DB
}

// Detections returns the detection repository for this store.
func (s *Store) Detections() *DetectionRepository {
	return &DetectionRepository{db: s.db}
}

// Create inserts a new detection record and fills in its id.
func (r *DetectionRepository) Create(d *Detection) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO detections
		 (session_id, label, probability, target_label, target_prob, confidence, matched, frame_count, duration, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.SessionID, d.Label, d.Probability, d.TargetLabel, d.TargetProb,
		d.Confidence, d.Matched, d.FrameCount, d.Duration, d.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = id

	return nil
}

// ListBySession retrieves all detections for one session, oldest first.
func (r *DetectionRepository) ListBySession(sessionID string) ([]*Detection, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, label, probability, target_label, target_prob, confidence, matched, frame_count, duration, created_at
		 FROM detections WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDetections(rows)
}

// ListRecent retrieves the most recent detections across all sessions,
// newest first.
func (r *DetectionRepository) ListRecent(limit int) ([]*Detection, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, session_id, label, probability, target_label, target_prob, confidence, matched, frame_count, duration, created_at
		 FROM detections ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDetections(rows)
}

func scanDetections(rows *sql.Rows) ([]*Detection, error) {
	var detections []*Detection
	for rows.Next() {
		d := &Detection{}
		err := rows.Scan(
			&d.ID, &d.SessionID, &d.Label, &d.Probability, &d.TargetLabel,
			&d.TargetProb, &d.Confidence, &d.Matched, &d.FrameCount,
			&d.Duration, &d.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		detections = append(detections, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return detections, nil
}
