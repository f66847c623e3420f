package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Frames table - one row per processed video frame
		`CREATE TABLE IF NOT EXISTS frames (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			captured_at DATETIME,
			raw_count INTEGER NOT NULL DEFAULT 0,
			kept_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Detections table - surviving detections per frame, in output order
		`CREATE TABLE IF NOT EXISTS detections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			frame_id TEXT NOT NULL REFERENCES frames(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			class_id INTEGER NOT NULL,
			class_name TEXT NOT NULL,
			confidence REAL NOT NULL,
			x1 REAL NOT NULL,
			y1 REAL NOT NULL,
			x2 REAL NOT NULL,
			y2 REAL NOT NULL
		)`,

		// Alert rules table - class-to-plugin bindings
		`CREATE TABLE IF NOT EXISTS alert_rules (
			id TEXT PRIMARY KEY,
			class_name TEXT NOT NULL,
			min_confidence REAL NOT NULL DEFAULT 0,
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			cooldown_seconds INTEGER NOT NULL DEFAULT 0,
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_frames_seq ON frames(seq)`,
		`CREATE INDEX IF NOT EXISTS idx_detections_frame_id ON detections(frame_id)`,
		`CREATE INDEX IF NOT EXISTS idx_detections_class_name ON detections(class_name)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_rules_class_name ON alert_rules(class_name)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
