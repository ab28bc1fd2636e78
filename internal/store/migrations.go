package store

import "fmt"

// migrations are applied in order; the schema version recorded in
// PRAGMA user_version is the number already applied.
var migrations = []string{
	// 1: named pose sequences for playback
	`CREATE TABLE sequences (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		delay_ms INTEGER NOT NULL DEFAULT 500 CHECK(delay_ms >= 0),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE sequence_poses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence_id TEXT NOT NULL REFERENCES sequences(id) ON DELETE CASCADE,
		step INTEGER NOT NULL,
		s1 INTEGER NOT NULL CHECK(s1 BETWEEN 0 AND 180),
		s2 INTEGER NOT NULL CHECK(s2 BETWEEN 0 AND 180),
		s3 INTEGER NOT NULL CHECK(s3 BETWEEN 0 AND 180),
		s4 INTEGER NOT NULL CHECK(s4 BETWEEN 0 AND 180),
		s5 INTEGER NOT NULL CHECK(s5 BETWEEN 0 AND 180),
		s6 INTEGER NOT NULL CHECK(s6 BETWEEN 0 AND 180),
		UNIQUE(sequence_id, step)
	);
	CREATE INDEX idx_sequence_poses_sequence_id ON sequence_poses(sequence_id);`,

	// 2: key-value settings (last serial port, baud rate, camera)
	`CREATE TABLE settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,
}

// SchemaVersion is the version a fully migrated database reports.
var SchemaVersion = len(migrations)

// migrate applies every migration newer than the recorded schema version,
// each in its own transaction.
func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
