package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/handservo/internal/servo"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Sequence is a named, ordered list of poses played back with a fixed delay.
type Sequence struct {
	ID        string
	Name      string
	Poses     []servo.Pose
	Delay     time.Duration
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SequenceRepository provides CRUD operations for sequences.
type SequenceRepository struct {
	db *sql.DB
}

// Sequences returns the sequence repository for this store.
func (s *Store) Sequences() *SequenceRepository {
	return &SequenceRepository{db: s.db}
}

// Create inserts a sequence and its poses.
func (r *SequenceRepository) Create(seq *Sequence) error {
	now := time.Now()
	seq.CreatedAt = now
	seq.UpdatedAt = now

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO sequences (id, name, delay_ms, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		seq.ID, seq.Name, seq.Delay.Milliseconds(), seq.CreatedAt, seq.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if err := insertPoses(tx, seq.ID, seq.Poses); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves a sequence and its poses by ID.
func (r *SequenceRepository) GetByID(id string) (*Sequence, error) {
	return r.getOne(
		`SELECT id, name, delay_ms, created_at, updated_at FROM sequences WHERE id = ?`, id,
	)
}

// GetByName retrieves a sequence and its poses by name.
func (r *SequenceRepository) GetByName(name string) (*Sequence, error) {
	return r.getOne(
		`SELECT id, name, delay_ms, created_at, updated_at FROM sequences WHERE name = ?`, name,
	)
}

func (r *SequenceRepository) getOne(query string, arg any) (*Sequence, error) {
	seq := &Sequence{}
	var delayMS int64

	err := r.db.QueryRow(query, arg).Scan(&seq.ID, &seq.Name, &delayMS, &seq.CreatedAt, &seq.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	seq.Delay = time.Duration(delayMS) * time.Millisecond

	seq.Poses, err = r.poses(seq.ID)
	if err != nil {
		return nil, err
	}
	return seq, nil
}

// List retrieves all sequences, newest first, with their poses.
func (r *SequenceRepository) List() ([]*Sequence, error) {
	rows, err := r.db.Query(
		`SELECT id, name, delay_ms, created_at, updated_at
		 FROM sequences ORDER BY created_at DESC, name`,
	)
	if err != nil {
		return nil, err
	}

	var sequences []*Sequence
	for rows.Next() {
		seq := &Sequence{}
		var delayMS int64
		if err := rows.Scan(&seq.ID, &seq.Name, &delayMS, &seq.CreatedAt, &seq.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		seq.Delay = time.Duration(delayMS) * time.Millisecond
		sequences = append(sequences, seq)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, seq := range sequences {
		if seq.Poses, err = r.poses(seq.ID); err != nil {
			return nil, err
		}
	}

	return sequences, nil
}

// Update replaces the name, delay and poses of an existing sequence.
func (r *SequenceRepository) Update(seq *Sequence) error {
	seq.UpdatedAt = time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE sequences SET name = ?, delay_ms = ?, updated_at = ? WHERE id = ?`,
		seq.Name, seq.Delay.Milliseconds(), seq.UpdatedAt, seq.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM sequence_poses WHERE sequence_id = ?`, seq.ID); err != nil {
		return err
	}
	if err := insertPoses(tx, seq.ID, seq.Poses); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a sequence and its poses by ID.
func (r *SequenceRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sequences WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *SequenceRepository) poses(sequenceID string) ([]servo.Pose, error) {
	rows, err := r.db.Query(
		`SELECT s1, s2, s3, s4, s5, s6 FROM sequence_poses
		 WHERE sequence_id = ? ORDER BY step`,
		sequenceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	poses := []servo.Pose{}
	for rows.Next() {
		var p servo.Pose
		if err := rows.Scan(&p[0], &p[1], &p[2], &p[3], &p[4], &p[5]); err != nil {
			return nil, err
		}
		poses = append(poses, p)
	}

	return poses, rows.Err()
}

func insertPoses(tx *sql.Tx, sequenceID string, poses []servo.Pose) error {
	stmt, err := tx.Prepare(
		`INSERT INTO sequence_poses (sequence_id, step, s1, s2, s3, s4, s5, s6)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range poses {
		if _, err := stmt.Exec(sequenceID, i, p[0], p[1], p[2], p[3], p[4], p[5]); err != nil {
			return fmt.Errorf("pose %d: %w", i+1, err)
		}
	}
	return nil
}
