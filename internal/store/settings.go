package store

import (
	"database/sql"
	"errors"
	"strconv"
)

// Setting keys.
const (
	SettingSerialPort = "serial.port"
	SettingBaudRate   = "serial.baud"
	SettingCamera     = "camera.device"
)

// SettingsRepository reads and writes key-value settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value stored under key, or ErrNotFound.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// GetOr returns the value stored under key, or def when it is unset.
func (r *SettingsRepository) GetOr(key, def string) (string, error) {
	value, err := r.Get(key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	return value, err
}

// GetInt returns an integer setting, or def when it is unset.
func (r *SettingsRepository) GetInt(key string, def int) (int, error) {
	value, err := r.Get(key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	return strconv.Atoi(value)
}

// Set stores value under key, replacing any previous value.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Delete removes key. Deleting an unset key is not an error.
func (r *SettingsRepository) Delete(key string) error {
	_, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}
