package repository

import (
	"database/sql"
)

// allowedSettings are the operator-tunable keys the pipeline reads at boot.
var allowedSettings = map[string]bool{
	"worker_concurrency":      true,
	"region_padding_seconds":  true,
	"scorer_calls_per_minute": true,
	"mock_ai":                 true,
	"tmp_retention_minutes":   true,
}

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// IsAllowed reports whether key is a recognized pipeline setting.
func (r *SettingsRepository) IsAllowed(key string) bool {
	return allowedSettings[key]
}

// Get retrieves a setting value by key. Returns empty string if not found.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Set upserts a setting. Takes effect on the next boot when the config
// layer merges stored settings over the environment.
func (r *SettingsRepository) Set(key, value string) error {
	query := `INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = $2`
	_, err := r.db.Exec(query, key, value)
	return err
}

// GetAll returns all settings as a map.
func (r *SettingsRepository) GetAll() (map[string]string, error) {
	rows, err := r.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

// Delete removes a setting by key.
func (r *SettingsRepository) Delete(key string) error {
	_, err := r.db.Exec(`DELETE FROM settings WHERE key = $1`, key)
	return err
}
