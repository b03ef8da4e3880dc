package repository

import (
	"context"

	"github.com/medstock/medstock-backend/pkg/database"
)

// Setting is one key/value pair
type Setting struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

// SettingsRepository handles settings persistence
type SettingsRepository struct {
	db *database.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// List returns every setting ordered by key
func (r *SettingsRepository) List(ctx context.Context) ([]Setting, error) {
	settings := []Setting{}
	if err := r.db.Q(ctx).SelectContext(ctx, &settings, `SELECT key, value FROM settings ORDER BY key`); err != nil {
		return nil, err
	}
	return settings, nil
}

// Upsert writes a setting, replacing any existing value
func (r *SettingsRepository) Upsert(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	_, err := r.db.Q(ctx).ExecContext(ctx, query, key, value)
	return err
}
