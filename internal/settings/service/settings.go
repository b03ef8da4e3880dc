package service

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/medstock/medstock-backend/internal/settings/repository"
	"github.com/medstock/medstock-backend/pkg/database"
	"github.com/medstock/medstock-backend/pkg/errors"
	"github.com/medstock/medstock-backend/pkg/logger"
)

// MaxKeyLength matches the settings.key column
const MaxKeyLength = 100

// SettingsService manages the flat key/value settings store
type SettingsService struct {
	db     *database.DB
	repo   *repository.SettingsRepository
	logger *logger.Logger
}

// NewSettingsService creates a new settings service
func NewSettingsService(db *database.DB, repo *repository.SettingsRepository, log *logger.Logger) *SettingsService {
	return &SettingsService{db: db, repo: repo, logger: log.WithComponent("settings")}
}

// GetAll returns every setting as a map
func (s *SettingsService) GetAll(ctx context.Context) (map[string]string, error) {
	settings, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(settings))
	for _, st := range settings {
		out[st.Key] = st.Value
	}
	return out, nil
}

// Save upserts every pair in one transaction and returns the full, fresh map
func (s *SettingsService) Save(ctx context.Context, values map[string]string) (map[string]string, error) {
	details := map[string]string{}
	for key := range values {
		switch {
		case strings.TrimSpace(key) == "":
			details["key"] = "must not be empty"
		case utf8.RuneCountInString(key) > MaxKeyLength:
			details[key] = "key must be at most 100 characters"
		}
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	// Upsert in key order so concurrent saves lock rows in the same order
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out map[string]string
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		for _, key := range keys {
			if err := s.repo.Upsert(ctx, key, values[key]); err != nil {
				return err
			}
		}
		var err error
		out, err = s.GetAll(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int("keys", len(keys)).Msg("settings saved")
	return out, nil
}
