package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GriffinCanCode/livebox/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

const preferencesRow = 1

// PreferenceRepository implements workspace.PreferenceStore with SQLite
type PreferenceRepository struct {
	db    *gorm.DB
	guard *resilience.Breaker
}

// NewPreferenceRepository creates a PreferenceRepository
func NewPreferenceRepository(db *gorm.DB, guard *resilience.Breaker) *PreferenceRepository {
	if guard == nil {
		guard = resilience.New("sqlite-preferences", resilience.Settings{})
	}
	return &PreferenceRepository{db: db, guard: guard}
}

// LoadPreferences returns the saved preferences, if any
func (r *PreferenceRepository) LoadPreferences(ctx context.Context) (types.Preferences, bool, error) {
	var m PreferencesModel
	err := r.guard.Do(ctx, func(ctx context.Context) error {
		err := r.db.WithContext(ctx).Where("id = ?", preferencesRow).First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	})
	if err == nil && m.ID != preferencesRow {
		return types.Preferences{}, false, nil
	}
	if err != nil {
		return types.Preferences{}, false, fmt.Errorf("loading preferences: %w", err)
	}
	return types.Preferences{DarkMode: m.DarkMode, Layout: types.Layout(m.Layout)}, true, nil
}

// SavePreferences upserts the preferences row
func (r *PreferenceRepository) SavePreferences(ctx context.Context, prefs types.Preferences) error {
	m := PreferencesModel{ID: preferencesRow, DarkMode: prefs.DarkMode, Layout: string(prefs.Layout)}
	err := r.guard.Do(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"dark_mode", "layout", "updated_at"}),
		}).Create(&m).Error
	})
	if err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}
