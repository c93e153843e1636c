package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rogerio-castellano/pos-terminal/internal/localstore"
	"github.com/rogerio-castellano/pos-terminal/internal/models"
)

var ErrSettingNotFound = errors.New("setting not found")

const (
	SettingLastSyncAt    = "last_sync_at"
	SettingLastSyncCount = "last_sync_count"
)

// CatalogSyncedAtKey is the setting holding the last catalog refresh of an outlet.
func CatalogSyncedAtKey(outletID string) string {
	return "catalog_synced_at:" + outletID
}

type SettingsRepository struct {
	store localstore.Store
	now   func() time.Time
}

func NewSettingsRepository(store localstore.Store) *SettingsRepository {
	return &SettingsRepository{store: store, now: time.Now}
}

func (r *SettingsRepository) Get(ctx context.Context, key string) (models.Setting, error) {
	s, found, err := localstore.GetAs[models.Setting](ctx, r.store, localstore.Settings, key)
	if err != nil {
		return models.Setting{}, err
	}
	if !found {
		return models.Setting{}, ErrSettingNotFound
	}
	return s, nil
}

func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.store.Put(ctx, localstore.Settings, models.Setting{
		Key:       key,
		Value:     value,
		UpdatedAt: r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

func (r *SettingsRepository) SetTime(ctx context.Context, key string, t time.Time) error {
	return r.Set(ctx, key, t.UTC().Format(time.RFC3339Nano))
}

// GetTime parses a setting written by SetTime. A missing setting returns
// the zero time and ErrSettingNotFound.
func (r *SettingsRepository) GetTime(ctx context.Context, key string) (time.Time, error) {
	s, err := r.Get(ctx, key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s.Value)
	if err != nil {
		return time.Time{}, fmt.Errorf("setting %s is not a timestamp: %w", key, err)
	}
	return t, nil
}
