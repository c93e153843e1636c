package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepository(t *testing.T) {
	ctx := context.Background()
	for name, st := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			r := NewSettingsRepository(st)

			_, err := r.Get(ctx, SettingLastSyncAt)
			assert.ErrorIs(t, err, ErrSettingNotFound)

			require.NoError(t, r.Set(ctx, "terminal_name", "front"))
			require.NoError(t, r.Set(ctx, "terminal_name", "back"))
			s, err := r.Get(ctx, "terminal_name")
			require.NoError(t, err)
			assert.Equal(t, "back", s.Value)

			stamp := time.Date(2026, 10, 19, 8, 30, 0, 123, time.FixedZone("WIB", 7*3600))
			require.NoError(t, r.SetTime(ctx, CatalogSyncedAtKey("O1"), stamp))
			got, err := r.GetTime(ctx, CatalogSyncedAtKey("O1"))
			require.NoError(t, err)
			assert.True(t, got.Equal(stamp), "GetTime() = %v, want %v", got, stamp)

			_, err = r.GetTime(ctx, "terminal_name")
			assert.Error(t, err, "non-timestamp setting must not parse")
		})
	}
}
