package cli

import (
	"context"
	"testing"
	"time"

	"github.com/rogerio-castellano/pos-terminal/internal/config"
	"github.com/rogerio-castellano/pos-terminal/internal/localstore"
	"github.com/rogerio-castellano/pos-terminal/internal/pos"
	"github.com/rogerio-castellano/pos-terminal/internal/remote"
	"github.com/rogerio-castellano/pos-terminal/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newUnreachableService(t *testing.T) (*pos.Service, localstore.Store) {
	t.Helper()
	st := localstore.NewFlatStore(localstore.NewMemoryKV(), "sched_", nil)
	require.NoError(t, st.Init(context.Background()))
	rc := remote.NewClient(config.RemoteConfig{BaseURL: "http://127.0.0.1:1", RequestTimeout: time.Second}, nil)
	return pos.NewService(st, rc, pos.Options{}, nil), st
}

func TestNewScheduler(t *testing.T) {
	svc, _ := newUnreachableService(t)

	sched, err := newScheduler(svc, "@every 1m", "", time.Second, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, sched.Entries(), 1)

	sched, err = newScheduler(svc, "*/30 * * * * *", "", time.Second, zap.NewNop())
	require.NoError(t, err, "seconds field is optional")
	assert.Len(t, sched.Entries(), 1)

	_, err = newScheduler(svc, "every minute", "", time.Second, zap.NewNop())
	assert.Error(t, err)
}

func TestRunScheduledSync_RecordsPassWhileOffline(t *testing.T) {
	svc, st := newUnreachableService(t)

	runScheduledSync(context.Background(), svc, "O1", time.Second, zap.NewNop())

	last, err := repo.NewSettingsRepository(st).GetTime(context.Background(), repo.SettingLastSyncAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), last, time.Minute)

	_, err = repo.NewSettingsRepository(st).Get(context.Background(), repo.CatalogSyncedAtKey("O1"))
	assert.ErrorIs(t, err, repo.ErrSettingNotFound)
}
