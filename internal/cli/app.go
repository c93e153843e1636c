package cli

import (
	"context"

	"github.com/rogerio-castellano/pos-terminal/internal/config"
	"github.com/rogerio-castellano/pos-terminal/internal/localstore"
	"github.com/rogerio-castellano/pos-terminal/internal/logging"
	"github.com/rogerio-castellano/pos-terminal/internal/pos"
	"github.com/rogerio-castellano/pos-terminal/internal/remote"
	"go.uber.org/zap"
)

// app is the wired terminal shared by every command.
type app struct {
	cfg   config.Config
	log   *zap.Logger
	store localstore.Store
	pos   *pos.Service
}

func openApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build logger", err)
	}

	store, err := localstore.Open(ctx, cfg.Store, cfg.Redis, log.Named("store"))
	if err != nil {
		// Sales still go through while the remote answers; nothing can be
		// cached or queued.
		log.Warn("no local store available, running online only", zap.Error(err))
		store = localstore.NewUnavailableStore(err)
	}

	rc := remote.NewClient(cfg.Remote, log.Named("remote"))
	svc := pos.NewService(store, rc, pos.Options{
		CallTimeout:       cfg.Remote.RequestTimeout,
		OutboxMaxAttempts: cfg.Sync.OutboxMaxAttempts,
		OutletID:          cfg.Terminal.OutletID,
	}, log.Named("pos"))

	return &app{cfg: cfg, log: log, store: store, pos: svc}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("failed to close local store", zap.Error(err))
	}
	a.log.Sync()
}
