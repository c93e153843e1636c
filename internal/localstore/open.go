package localstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/rogerio-castellano/pos-terminal/internal/config"
	"github.com/rogerio-castellano/pos-terminal/internal/db"
	"github.com/rogerio-castellano/pos-terminal/internal/redissvc"
	"go.uber.org/zap"
)

const (
	BackendStructured = "structured"
	BackendFlat       = "flat"
)

// Open picks the backend once for the life of the process. The preferred
// backend is opened and initialized first; if that fails the other one is
// tried. When both fail the terminal has no offline capability and
// ErrUnavailable is returned.
func Open(ctx context.Context, cfg config.StoreConfig, redisCfg config.RedisConfig, log *zap.Logger) (Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	order := []string{BackendStructured, BackendFlat}
	if cfg.Prefer == BackendFlat {
		order = []string{BackendFlat, BackendStructured}
	}

	var errs []error
	for _, backend := range order {
		st, err := openBackend(ctx, backend, cfg, redisCfg, log)
		if err == nil {
			if err = st.Init(ctx); err == nil {
				log.Info("local store ready", zap.String("backend", st.Backend()))
				return st, nil
			}
			st.Close()
		}
		log.Warn("local store backend unavailable", zap.String("backend", backend), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", backend, err))
	}
	return nil, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}

func openBackend(ctx context.Context, backend string, cfg config.StoreConfig, redisCfg config.RedisConfig, log *zap.Logger) (Store, error) {
	if backend == BackendStructured {
		database, err := db.Connect(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return NewSQLStore(database, cfg.Driver, log.Named("structured")), nil
	}

	kv, err := OpenKV(ctx, cfg, redisCfg)
	if err != nil {
		return nil, err
	}
	return NewFlatStore(kv, cfg.KeyPrefix, log.Named("flat")), nil
}

// OpenKV builds the flat key-value store named by cfg.FlatKind.
func OpenKV(ctx context.Context, cfg config.StoreConfig, redisCfg config.RedisConfig) (KV, error) {
	switch cfg.FlatKind {
	case "memory":
		return NewMemoryKV(), nil
	case "file":
		return NewFileKV(cfg.FlatPath), nil
	case "bolt":
		return OpenBoltKV(cfg.FlatPath)
	case "redis":
		svc, err := redissvc.Connect(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		return NewRedisKV(svc), nil
	default:
		return nil, fmt.Errorf("unknown flat store kind %q", cfg.FlatKind)
	}
}
