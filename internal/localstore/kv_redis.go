package localstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rogerio-castellano/pos-terminal/internal/redissvc"
)

// RedisKV stores values as plain Redis strings.
type RedisKV struct {
	svc *redissvc.RedisService
}

func NewRedisKV(svc *redissvc.RedisService) *RedisKV {
	return &RedisKV{svc: svc}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.svc.Rdb().Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return r.svc.Rdb().Set(ctx, key, value, 0).Err()
}

func (r *RedisKV) Ping(ctx context.Context) error {
	return r.svc.Rdb().Ping(ctx).Err()
}

func (r *RedisKV) Close() error { return r.svc.Close() }

func (r *RedisKV) Kind() string { return "redis" }
