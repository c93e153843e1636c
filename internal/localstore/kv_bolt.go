package localstore

import (
	"context"
	"time"

	"go.etcd.io/bbolt"
)

var boltBucket = []byte("pos_offline")

// BoltKV stores values in one bucket of a bbolt file.
type BoltKV struct {
	db *bbolt.DB
}

// OpenBoltKV opens (creating if needed) the bbolt file at path.
func OpenBoltKV(path string) (*BoltKV, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	return &BoltKV{db: db}, nil
}

func (b *BoltKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	var out []byte
	found := false
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return nil
		}
		if v := bucket.Get([]byte(key)); v != nil {
			out = append([]byte(nil), v...)
			found = true
		}
		return nil
	})
	return out, found, err
}

func (b *BoltKV) Set(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), value)
	})
}

// Ping creates the bucket, which fails on a read-only file.
func (b *BoltKV) Ping(context.Context) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
}

func (b *BoltKV) Close() error { return b.db.Close() }

func (b *BoltKV) Kind() string { return "bolt" }
