package localstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// KV is the minimal flat key-value store the flat backend needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close() error
	Kind() string
}

// FlatStore is the fallback backend. Each collection is one JSON array
// stored under "<prefix><collection>"; every operation reads and rewrites
// the whole array and filters in memory.
type FlatStore struct {
	kv          KV
	prefix      string
	schemas     schemaSet
	mu          sync.Mutex
	initialized bool
	log         *zap.Logger
}

func NewFlatStore(kv KV, prefix string, log *zap.Logger, schemas ...Schema) *FlatStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FlatStore{
		kv:      kv,
		prefix:  prefix,
		schemas: newSchemaSet(schemas),
		log:     log,
	}
}

func (s *FlatStore) Backend() string { return "flat:" + s.kv.Kind() }

func (s *FlatStore) Close() error { return s.kv.Close() }

func (s *FlatStore) key(c Collection) string { return s.prefix + string(c) }

func (s *FlatStore) seqKey(c Collection) string { return s.prefix + string(c) + ":seq" }

// Init checks the KV is reachable and every stored collection decodes.
func (s *FlatStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Ping(ctx); err != nil {
		return fmt.Errorf("flat store %s unreachable: %w", s.kv.Kind(), err)
	}
	for c := range s.schemas {
		if _, err := s.load(ctx, c); err != nil {
			return err
		}
	}
	s.initialized = true
	s.log.Info("flat store initialized", zap.String("kv", s.kv.Kind()), zap.String("prefix", s.prefix))
	return nil
}

func (s *FlatStore) ready(c Collection) (Schema, error) {
	if !s.initialized {
		return Schema{}, ErrNotInitialized
	}
	return s.schemas.lookup(c)
}

func (s *FlatStore) load(ctx context.Context, c Collection) ([]document, error) {
	raw, found, err := s.kv.Get(ctx, s.key(c))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c, err)
	}
	if !found || len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var docs []document
	if err := dec.Decode(&docs); err != nil {
		return nil, fmt.Errorf("corrupt %s collection: %w", c, err)
	}
	return docs, nil
}

func (s *FlatStore) save(ctx context.Context, c Collection, docs []document) error {
	if docs == nil {
		docs = []document{}
	}
	raw, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", c, err)
	}
	if err := s.kv.Set(ctx, s.key(c), raw); err != nil {
		return fmt.Errorf("failed to write %s: %w", c, err)
	}
	return nil
}

func (s *FlatStore) sequence(ctx context.Context, c Collection) (int64, error) {
	raw, found, err := s.kv.Get(ctx, s.seqKey(c))
	if err != nil {
		return 0, fmt.Errorf("failed to read sequence for %s: %w", c, err)
	}
	if !found {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt sequence for %s: %w", c, err)
	}
	return n, nil
}

func (s *FlatStore) setSequence(ctx context.Context, c Collection, n int64) error {
	if err := s.kv.Set(ctx, s.seqKey(c), []byte(strconv.FormatInt(n, 10))); err != nil {
		return fmt.Errorf("failed to write sequence for %s: %w", c, err)
	}
	return nil
}

func (s *FlatStore) Put(ctx context.Context, c Collection, record any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema, err := s.ready(c)
	if err != nil {
		return "", err
	}
	doc, key, err := schema.prepare(record)
	if err != nil {
		return "", err
	}
	docs, err := s.load(ctx, c)
	if err != nil {
		return "", err
	}

	if schema.AutoIncrement {
		seq, err := s.sequence(ctx, c)
		if err != nil {
			return "", err
		}
		next := seq
		if key == "" {
			next = seq + 1
			key = schema.assignKey(doc, next)
		} else if n, ok := numericKey(key); ok && n > seq {
			next = n
		}
		if next != seq {
			if err := s.setSequence(ctx, c, next); err != nil {
				return "", err
			}
		}
	}

	replaced := false
	for i, existing := range docs {
		if k, _ := keyString(existing[schema.KeyField]); k == key {
			docs[i] = doc
			replaced = true
			break
		}
	}
	if !replaced {
		docs = append(docs, doc)
	}
	if err := s.save(ctx, c, docs); err != nil {
		return "", err
	}
	return key, nil
}

func (s *FlatStore) GetAll(ctx context.Context, c Collection, matches ...Match) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema, err := s.ready(c)
	if err != nil {
		return nil, err
	}
	values, satisfiable, err := schema.resolve(matches)
	if err != nil {
		return nil, err
	}
	out := []json.RawMessage{}
	if !satisfiable {
		return out, nil
	}
	docs, err := s.load(ctx, c)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if !schema.matches(doc, matches, values) {
			continue
		}
		raw, err := encodeDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func (s *FlatStore) Get(ctx context.Context, c Collection, key string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema, err := s.ready(c)
	if err != nil {
		return nil, false, err
	}
	docs, err := s.load(ctx, c)
	if err != nil {
		return nil, false, err
	}
	for _, doc := range docs {
		if k, _ := keyString(doc[schema.KeyField]); k == key {
			raw, err := encodeDocument(doc)
			if err != nil {
				return nil, false, err
			}
			return raw, true, nil
		}
	}
	return nil, false, nil
}

func (s *FlatStore) Delete(ctx context.Context, c Collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema, err := s.ready(c)
	if err != nil {
		return err
	}
	docs, err := s.load(ctx, c)
	if err != nil {
		return err
	}
	kept := docs[:0]
	for _, doc := range docs {
		if k, _ := keyString(doc[schema.KeyField]); k != key {
			kept = append(kept, doc)
		}
	}
	if len(kept) == len(docs) {
		return nil
	}
	return s.save(ctx, c, kept)
}

func (s *FlatStore) Clear(ctx context.Context, c Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ready(c); err != nil {
		return err
	}
	return s.save(ctx, c, nil)
}

func (s *FlatStore) Count(ctx context.Context, c Collection) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ready(c); err != nil {
		return 0, err
	}
	docs, err := s.load(ctx, c)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}
