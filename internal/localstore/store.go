// Package localstore is the terminal's durable local persistence layer.
//
// A Store holds a fixed set of record collections (products, offline
// transactions, the generic sync queue and settings). Records are JSON
// objects addressed by a primary key field and optionally filtered by
// equality on declared secondary indexes. Two interchangeable backends
// implement the contract: SQLStore keeps real tables and indexes in a
// database/sql database, FlatStore keeps each collection as one serialized
// array under a single key of a flat key-value store.
package localstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

type Collection string

const (
	Products            Collection = "products"
	OfflineTransactions Collection = "offline_transactions"
	SyncQueue           Collection = "sync_queue"
	Settings            Collection = "settings"
)

// Schema declares how records of a collection are keyed and indexed.
// Index names are the JSON field names they index.
type Schema struct {
	Name          Collection
	KeyField      string
	AutoIncrement bool
	Indexes       []string
}

func (s Schema) hasIndex(name string) bool {
	for _, idx := range s.Indexes {
		if idx == name {
			return true
		}
	}
	return false
}

// DefaultSchemas are the collections used by the terminal.
var DefaultSchemas = []Schema{
	{
		Name:     Products,
		KeyField: "id",
		Indexes:  []string{"outlet_id", "sku", "barcode", "category", "is_active"},
	},
	{
		Name:     OfflineTransactions,
		KeyField: "offline_id",
		Indexes:  []string{"outlet_id", "cashier_id", "created_at"},
	},
	{
		Name:          SyncQueue,
		KeyField:      "id",
		AutoIncrement: true,
		Indexes:       []string{"status"},
	},
	{
		Name:     Settings,
		KeyField: "key",
	},
}

// Match is an equality condition on a declared index. Values are compared
// by their JSON encoding, so "O1", true and 250 match the stored field
// values "O1", true and 250.
type Match struct {
	Index string
	Value any
}

// Eq is shorthand for Match{Index: index, Value: value}.
func Eq(index string, value any) Match {
	return Match{Index: index, Value: value}
}

// Store is the contract both backends satisfy identically.
//
// Init must succeed before any other call; calls on an uninitialized store
// return ErrNotInitialized. Put is insert-or-replace by primary key and
// returns the key (assigned by the store for auto-increment collections).
// GetAll returns records matching every given Match, in insertion order.
// Get reports found=false for an absent key. Delete of an absent key is a
// no-op.
type Store interface {
	Init(ctx context.Context) error
	Put(ctx context.Context, c Collection, record any) (string, error)
	GetAll(ctx context.Context, c Collection, matches ...Match) ([]json.RawMessage, error)
	Get(ctx context.Context, c Collection, key string) (json.RawMessage, bool, error)
	Delete(ctx context.Context, c Collection, key string) error
	Clear(ctx context.Context, c Collection) error
	Count(ctx context.Context, c Collection) (int, error)
	Backend() string
	Close() error
}

var (
	ErrNotInitialized    = errors.New("local store used before Init")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrUnknownIndex      = errors.New("unknown index")
	ErrMissingKey        = errors.New("record has no primary key")
	ErrInvalidRecord     = errors.New("record must be a JSON object")
	ErrUnavailable       = errors.New("no local store backend available")
)

// GetAllAs decodes every record returned by GetAll into T.
func GetAllAs[T any](ctx context.Context, s Store, c Collection, matches ...Match) ([]T, error) {
	raws, err := s.GetAll(ctx, c, matches...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to decode %s record: %w", c, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// GetAs decodes the record stored under key into T.
func GetAs[T any](ctx context.Context, s Store, c Collection, key string) (T, bool, error) {
	var v T
	raw, found, err := s.Get(ctx, c, key)
	if err != nil || !found {
		return v, found, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("failed to decode %s record: %w", c, err)
	}
	return v, true, nil
}

type document map[string]any

type schemaSet map[Collection]Schema

func newSchemaSet(schemas []Schema) schemaSet {
	if len(schemas) == 0 {
		schemas = DefaultSchemas
	}
	set := make(schemaSet, len(schemas))
	for _, s := range schemas {
		set[s.Name] = s
	}
	return set
}

func (set schemaSet) lookup(c Collection) (Schema, error) {
	s, ok := set[c]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	return s, nil
}

// resolve validates matches against the schema and encodes their values.
// ok is false when a match can never be satisfied (nil value).
func (s Schema) resolve(matches []Match) (values []string, ok bool, err error) {
	ok = true
	for _, m := range matches {
		if !s.hasIndex(m.Index) {
			return nil, false, fmt.Errorf("%w: %q on %s", ErrUnknownIndex, m.Index, s.Name)
		}
		v, present := canonical(m.Value)
		if !present {
			ok = false
		}
		values = append(values, v)
	}
	return values, ok, nil
}

func decodeDocument(raw []byte) (document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc document
	if err := dec.Decode(&doc); err != nil || doc == nil {
		return nil, ErrInvalidRecord
	}
	return doc, nil
}

func toDocument(record any) (document, error) {
	var raw []byte
	switch r := record.(type) {
	case json.RawMessage:
		raw = r
	case []byte:
		raw = r
	default:
		var err error
		raw, err = json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("failed to encode record: %w", err)
		}
	}
	return decodeDocument(raw)
}

// prepare decodes record and extracts its key. An empty key is only
// returned for auto-increment collections, where the store assigns one.
func (s Schema) prepare(record any) (document, string, error) {
	doc, err := toDocument(record)
	if err != nil {
		return nil, "", err
	}
	key, ok := keyString(doc[s.KeyField])
	if !ok {
		if s.AutoIncrement {
			return doc, "", nil
		}
		return nil, "", fmt.Errorf("%w: field %q in %s", ErrMissingKey, s.KeyField, s.Name)
	}
	return doc, key, nil
}

func (s Schema) assignKey(doc document, seq int64) string {
	key := strconv.FormatInt(seq, 10)
	doc[s.KeyField] = json.Number(key)
	return key
}

// numericKey reports the value of an explicit key in an auto-increment
// collection, so the sequence can be raised past it.
func numericKey(key string) (int64, bool) {
	n, err := strconv.ParseInt(key, 10, 64)
	return n, err == nil && n > 0
}

func (s Schema) indexValue(doc document, index string) (string, bool) {
	return canonical(doc[index])
}

func (s Schema) matches(doc document, matches []Match, values []string) bool {
	for i, m := range matches {
		v, ok := s.indexValue(doc, m.Index)
		if !ok || v != values[i] {
			return false
		}
	}
	return true
}

func keyString(v any) (string, bool) {
	switch k := v.(type) {
	case string:
		return k, k != ""
	case json.Number:
		s := k.String()
		return s, s != "" && s != "0"
	default:
		return "", false
	}
}

func canonical(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func encodeDocument(doc document) ([]byte, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return b, nil
}
