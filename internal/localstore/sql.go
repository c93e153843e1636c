package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const queryTimeout = 3 * time.Second

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SQLStore is the structured backend. Every collection is a table with the
// primary key, an insertion sequence, the JSON document and one indexed
// column per declared index. The SQL is shared by SQLite and Postgres.
type SQLStore struct {
	db          *sql.DB
	driver      string
	schemas     schemaSet
	stmts       map[Collection]sqlStatements
	initialized atomic.Bool
	log         *zap.Logger
}

type sqlStatements struct {
	upsert string
	seqOf  string
}

// NewSQLStore wraps an open database. Nothing is created until Init.
func NewSQLStore(db *sql.DB, driver string, log *zap.Logger, schemas ...Schema) *SQLStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLStore{
		db:      db,
		driver:  driver,
		schemas: newSchemaSet(schemas),
		stmts:   map[Collection]sqlStatements{},
		log:     log,
	}
}

func (s *SQLStore) Backend() string { return "structured:" + s.driver }

func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func indexColumn(index string) string { return `"idx_` + index + `"` }

func table(c Collection) string { return `"` + string(c) + `"` }

// Init creates the tables and indexes. It is idempotent.
func (s *SQLStore) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	ddl := []string{`CREATE TABLE IF NOT EXISTS store_sequences (collection TEXT PRIMARY KEY, value BIGINT NOT NULL)`}
	for _, schema := range s.schemas {
		if !identifier.MatchString(string(schema.Name)) {
			return fmt.Errorf("invalid collection name %q", schema.Name)
		}
		cols := []string{"pk TEXT PRIMARY KEY", "seq BIGINT NOT NULL", "doc TEXT NOT NULL"}
		for _, idx := range schema.Indexes {
			if !identifier.MatchString(idx) {
				return fmt.Errorf("invalid index name %q on %s", idx, schema.Name)
			}
			cols = append(cols, indexColumn(idx)+" TEXT")
		}
		ddl = append(ddl, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table(schema.Name), strings.Join(cols, ", ")))
		ddl = append(ddl, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS "%s_seq_idx" ON %s (seq)`, schema.Name, table(schema.Name)))
		for _, idx := range schema.Indexes {
			ddl = append(ddl, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS "%s_%s_idx" ON %s (%s)`,
				schema.Name, idx, table(schema.Name), indexColumn(idx)))
		}
		s.stmts[schema.Name] = buildStatements(schema)
	}

	for _, stmt := range ddl {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema %q: %w", stmt, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}

	s.initialized.Store(true)
	s.log.Info("structured store initialized", zap.String("driver", s.driver), zap.Int("collections", len(s.schemas)))
	return nil
}

func buildStatements(schema Schema) sqlStatements {
	cols := []string{"pk", "seq", "doc"}
	updates := []string{"doc = excluded.doc"}
	for _, idx := range schema.Indexes {
		cols = append(cols, indexColumn(idx))
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", indexColumn(idx), indexColumn(idx)))
	}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return sqlStatements{
		upsert: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (pk) DO UPDATE SET %s",
			table(schema.Name), strings.Join(cols, ", "), strings.Join(placeholders, ", "), strings.Join(updates, ", ")),
		seqOf: fmt.Sprintf("SELECT seq FROM %s WHERE pk = $1", table(schema.Name)),
	}
}

func (s *SQLStore) ready(c Collection) (Schema, error) {
	if !s.initialized.Load() {
		return Schema{}, ErrNotInitialized
	}
	return s.schemas.lookup(c)
}

func nextSequence(ctx context.Context, tx *sql.Tx, c Collection) (int64, error) {
	var v int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO store_sequences (collection, value) VALUES ($1, 1)
		 ON CONFLICT (collection) DO UPDATE SET value = store_sequences.value + 1
		 RETURNING value`, string(c)).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate sequence for %s: %w", c, err)
	}
	return v, nil
}

func raiseSequence(ctx context.Context, tx *sql.Tx, c Collection, floor int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO store_sequences (collection, value) VALUES ($1, $2)
		 ON CONFLICT (collection) DO UPDATE SET value = CASE
		   WHEN store_sequences.value < excluded.value THEN excluded.value
		   ELSE store_sequences.value END`, string(c), floor)
	if err != nil {
		return fmt.Errorf("failed to raise sequence for %s: %w", c, err)
	}
	return nil
}

func (s *SQLStore) Put(ctx context.Context, c Collection, record any) (string, error) {
	schema, err := s.ready(c)
	if err != nil {
		return "", err
	}
	doc, key, err := schema.prepare(record)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin put on %s: %w", c, err)
	}
	defer tx.Rollback()

	stmts := s.stmts[c]
	var seq int64
	if key == "" {
		if seq, err = nextSequence(ctx, tx, c); err != nil {
			return "", err
		}
		key = schema.assignKey(doc, seq)
	} else {
		err = tx.QueryRowContext(ctx, stmts.seqOf, key).Scan(&seq)
		if errors.Is(err, sql.ErrNoRows) {
			if n, ok := numericKey(key); ok && schema.AutoIncrement {
				if err := raiseSequence(ctx, tx, c, n); err != nil {
					return "", err
				}
				seq = n
			} else if seq, err = nextSequence(ctx, tx, c); err != nil {
				return "", err
			}
		} else if err != nil {
			return "", fmt.Errorf("failed to look up %s/%s: %w", c, key, err)
		}
	}

	body, err := encodeDocument(doc)
	if err != nil {
		return "", err
	}
	args := []any{key, seq, string(body)}
	for _, idx := range schema.Indexes {
		v, ok := schema.indexValue(doc, idx)
		args = append(args, sql.NullString{String: v, Valid: ok})
	}
	if _, err := tx.ExecContext(ctx, stmts.upsert, args...); err != nil {
		return "", fmt.Errorf("failed to write %s/%s: %w", c, key, err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit %s/%s: %w", c, key, err)
	}
	return key, nil
}

func (s *SQLStore) GetAll(ctx context.Context, c Collection, matches ...Match) ([]json.RawMessage, error) {
	schema, err := s.ready(c)
	if err != nil {
		return nil, err
	}
	values, satisfiable, err := schema.resolve(matches)
	if err != nil {
		return nil, err
	}
	if !satisfiable {
		return []json.RawMessage{}, nil
	}

	query := "SELECT doc FROM " + table(c)
	args := make([]any, 0, len(matches))
	for i, m := range matches {
		if i == 0 {
			query += " WHERE "
		} else {
			query += " AND "
		}
		query += fmt.Sprintf("%s = $%d", indexColumn(m.Index), i+1)
		args = append(args, values[i])
	}
	query += " ORDER BY seq"

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c, err)
	}
	defer rows.Close()

	out := []json.RawMessage{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", c, err)
		}
		out = append(out, json.RawMessage(doc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c, err)
	}
	return out, nil
}

func (s *SQLStore) Get(ctx context.Context, c Collection, key string) (json.RawMessage, bool, error) {
	if _, err := s.ready(c); err != nil {
		return nil, false, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM "+table(c)+" WHERE pk = $1", key).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s/%s: %w", c, key, err)
	}
	return json.RawMessage(doc), true, nil
}

func (s *SQLStore) Delete(ctx context.Context, c Collection, key string) error {
	if _, err := s.ready(c); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table(c)+" WHERE pk = $1", key); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", c, key, err)
	}
	return nil
}

func (s *SQLStore) Clear(ctx context.Context, c Collection) error {
	if _, err := s.ready(c); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table(c)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", c, err)
	}
	return nil
}

func (s *SQLStore) Count(ctx context.Context, c Collection) (int, error) {
	if _, err := s.ready(c); err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table(c)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c, err)
	}
	return n, nil
}
