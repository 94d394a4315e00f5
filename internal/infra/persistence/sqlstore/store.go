// Package sqlstore implements catalog.Store on database/sql. The sqlite and
// postgres packages open the connection and pick the dialect; the schema is
// the generated DDL bundle, which also seeds the entity_types lookup table.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"streamcorpus/internal/catalog"
	"streamcorpus/internal/schema/sqlbundle"
	"streamcorpus/pkg/streamcorpus"
)

var _ catalog.Store = (*Store)(nil)

// Dialect adapts the shared queries to one database.
type Dialect struct {
	Name string
	// DDL is the generated schema bundle.
	DDL string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

// Postgres numbers parameters $1, $2, ...
func Postgres() Dialect {
	return Dialect{Name: "postgres", DDL: sqlbundle.Postgres(), Placeholder: func(n int) string { return "$" + strconv.Itoa(n) }}
}

// SQLite uses positional ? parameters.
func SQLite() Dialect {
	return Dialect{Name: "sqlite", DDL: sqlbundle.SQLite(), Placeholder: func(int) string { return "?" }}
}

// Execer is the subset of *sql.DB used to apply DDL.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ApplyDDL executes each statement of ddl in order.
func ApplyDDL(ctx context.Context, db Execer, ddl string) error {
	for _, stmt := range sqlbundle.SplitStatements(ddl) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

// Store is a catalog.Store over an open *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	q       queries
}

type queries struct {
	upsertChunk  string
	deleteCounts string
	insertCount  string
	selectChunk  string
	selectCounts string
	listChunks   string
	listCounts   string
	deleteChunk  string
}

const chunkColumns = "chunk_key, md5, messages, stored_bytes, compressed, encrypted, unknown_entity_types, created_at"

func buildQueries(d Dialect) queries {
	p := d.Placeholder
	return queries{
		upsertChunk: fmt.Sprintf("INSERT INTO chunks (%s) VALUES (%s, %s, %s, %s, %s, %s, %s, %s) "+
			"ON CONFLICT (chunk_key) DO UPDATE SET md5 = excluded.md5, messages = excluded.messages, "+
			"stored_bytes = excluded.stored_bytes, compressed = excluded.compressed, encrypted = excluded.encrypted, "+
			"unknown_entity_types = excluded.unknown_entity_types, created_at = excluded.created_at",
			chunkColumns, p(1), p(2), p(3), p(4), p(5), p(6), p(7), p(8)),
		deleteCounts: "DELETE FROM chunk_entity_counts WHERE chunk_key = " + p(1),
		insertCount:  fmt.Sprintf("INSERT INTO chunk_entity_counts (chunk_key, entity_type, tokens) VALUES (%s, %s, %s)", p(1), p(2), p(3)),
		selectChunk:  fmt.Sprintf("SELECT %s FROM chunks WHERE chunk_key = %s", chunkColumns, p(1)),
		selectCounts: "SELECT chunk_key, entity_type, tokens FROM chunk_entity_counts WHERE chunk_key = " + p(1),
		listChunks:   fmt.Sprintf("SELECT %s FROM chunks ORDER BY chunk_key", chunkColumns),
		listCounts:   "SELECT chunk_key, entity_type, tokens FROM chunk_entity_counts",
		deleteChunk:  "DELETE FROM chunks WHERE chunk_key = " + p(1),
	}
}

// New applies the dialect's DDL to db and returns a Store that owns db.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if err := ApplyDDL(ctx, db, dialect.DDL); err != nil {
		return nil, fmt.Errorf("%s: %w", dialect.Name, err)
	}
	return &Store{db: db, dialect: dialect, q: buildQueries(dialect)}, nil
}

// DB exposes the underlying handle for tests.
func (s *Store) DB() *sql.DB { return s.db }

// Put upserts the chunk row and replaces its entity counts in one transaction.
func (s *Store) Put(ctx context.Context, r catalog.Record) (retErr error) {
	if err := r.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, s.q.upsertChunk,
		r.Key, r.MD5, r.Messages, r.StoredBytes, r.Compressed, r.Encrypted, r.UnknownEntityTypes, r.CreatedAt.UTC().UnixNano(),
	); err != nil {
		return fmt.Errorf("upsert chunk %s: %w", r.Key, err)
	}
	if _, err := tx.ExecContext(ctx, s.q.deleteCounts, r.Key); err != nil {
		return fmt.Errorf("clear counts %s: %w", r.Key, err)
	}
	types := make([]streamcorpus.EntityType, 0, len(r.EntityCounts))
	for et := range r.EntityCounts {
		types = append(types, et)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, et := range types {
		if _, err := tx.ExecContext(ctx, s.q.insertCount, r.Key, et, r.EntityCounts[et]); err != nil {
			return fmt.Errorf("insert count %s/%s: %w", r.Key, et, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get loads one record.
func (s *Store) Get(ctx context.Context, key string) (catalog.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.q.selectChunk, key)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("select chunk: %w", err)
	}
	records, err := scanChunks(rows)
	if err != nil {
		return catalog.Record{}, err
	}
	if len(records) == 0 {
		return catalog.Record{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, key)
	}
	rec := &records[0]
	rows, err = s.db.QueryContext(ctx, s.q.selectCounts, key)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("select counts: %w", err)
	}
	byKey := map[string]*catalog.Record{key: rec}
	if err := scanCounts(rows, byKey); err != nil {
		return catalog.Record{}, err
	}
	return *rec, nil
}

// List filters by prefix in Go so keys containing LIKE wildcards need no escaping.
func (s *Store) List(ctx context.Context, prefix string) ([]catalog.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.q.listChunks)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	all, err := scanChunks(rows)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Record, 0, len(all))
	for _, r := range all {
		if strings.HasPrefix(r.Key, prefix) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	byKey := make(map[string]*catalog.Record, len(out))
	for i := range out {
		byKey[out[i].Key] = &out[i]
	}
	rows, err = s.db.QueryContext(ctx, s.q.listCounts)
	if err != nil {
		return nil, fmt.Errorf("list counts: %w", err)
	}
	if err := scanCounts(rows, byKey); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the chunk row and its counts.
func (s *Store) Delete(ctx context.Context, key string) (deleted bool, retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, s.q.deleteCounts, key); err != nil {
		return false, fmt.Errorf("delete counts %s: %w", key, err)
	}
	res, err := tx.ExecContext(ctx, s.q.deleteChunk, key)
	if err != nil {
		return false, fmt.Errorf("delete chunk %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete chunk %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return n > 0, nil
}

// EntityTotals sums counts over every stored chunk.
func (s *Store) EntityTotals(ctx context.Context) (map[streamcorpus.EntityType]int, error) {
	records, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	return catalog.Totals(records), nil
}

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

func scanChunks(rows *sql.Rows) ([]catalog.Record, error) {
	defer func() { _ = rows.Close() }()
	var out []catalog.Record
	for rows.Next() {
		var (
			r       catalog.Record
			created int64
		)
		if err := rows.Scan(&r.Key, &r.MD5, &r.Messages, &r.StoredBytes, &r.Compressed, &r.Encrypted, &r.UnknownEntityTypes, &created); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		r.EntityCounts = make(map[streamcorpus.EntityType]int)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func scanCounts(rows *sql.Rows, byKey map[string]*catalog.Record) error {
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			key    string
			et     streamcorpus.EntityType
			tokens int
		)
		if err := rows.Scan(&key, &et, &tokens); err != nil {
			return fmt.Errorf("scan count: %w", err)
		}
		if r, ok := byKey[key]; ok {
			r.EntityCounts[et] = tokens
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate counts: %w", err)
	}
	return nil
}
