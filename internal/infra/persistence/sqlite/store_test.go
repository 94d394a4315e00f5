package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"streamcorpus/internal/catalog"
	"streamcorpus/internal/catalog/catalogtest"
	"streamcorpus/pkg/streamcorpus"
)

func TestStoreConformance(t *testing.T) {
	catalogtest.Run(t, func(t *testing.T) catalog.Store {
		st, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
		if err != nil {
			t.Fatalf("NewStore: %v", err)
		}
		return st
	})
}

func TestEntityTypesTableMirrorsEnum(t *testing.T) {
	ctx := context.Background()
	st, err := NewStore(ctx, filepath.Join(t.TempDir(), "nested", "catalog.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = st.Close() }()

	rows, err := st.DB().QueryContext(ctx, `SELECT code, name, description FROM entity_types ORDER BY code`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer func() { _ = rows.Close() }()
	var seen int
	for rows.Next() {
		var (
			et         streamcorpus.EntityType
			name, desc string
		)
		if err := rows.Scan(&et, &name, &desc); err != nil {
			t.Fatalf("scan: %v", err)
		}
		if et.String() != name || et.Description() != desc {
			t.Fatalf("row %d = (%s, %s), enum says (%s, %s)", et, name, desc, et, et.Description())
		}
		seen++
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	if seen != len(streamcorpus.EntityTypes()) {
		t.Fatalf("expected %d seeded entity types, got %d", len(streamcorpus.EntityTypes()), seen)
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")
	st, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := st.Put(ctx, catalogtest.Fixture("kept.sc", 2, 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	again, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = again.Close() }()
	if again.Path() != path {
		t.Fatalf("path = %s", again.Path())
	}
	rec, err := again.Get(ctx, "kept.sc")
	if err != nil || rec.EntityCounts[streamcorpus.EntityTypePER] != 2 {
		t.Fatalf("reopened record: %v %+v", err, rec)
	}
}

func TestUndeclaredEntityTypeViolatesForeignKey(t *testing.T) {
	ctx := context.Background()
	st, err := NewStore(ctx, filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = st.Close() }()
	if err := st.Put(ctx, catalogtest.Fixture("fk.sc", 1, 0)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := st.DB().ExecContext(ctx, `INSERT INTO chunk_entity_counts (chunk_key, entity_type, tokens) VALUES ('fk.sc', 40, 1)`); err == nil {
		t.Fatalf("expected foreign key violation for an undeclared code")
	}
}
