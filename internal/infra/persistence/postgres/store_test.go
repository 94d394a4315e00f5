package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"streamcorpus/internal/catalog"
	"streamcorpus/internal/catalog/catalogtest"
	"streamcorpus/internal/infra/persistence/postgres/testutil"
	"streamcorpus/internal/schema/sqlbundle"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	var gotDriver, gotDSN string
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driverName, dsn
		return db, nil
	})
	defer restore()
	st, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if gotDriver != "pgx" || gotDSN != defaultDSN {
		t.Fatalf("unexpected open(%q, %q)", gotDriver, gotDSN)
	}
	return st, conn
}

func TestStoreConformance(t *testing.T) {
	catalogtest.Run(t, func(t *testing.T) catalog.Store {
		st, _ := openStub(t)
		return st
	})
}

func TestNewStoreAppliesGeneratedDDL(t *testing.T) {
	_, conn := openStub(t)
	stmts := sqlbundle.SplitStatements(sqlbundle.Postgres())
	if len(conn.Execs) < len(stmts) {
		t.Fatalf("expected %d DDL statements, got %d", len(stmts), len(conn.Execs))
	}
	for i, stmt := range stmts {
		if strings.TrimSpace(conn.Execs[i]) != strings.TrimSpace(stmt) {
			t.Fatalf("statement %d mismatch:\nwant: %s\ngot:  %s", i, stmt, conn.Execs[i])
		}
	}
	if conn.ExecCount("INSERT INTO entity_types") != 17 {
		t.Fatalf("expected every entity type to be seeded")
	}
}

func TestPutUsesNumberedPlaceholders(t *testing.T) {
	st, conn := openStub(t)
	if err := st.Put(context.Background(), catalogtest.Fixture("p.sc", 2, 0)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if conn.ExecCount("VALUES ($1, $2, $3, $4, $5, $6, $7, $8)") != 1 {
		t.Fatalf("expected postgres placeholders, got %v", conn.Execs)
	}
	rows := conn.Rows("chunk_entity_counts")
	if len(rows) != 1 || rows[0]["entity_type"] != int64(0) || rows[0]["tokens"] != int64(2) {
		t.Fatalf("unexpected count rows %v", rows)
	}
}

func TestNewStoreFailures(t *testing.T) {
	ctx := context.Background()
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("dial") })
	if _, err := NewStore(ctx, "postgres://x"); err == nil {
		t.Fatalf("expected open error")
	}
	restore()

	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore = OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	if _, err := NewStore(ctx, "postgres://x"); err == nil || !strings.Contains(err.Error(), "ping") {
		t.Fatalf("expected ping error, got %v", err)
	}
	restore()

	db, conn = testutil.NewStubDB()
	conn.FailExec = true
	restore = OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(ctx, "postgres://x"); err == nil || !strings.Contains(err.Error(), "ddl") {
		t.Fatalf("expected ddl error, got %v", err)
	}
}

func TestPutRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	st, conn := openStub(t)
	conn.FailTables = map[string]bool{"chunk_entity_counts": true}
	if err := st.Put(ctx, catalogtest.Fixture("r.sc", 1, 1)); err == nil {
		t.Fatalf("expected count insert failure")
	}
	conn.FailTables = nil
	conn.FailCommit = true
	if err := st.Put(ctx, catalogtest.Fixture("r.sc", 1, 1)); err == nil || !strings.Contains(err.Error(), "commit") {
		t.Fatalf("expected commit failure, got %v", err)
	}
	conn.FailCommit = false
	conn.FailBegin = true
	if _, err := st.Delete(ctx, "r.sc"); err == nil {
		t.Fatalf("expected begin failure")
	}
}

func TestListPropagatesRowErrors(t *testing.T) {
	ctx := context.Background()
	st, conn := openStub(t)
	if err := st.Put(ctx, catalogtest.Fixture("e.sc", 1, 0)); err != nil {
		t.Fatalf("put: %v", err)
	}
	conn.RowsErr = errors.New("network reset")
	if _, err := st.List(ctx, ""); err == nil {
		t.Fatalf("expected iteration error")
	}
	conn.RowsErr = nil
	conn.FailTables = map[string]bool{"chunks": true}
	if _, err := st.EntityTotals(ctx); err == nil {
		t.Fatalf("expected query error")
	}
}
