package testutil

import (
	"context"
	"database/sql/driver"
	"testing"
)

func TestStubDBStoresAndQueriesRows(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	insert := "INSERT INTO chunks (chunk_key, md5) VALUES ($1, $2) ON CONFLICT (chunk_key) DO UPDATE SET md5 = excluded.md5"
	for _, md5 := range []string{"first", "second"} {
		if _, err := conn.ExecContext(ctx, insert, []driver.NamedValue{{Value: "a.sc"}, {Value: md5}}); err != nil {
			t.Fatalf("ExecContext insert: %v", err)
		}
	}
	if _, err := conn.ExecContext(ctx, insert, []driver.NamedValue{{Value: "b.sc"}, {Value: "third"}}); err != nil {
		t.Fatalf("ExecContext insert: %v", err)
	}
	if rows := conn.Rows("chunks"); len(rows) != 2 {
		t.Fatalf("expected upsert to keep two rows, got %v", rows)
	}

	rows, err := conn.QueryContext(ctx, "SELECT chunk_key, md5 FROM chunks WHERE chunk_key = $1", []driver.NamedValue{{Value: "a.sc"}})
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	dest := make([]driver.Value, 2)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dest[0] != "a.sc" || dest[1] != "second" {
		t.Fatalf("unexpected row values: %v", dest)
	}
	if err := rows.Next(dest); err == nil {
		t.Fatalf("expected a single filtered row")
	}

	res, err := conn.ExecContext(ctx, "DELETE FROM chunks WHERE chunk_key = $1", []driver.NamedValue{{Value: "a.sc"}})
	if err != nil {
		t.Fatalf("ExecContext delete: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Fatalf("expected one deleted row, got %d", n)
	}
	if _, err := conn.ExecContext(ctx, "INSERT INTO entity_types (code, name) VALUES (0, 'PER')", nil); err != nil {
		t.Fatalf("literal insert: %v", err)
	}
	if conn.ExecCount("entity_types") != 1 || len(conn.Rows("entity_types")) != 0 {
		t.Fatalf("literal inserts are recorded, not stored")
	}
}
