package sqlbundle

import (
	"strings"
	"testing"

	"streamcorpus/pkg/streamcorpus"
)

func TestSplitStatements(t *testing.T) {
	stmts := SplitStatements(SQLite())
	if len(stmts) == 0 {
		t.Fatal("expected sqlite DDL to produce statements")
	}
	for _, stmt := range stmts {
		if strings.HasPrefix(strings.TrimSpace(stmt), "--") {
			t.Fatalf("statement unexpectedly starts with comment: %q", stmt)
		}
		if !strings.HasSuffix(strings.TrimSpace(stmt), ";") {
			t.Fatalf("statement missing semicolon terminator: %q", stmt)
		}
	}
}

func TestSplitStatementsKeepsUnterminatedTail(t *testing.T) {
	got := SplitStatements("-- header\nCREATE TABLE a (x INTEGER);\n\nSELECT 1")
	if len(got) != 2 || got[1] != "SELECT 1" {
		t.Fatalf("unexpected statements %q", got)
	}
}

func TestBundlesSeedEveryEntityType(t *testing.T) {
	for name, ddl := range map[string]string{"postgres": Postgres(), "sqlite": SQLite()} {
		if !strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS entity_types") {
			t.Fatalf("%s: missing entity_types table", name)
		}
		var seeds int
		for _, stmt := range SplitStatements(ddl) {
			if strings.HasPrefix(stmt, "INSERT INTO entity_types") {
				seeds++
			}
		}
		if seeds != len(streamcorpus.EntityTypes()) {
			t.Fatalf("%s: %d seed rows, enum declares %d values", name, seeds, len(streamcorpus.EntityTypes()))
		}
	}
}

func TestSplitStatementsRespectsQuotes(t *testing.T) {
	ddl := "INSERT INTO entity_types (code, description) VALUES (1, 'a; b -- c');\n" +
		"INSERT INTO entity_types (code, description) VALUES (2, 'it''s'); -- trailing\n"
	got := SplitStatements(ddl)
	want := []string{
		"INSERT INTO entity_types (code, description) VALUES (1, 'a; b -- c');",
		"INSERT INTO entity_types (code, description) VALUES (2, 'it''s');",
	}
	if len(got) != len(want) {
		t.Fatalf("unexpected statements %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("statement %d = %q, want %q", i, got[i], want[i])
		}
	}
}
