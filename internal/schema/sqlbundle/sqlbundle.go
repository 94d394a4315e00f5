// Package sqlbundle exposes the generated catalog DDL bundles for persistence adapters.
package sqlbundle

import (
	"strings"

	sqldocs "streamcorpus/docs/schema/sql"
)

// SQLite returns the generated SQLite DDL: the entity_types lookup table with
// its seed rows and the chunk catalog tables.
func SQLite() string {
	return sqldocs.SQLite
}

// Postgres returns the generated Postgres DDL.
func Postgres() string {
	return sqldocs.Postgres
}

// SplitStatements cuts a DDL script at semicolons that sit outside quoted
// literals. "--" comments run to the end of the line and are dropped; a
// trailing statement without a terminator is kept.
func SplitStatements(ddl string) []string {
	var (
		stmts   []string
		current strings.Builder
		quoted  bool
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			stmts = append(stmts, stmt)
		}
		current.Reset()
	}

	for i := 0; i < len(ddl); i++ {
		c := ddl[i]
		switch {
		case quoted:
			// '' is an escaped quote: it closes and immediately reopens.
			current.WriteByte(c)
			quoted = c != '\''
		case c == '\'':
			quoted = true
			current.WriteByte(c)
		case c == '-' && strings.HasPrefix(ddl[i:], "--"):
			end := strings.IndexByte(ddl[i:], '\n')
			if end < 0 {
				i = len(ddl)
				continue
			}
			i += end - 1
		case c == ';':
			current.WriteByte(c)
			flush()
		default:
			current.WriteByte(c)
		}
	}
	flush()
	return stmts
}
