package main

import (
	"fmt"
	"strings"
)

type sqlDialect struct {
	name    string
	integer string
	bigint  string
	boolean string
}

var (
	postgresDialect = sqlDialect{name: "postgres", integer: "INTEGER", bigint: "BIGINT", boolean: "BOOLEAN"}
	sqliteDialect   = sqlDialect{name: "sqlite", integer: "INTEGER", bigint: "INTEGER", boolean: "INTEGER"}
)

// generateSQL renders the catalog DDL for both dialects. Every enum gets a lookup
// table named after it (entity_type -> entity_types) seeded with its declared values.
func generateSQL(doc schemaDoc) ([]byte, []byte, error) {
	pg, err := renderSQL(doc, postgresDialect)
	if err != nil {
		return nil, nil, err
	}
	lite, err := renderSQL(doc, sqliteDialect)
	if err != nil {
		return nil, nil, err
	}
	return pg, lite, nil
}

func renderSQL(doc schemaDoc, d sqlDialect) ([]byte, error) {
	names := sortedKeys(doc.Enums)
	if len(names) == 0 {
		return nil, fmt.Errorf("schema declares no enums")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "-- %s\n", generatedHeader)
	fmt.Fprintf(&b, "-- dialect: %s, schema version: %s\n\n", d.name, doc.Version)

	for _, name := range names {
		values, err := orderedValues(name, doc.Enums[name])
		if err != nil {
			return nil, err
		}
		table := name + "s"
		fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", table)
		fmt.Fprintf(&b, "    code %s PRIMARY KEY,\n", d.integer)
		b.WriteString("    name TEXT NOT NULL UNIQUE,\n")
		b.WriteString("    description TEXT NOT NULL\n")
		b.WriteString(");\n\n")
		for _, v := range values {
			fmt.Fprintf(&b, "INSERT INTO %s (code, name, description) VALUES (%d, %s, %s) ON CONFLICT (code) DO NOTHING;\n",
				table, v.Value, sqlQuote(v.Name), sqlQuote(strings.TrimSpace(v.Description)))
		}
		b.WriteString("\n")
	}

	b.WriteString("CREATE TABLE IF NOT EXISTS chunks (\n")
	b.WriteString("    chunk_key TEXT PRIMARY KEY,\n")
	b.WriteString("    md5 TEXT NOT NULL,\n")
	fmt.Fprintf(&b, "    messages %s NOT NULL,\n", d.integer)
	fmt.Fprintf(&b, "    stored_bytes %s NOT NULL,\n", d.bigint)
	fmt.Fprintf(&b, "    compressed %s NOT NULL,\n", d.boolean)
	fmt.Fprintf(&b, "    encrypted %s NOT NULL,\n", d.boolean)
	fmt.Fprintf(&b, "    unknown_entity_types %s NOT NULL,\n", d.integer)
	fmt.Fprintf(&b, "    created_at %s NOT NULL\n", d.bigint)
	b.WriteString(");\n\n")

	b.WriteString("CREATE TABLE IF NOT EXISTS chunk_entity_counts (\n")
	b.WriteString("    chunk_key TEXT NOT NULL REFERENCES chunks(chunk_key) ON DELETE CASCADE,\n")
	fmt.Fprintf(&b, "    entity_type %s NOT NULL REFERENCES entity_types(code),\n", d.integer)
	fmt.Fprintf(&b, "    tokens %s NOT NULL,\n", d.integer)
	b.WriteString("    PRIMARY KEY (chunk_key, entity_type)\n")
	b.WriteString(");\n")

	return []byte(b.String()), nil
}

func sqlQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
