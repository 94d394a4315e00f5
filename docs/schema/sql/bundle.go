// Package sqldocs exposes the generated chunk-catalog SQL bundles directly from the docs tree.
package sqldocs

import _ "embed"

// SQLite contains the generated SQLite DDL bundle.
//
//go:embed sqlite.sql
var SQLite string

// Postgres contains the generated Postgres DDL bundle.
//
//go:embed postgres.sql
var Postgres string
