package streamcorpus

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
)

//go:generate go run ../../internal/tools/entitytype/generate -schema ../../docs/schema/entity-types.json -out entity_type_gen.go -sql-postgres ../../docs/schema/sql/postgres.sql -sql-sqlite ../../docs/schema/sql/sqlite.sql -openapi ../../docs/schema/openapi/entity-types.yaml

// ErrUnknownEntityType is returned when a code or symbol does not name a declared EntityType.
var ErrUnknownEntityType = errors.New("streamcorpus: unknown entity type")

// String returns the schema symbol (for example "PER" or "phone"). Undeclared
// codes render as EntityType(N) so they stay distinguishable in logs.
func (e EntityType) String() string {
	if name, ok := e.symbol(); ok {
		return name
	}
	return "EntityType(" + strconv.FormatInt(int64(e), 10) + ")"
}

// Description returns the human readable description from the schema, or ""
// for undeclared codes.
func (e EntityType) Description() string {
	desc, _ := e.description()
	return desc
}

// Valid returns an error wrapping ErrUnknownEntityType when e is not declared.
func (e EntityType) Valid() error {
	if _, ok := e.symbol(); !ok {
		return fmt.Errorf("%w: code %d", ErrUnknownEntityType, int32(e))
	}
	return nil
}

// LookupEntityType is EntityTypeFromCode for callers that prefer an error.
func LookupEntityType(code int32) (EntityType, error) {
	e, ok := EntityTypeFromCode(code)
	if !ok {
		return 0, fmt.Errorf("%w: code %d", ErrUnknownEntityType, code)
	}
	return e, nil
}

// ParseEntityType resolves a schema symbol. An exact match wins over a
// case-insensitive one.
func ParseEntityType(name string) (EntityType, error) {
	e, ok := parseEntityTypeName(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEntityType, name)
	}
	return e, nil
}

// MarshalText implements encoding.TextMarshaler using the schema symbol.
func (e EntityType) MarshalText() ([]byte, error) {
	name, ok := e.symbol()
	if !ok {
		return nil, e.Valid()
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Both symbols and decimal
// codes are accepted.
func (e *EntityType) UnmarshalText(text []byte) error {
	s := string(text)
	if code, err := strconv.ParseInt(s, 10, 32); err == nil {
		v, err := LookupEntityType(int32(code))
		if err != nil {
			return err
		}
		*e = v
		return nil
	}
	v, err := ParseEntityType(s)
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Value implements driver.Valuer; the integer code is stored, matching the
// entity_types lookup table.
func (e EntityType) Value() (driver.Value, error) {
	return int64(e), nil
}

// Scan implements sql.Scanner.
func (e *EntityType) Scan(src any) error {
	var code int64
	switch v := src.(type) {
	case int64:
		code = v
	case int32:
		code = int64(v)
	case int:
		code = int64(v)
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 32)
		if err != nil {
			return fmt.Errorf("scan entity type: %w", err)
		}
		code = n
	case string:
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("scan entity type: %w", err)
		}
		code = n
	default:
		return fmt.Errorf("scan entity type: unsupported type %T", src)
	}
	if code < -1<<31 || code > 1<<31-1 {
		return fmt.Errorf("%w: code %d out of range", ErrUnknownEntityType, code)
	}
	v, err := LookupEntityType(int32(code))
	if err != nil {
		return err
	}
	*e = v
	return nil
}
