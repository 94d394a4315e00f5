// Package schema exposes the embedded entity-type schema for runtime use.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
)

// EntityTypeEnum is the enum key of the entity-type table in the schema.
const EntityTypeEnum = "entity_type"

type fingerprintDoc struct {
	Version string                      `json:"version"`
	Enums   map[string]map[string]int32 `json:"enums"`
}

// Metadata captures the high-level metadata block of the schema.
type Metadata struct {
	Source string `json:"source"`
	Status string `json:"status"`
}

type metadataDoc struct {
	Metadata Metadata `json:"metadata"`
}

// Fingerprint of the schema: the version and the name to code bindings of
// every enum. Regenerated together with the Go and SQL outputs.
//
//go:embed entity-types.fingerprint.json
var entityTypesFingerprint []byte

// Canonical schema content embedded for accessing metadata.
//
//go:embed entity-types.json
var entityTypesSchema []byte

var (
	fpOnce sync.Once
	fpDoc  fingerprintDoc
	fpErr  error

	schemaOnce sync.Once
	schemaMeta Metadata
	schemaErr  error
)

func fingerprint() (fingerprintDoc, error) {
	fpOnce.Do(func() {
		fpErr = json.Unmarshal(entityTypesFingerprint, &fpDoc)
	})
	return fpDoc, fpErr
}

// Version returns the schema version declared in the generated fingerprint
// (source of truth: docs/schema/entity-types.json).
func Version() (string, error) {
	fp, err := fingerprint()
	return fp.Version, err
}

// Bindings returns a copy of the name to code bindings recorded for enum.
func Bindings(enum string) (map[string]int32, error) {
	fp, err := fingerprint()
	if err != nil {
		return nil, err
	}
	src, ok := fp.Enums[enum]
	if !ok {
		return nil, fmt.Errorf("schema: enum %q not in fingerprint", enum)
	}
	out := make(map[string]int32, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out, nil
}

// SchemaMetadata returns the metadata (status, source) declared in the schema.
func SchemaMetadata() (Metadata, error) {
	schemaOnce.Do(func() {
		var doc metadataDoc
		schemaErr = json.Unmarshal(entityTypesSchema, &doc)
		if schemaErr == nil {
			schemaMeta = doc.Metadata
		}
	})
	return schemaMeta, schemaErr
}

// Raw returns the embedded schema document.
func Raw() []byte {
	return append([]byte(nil), entityTypesSchema...)
}
