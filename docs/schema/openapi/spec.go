// Package openapi embeds the generated OpenAPI components for the entity-type
// enumeration so services can publish the wire contract.
package openapi

import _ "embed"

// EntityTypesSpec contains the generated OpenAPI components.
//
//go:embed entity-types.yaml
var EntityTypesSpec []byte

// Spec returns a copy of the embedded OpenAPI YAML.
func Spec() []byte {
	return append([]byte(nil), EntityTypesSpec...)
}
