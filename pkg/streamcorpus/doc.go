// Package streamcorpus holds the canonical entity-type enumeration and the
// Thrift messages that carry it.
//
// EntityType is generated from docs/schema/entity-types.json by
// internal/tools/entitytype/generate. Codes are a public wire contract: they
// travel as Thrift i32 values, new symbols may only be appended with unused
// codes, and existing bindings never change. A decoder that meets a code it
// does not know keeps the raw value so the message re-encodes unchanged; see
// StreamItem.UnknownEntityTypes.
package streamcorpus
