package schema

import (
	"encoding/json"
	"testing"

	"streamcorpus/pkg/streamcorpus"
)

func TestVersion(t *testing.T) {
	got, err := Version()
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if got == "" {
		t.Fatal("expected non-empty schema version")
	}

	var doc struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(entityTypesSchema, &doc); err != nil {
		t.Fatalf("unmarshal schema: %v", err)
	}
	if got != doc.Version {
		t.Fatalf("fingerprint version %q is stale, schema declares %q", got, doc.Version)
	}
}

func TestSchemaMetadata(t *testing.T) {
	got, err := SchemaMetadata()
	if err != nil {
		t.Fatalf("SchemaMetadata: %v", err)
	}
	if got.Status == "" || got.Source == "" {
		t.Fatalf("expected status and source, got %+v", got)
	}
}

func TestBindingsMatchGeneratedEnum(t *testing.T) {
	bindings, err := Bindings(EntityTypeEnum)
	if err != nil {
		t.Fatalf("Bindings: %v", err)
	}
	all := streamcorpus.EntityTypes()
	if len(bindings) != len(all) {
		t.Fatalf("fingerprint has %d values, enum has %d", len(bindings), len(all))
	}
	for _, e := range all {
		code, ok := bindings[e.String()]
		if !ok || code != e.Code() {
			t.Fatalf("%s: fingerprint code %d (present=%v), enum code %d", e, code, ok, e.Code())
		}
	}
	bindings["PER"] = 99
	again, _ := Bindings(EntityTypeEnum)
	if again["PER"] != 0 {
		t.Fatal("Bindings must return a copy")
	}
	if _, err := Bindings("nope"); err == nil {
		t.Fatal("expected error for unknown enum")
	}
}
