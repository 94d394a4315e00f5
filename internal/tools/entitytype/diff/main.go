// Program entitytypediff checks the schema against its committed fingerprint so
// that entity-type codes stay append-only.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
)

type enumValueSpec struct {
	Name  string `json:"name"`
	Value int32  `json:"value"`
}

type enumSpec struct {
	Values []enumValueSpec `json:"values"`
}

type schemaDoc struct {
	Version string              `json:"version"`
	Enums   map[string]enumSpec `json:"enums"`
}

type fingerprintDoc struct {
	Version string                      `json:"version"`
	Enums   map[string]map[string]int32 `json:"enums"`
}

var exitFunc = os.Exit

func main() {
	schemaPath := flag.String("schema", "docs/schema/entity-types.json", "path to the entity type schema")
	fingerprintPath := flag.String("fingerprint", "docs/schema/entity-types.fingerprint.json", "path to the fingerprint file")
	write := flag.Bool("write", false, "rewrite the fingerprint file instead of diffing")
	flag.Parse()

	doc, err := loadSchema(*schemaPath)
	if err != nil {
		exitErr(err)
	}

	current := computeFingerprint(doc)

	if *write {
		if err := writeFingerprint(*fingerprintPath, current); err != nil {
			exitErr(err)
		}
		fmt.Printf("wrote fingerprint to %s\n", *fingerprintPath)
		return
	}

	baseline, err := loadFingerprint(*fingerprintPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			exitErr(fmt.Errorf("fingerprint missing (%s); run with -write", *fingerprintPath))
		}
		exitErr(err)
	}

	issues := diffFingerprints(baseline, current)
	if len(issues) > 0 {
		for _, issue := range issues {
			fmt.Println(issue)
		}
		exitFunc(1)
	}

	fmt.Println("entity-type fingerprint matches")
}

func loadSchema(path string) (schemaDoc, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // schema path stays within the repo workspace
	if err != nil {
		return schemaDoc{}, fmt.Errorf("read schema: %w", err)
	}
	var doc schemaDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return schemaDoc{}, fmt.Errorf("parse schema: %w", err)
	}
	return doc, nil
}

func computeFingerprint(doc schemaDoc) fingerprintDoc {
	fp := fingerprintDoc{
		Version: doc.Version,
		Enums:   make(map[string]map[string]int32, len(doc.Enums)),
	}
	for name, enum := range doc.Enums {
		bindings := make(map[string]int32, len(enum.Values))
		for _, v := range enum.Values {
			bindings[v.Name] = v.Value
		}
		fp.Enums[name] = bindings
	}
	return fp
}

func loadFingerprint(path string) (fingerprintDoc, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // fingerprint originates from the repo and is user-controlled
	if err != nil {
		return fingerprintDoc{}, err
	}
	var fp fingerprintDoc
	if err := json.Unmarshal(raw, &fp); err != nil {
		return fingerprintDoc{}, fmt.Errorf("parse fingerprint: %w", err)
	}
	return fp, nil
}

func writeFingerprint(path string, fp fingerprintDoc) error {
	data, err := json.MarshalIndent(fp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fingerprint: %w", err)
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write fingerprint: %w", err)
	}
	return nil
}

// diffFingerprints reports every change that would break decoders built
// against the baseline: removed enums, removed symbols, renumbered symbols,
// and codes reused under a new name. Appending values is allowed but must
// come with a version bump.
func diffFingerprints(old, updated fingerprintDoc) []string {
	var issues []string
	var added bool

	for enumName, oldValues := range old.Enums {
		newValues, ok := updated.Enums[enumName]
		if !ok {
			issues = append(issues, fmt.Sprintf("enum removed: %s", enumName))
			continue
		}
		oldByCode := make(map[int32]string, len(oldValues))
		for name, code := range oldValues {
			oldByCode[code] = name
			newCode, ok := newValues[name]
			switch {
			case !ok:
				issues = append(issues, fmt.Sprintf("enum %s value removed: %s (code %d)", enumName, name, code))
			case newCode != code:
				issues = append(issues, fmt.Sprintf("enum %s value renumbered: %s %d -> %d", enumName, name, code, newCode))
			}
		}
		for name, code := range newValues {
			if _, existed := oldValues[name]; existed {
				continue
			}
			added = true
			if prev, reused := oldByCode[code]; reused {
				issues = append(issues, fmt.Sprintf("enum %s code %d reused: %s -> %s", enumName, code, prev, name))
			}
		}
	}
	for enumName := range updated.Enums {
		if _, ok := old.Enums[enumName]; !ok {
			added = true
		}
	}

	if added && old.Version != "" && updated.Version == old.Version {
		issues = append(issues, fmt.Sprintf("values added without a schema version bump (still %s)", old.Version))
	}

	sort.Strings(issues)
	return issues
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, err)
	exitFunc(1)
}
