// Program entitytypevalidate ensures the entity-type schema stays structurally valid.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"
)

type enumValueSpec struct {
	Name        string `json:"name"`
	Value       *int64 `json:"value"`
	Description string `json:"description"`
	Acronym     bool   `json:"acronym"`
}

type enumSpec struct {
	Description string          `json:"description"`
	Values      []enumValueSpec `json:"values"`
}

type metadataSpec struct {
	Source string `json:"source"`
	Status string `json:"status"`
}

type schemaDoc struct {
	Version  string              `json:"version"`
	Metadata metadataSpec        `json:"metadata"`
	Enums    map[string]enumSpec `json:"enums"`
}

var (
	exitFn              = os.Exit
	errWriter io.Writer = os.Stderr

	semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	namePattern   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
)

func main() {
	path := "docs/schema/entity-types.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	if err := validate(path); err != nil {
		exitErr(err.Error())
	}

	fmt.Println("entity-type validation: OK")
}

func validate(path string) error {
	//nolint:gosec // path is the first command-line argument.
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	var doc schemaDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse schema JSON: %w", err)
	}

	var errs []string

	if !semverPattern.MatchString(doc.Version) {
		errs = append(errs, fmt.Sprintf("version %q must be set (semver expected)", doc.Version))
	}
	if doc.Metadata.Source == "" || doc.Metadata.Status == "" {
		errs = append(errs, "metadata must declare source and status")
	}
	if len(doc.Enums) == 0 {
		errs = append(errs, "enums must not be empty")
	}

	for name, enum := range doc.Enums {
		errs = append(errs, validateEnum(name, enum)...)
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func validateEnum(name string, enum enumSpec) []string {
	var errs []string
	if len(enum.Values) == 0 {
		return []string{fmt.Sprintf("enum %q must include at least one value", name)}
	}
	folded := make(map[string]string, len(enum.Values))
	codes := make(map[int64]string, len(enum.Values))
	for i, v := range enum.Values {
		label := v.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		if !namePattern.MatchString(v.Name) {
			errs = append(errs, fmt.Sprintf("enum %q value %s must be an identifier", name, label))
		}
		// Symbols are parsed case-insensitively, so they must stay distinct after folding.
		if other, dup := folded[strings.ToLower(v.Name)]; dup {
			errs = append(errs, fmt.Sprintf("enum %q values %s and %s collide", name, other, label))
		}
		folded[strings.ToLower(v.Name)] = label

		if v.Value == nil {
			errs = append(errs, fmt.Sprintf("enum %q value %s must declare a code", name, label))
			continue
		}
		code := *v.Value
		if code < 0 || code > math.MaxInt32 {
			errs = append(errs, fmt.Sprintf("enum %q value %s code %d outside 0..%d", name, label, code, math.MaxInt32))
		}
		if other, dup := codes[code]; dup {
			errs = append(errs, fmt.Sprintf("enum %q values %s and %s share code %d", name, other, label, code))
		}
		codes[code] = label

		if strings.TrimSpace(v.Description) == "" {
			errs = append(errs, fmt.Sprintf("enum %q value %s must have a description", name, label))
		}
	}
	return errs
}

func exitErr(msg string) {
	if _, err := fmt.Fprintf(errWriter, "entity-type validation failed: %s\n", msg); err != nil {
		//nolint:errcheck // best-effort secondary logging; exiting regardless.
		fmt.Fprintf(os.Stderr, "entity-type validation failed (write error: %v)\n", err)
	}
	exitFn(1)
}
