// Program entitytypegenerate reads docs/schema/entity-types.json and emits Go enumerations, SQL bundles and OpenAPI components.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const generatedHeader = "Code generated by internal/tools/entitytype/generate. DO NOT EDIT."

var exitFunc = os.Exit

type enumValueSpec struct {
	Name        string `json:"name"`
	Value       int32  `json:"value"`
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

func main() {
	schemaPath := flag.String("schema", "docs/schema/entity-types.json", "path to the entity type schema")
	outPath := flag.String("out", "pkg/streamcorpus/entity_type_gen.go", "output file for generated Go code")
	pkgName := flag.String("package", "streamcorpus", "package clause of the generated Go file")
	sqlPostgresPath := flag.String("sql-postgres", "", "output file for generated Postgres DDL (optional)")
	sqlSQLitePath := flag.String("sql-sqlite", "", "output file for generated SQLite DDL (optional)")
	openAPIPath := flag.String("openapi", "", "output file for generated OpenAPI components (optional)")
	flag.Parse()

	doc, err := loadSchema(*schemaPath)
	if err != nil {
		exitErr(err)
	}

	code, err := generateCode(doc, *pkgName)
	if err != nil {
		exitErr(err)
	}
	if err := writeFile(*outPath, code); err != nil {
		exitErr(err)
	}

	if strings.TrimSpace(*sqlPostgresPath) != "" || strings.TrimSpace(*sqlSQLitePath) != "" {
		pgSQL, sqliteSQL, err := generateSQL(doc)
		if err != nil {
			exitErr(err)
		}
		if path := strings.TrimSpace(*sqlPostgresPath); path != "" {
			if err := writeFile(path, pgSQL); err != nil {
				exitErr(err)
			}
			fmt.Printf("generated %s from %s\n", path, *schemaPath)
		}
		if path := strings.TrimSpace(*sqlSQLitePath); path != "" {
			if err := writeFile(path, sqliteSQL); err != nil {
				exitErr(err)
			}
			fmt.Printf("generated %s from %s\n", path, *schemaPath)
		}
	}

	if path := strings.TrimSpace(*openAPIPath); path != "" {
		spec, err := generateOpenAPI(doc)
		if err != nil {
			exitErr(err)
		}
		if err := writeFile(path, spec); err != nil {
			exitErr(err)
		}
		fmt.Printf("generated %s from %s\n", path, *schemaPath)
	}

	fmt.Printf("generated %s from %s\n", *outPath, *schemaPath)
}

func loadSchema(path string) (schemaDoc, error) {
	//nolint:gosec // generator intentionally reads caller-provided schema path.
	raw, err := os.ReadFile(path)
	if err != nil {
		return schemaDoc{}, fmt.Errorf("read schema: %w", err)
	}

	var doc schemaDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return schemaDoc{}, fmt.Errorf("parse schema: %w", err)
	}

	return doc, nil
}

func generateCode(doc schemaDoc, pkg string) ([]byte, error) {
	if strings.TrimSpace(pkg) == "" {
		return nil, fmt.Errorf("package name must not be empty")
	}
	names := sortedKeys(doc.Enums)
	if len(names) == 0 {
		return nil, fmt.Errorf("schema declares no enums")
	}

	var body strings.Builder
	for _, name := range names {
		if err := writeEnum(&body, name, doc.Enums[name]); err != nil {
			return nil, err
		}
	}

	var file strings.Builder
	file.WriteString("// " + generatedHeader + "\n\n")
	fmt.Fprintf(&file, "package %s\n\n", pkg)
	file.WriteString("import \"strings\"\n\n")
	file.WriteString(body.String())

	formatted, err := format.Source([]byte(file.String()))
	if err != nil {
		return nil, fmt.Errorf("format generated code: %w", err)
	}
	return formatted, nil
}

func writeEnum(body *strings.Builder, name string, enum enumSpec) error {
	values, err := orderedValues(name, enum)
	if err != nil {
		return err
	}
	typeName := toCamel(name)
	prefix := lowerFirst(typeName)
	dense := isDense(values)

	fmt.Fprintf(body, "// %s enumerates values for %s.\n", typeName, name)
	if desc := strings.TrimSpace(enum.Description); desc != "" {
		fmt.Fprintf(body, "//\n// %s\n", desc)
	}
	fmt.Fprintf(body, "type %s int32\n\n", typeName)

	body.WriteString("const (\n")
	for i, v := range values {
		if i > 0 {
			body.WriteString("\n")
		}
		constName := typeName + constSuffix(v)
		fmt.Fprintf(body, "\t// %s is %s", constName, v.Name)
		if desc := strings.TrimSpace(v.Description); desc != "" {
			fmt.Fprintf(body, " (%s)", desc)
		}
		body.WriteString(".\n")
		fmt.Fprintf(body, "\t%s %s = %d\n", constName, typeName, v.Value)
	}
	body.WriteString(")\n\n")

	symbols := make([]string, len(values))
	descs := make([]string, len(values))
	consts := make([]string, len(values))
	for i, v := range values {
		symbols[i] = v.Name
		descs[i] = strings.TrimSpace(v.Description)
		consts[i] = typeName + constSuffix(v)
	}

	if dense {
		writeStringArray(body, prefix+"Names", symbols)
		writeStringArray(body, prefix+"Descriptions", descs)
	} else {
		writeStringMap(body, prefix+"Names", typeName, consts, symbols)
		writeStringMap(body, prefix+"Descriptions", typeName, consts, descs)
	}

	fmt.Fprintf(body, "var %sValues = []%s{\n", prefix, typeName)
	for _, c := range consts {
		fmt.Fprintf(body, "\t%s,\n", c)
	}
	body.WriteString("}\n\n")

	writeLookups(body, typeName, prefix, dense)
	return nil
}

func writeLookups(body *strings.Builder, typeName, prefix string, dense bool) {
	fmt.Fprintf(body, "// %sFromCode returns the %s declared with code and reports whether one exists.\n", typeName, typeName)
	fmt.Fprintf(body, "func %sFromCode(code int32) (%s, bool) {\n", typeName, typeName)
	if dense {
		fmt.Fprintf(body, "\tif code < 0 || int(code) >= len(%sNames) {\n", prefix)
		body.WriteString("\t\treturn 0, false\n\t}\n")
	} else {
		fmt.Fprintf(body, "\tif _, ok := %sNames[%s(code)]; !ok {\n", prefix, typeName)
		body.WriteString("\t\treturn 0, false\n\t}\n")
	}
	fmt.Fprintf(body, "\treturn %s(code), true\n}\n\n", typeName)

	body.WriteString("// Code returns the integer discriminant of e used on the wire.\n")
	fmt.Fprintf(body, "func (e %s) Code() int32 {\n\treturn int32(e)\n}\n\n", typeName)

	writeTableAccessor(body, typeName, "symbol", prefix+"Names", dense)
	writeTableAccessor(body, typeName, "description", prefix+"Descriptions", dense)

	fmt.Fprintf(body, "// %ss returns every declared %s in code order.\n", typeName, typeName)
	fmt.Fprintf(body, "func %ss() []%s {\n", typeName, typeName)
	fmt.Fprintf(body, "\tout := make([]%s, len(%sValues))\n", typeName, prefix)
	fmt.Fprintf(body, "\tcopy(out, %sValues)\n\treturn out\n}\n\n", prefix)

	fmt.Fprintf(body, "func parse%sName(name string) (%s, bool) {\n", typeName, typeName)
	fmt.Fprintf(body, "\tfor _, v := range %sValues {\n", prefix)
	body.WriteString("\t\tif s, _ := v.symbol(); s == name {\n\t\t\treturn v, true\n\t\t}\n\t}\n")
	fmt.Fprintf(body, "\tfor _, v := range %sValues {\n", prefix)
	body.WriteString("\t\tif s, _ := v.symbol(); strings.EqualFold(s, name) {\n\t\t\treturn v, true\n\t\t}\n\t}\n")
	body.WriteString("\treturn 0, false\n}\n\n")
}

func writeTableAccessor(body *strings.Builder, typeName, method, table string, dense bool) {
	fmt.Fprintf(body, "func (e %s) %s() (string, bool) {\n", typeName, method)
	if dense {
		fmt.Fprintf(body, "\tif e < 0 || int(e) >= len(%s) {\n", table)
		body.WriteString("\t\treturn \"\", false\n\t}\n")
		fmt.Fprintf(body, "\treturn %s[e], true\n}\n\n", table)
		return
	}
	fmt.Fprintf(body, "\tv, ok := %s[e]\n\treturn v, ok\n}\n\n", table)
}

func writeStringArray(body *strings.Builder, name string, values []string) {
	fmt.Fprintf(body, "var %s = [...]string{\n", name)
	for _, v := range values {
		fmt.Fprintf(body, "\t%q,\n", v)
	}
	body.WriteString("}\n\n")
}

func writeStringMap(body *strings.Builder, name, typeName string, keys, values []string) {
	fmt.Fprintf(body, "var %s = map[%s]string{\n", name, typeName)
	for i := range keys {
		fmt.Fprintf(body, "\t%s: %q,\n", keys[i], values[i])
	}
	body.WriteString("}\n\n")
}

// orderedValues returns the enum values sorted by code, rejecting duplicate names or codes.
func orderedValues(name string, enum enumSpec) ([]enumValueSpec, error) {
	if len(enum.Values) == 0 {
		return nil, fmt.Errorf("enum %s declares no values", name)
	}
	seenNames := make(map[string]struct{}, len(enum.Values))
	seenCodes := make(map[int32]string, len(enum.Values))
	values := make([]enumValueSpec, 0, len(enum.Values))
	for _, v := range enum.Values {
		if strings.TrimSpace(v.Name) == "" {
			return nil, fmt.Errorf("enum %s has a value without a name", name)
		}
		if _, dup := seenNames[v.Name]; dup {
			return nil, fmt.Errorf("enum %s value %s declared twice", name, v.Name)
		}
		if other, dup := seenCodes[v.Value]; dup {
			return nil, fmt.Errorf("enum %s values %s and %s share code %d", name, other, v.Name, v.Value)
		}
		seenNames[v.Name] = struct{}{}
		seenCodes[v.Value] = v.Name
		values = append(values, v)
	}
	sort.SliceStable(values, func(i, j int) bool { return values[i].Value < values[j].Value })
	return values, nil
}

// isDense reports whether the sorted codes are exactly 0..n-1.
func isDense(sorted []enumValueSpec) bool {
	for i, v := range sorted {
		if v.Value != int32(i) {
			return false
		}
	}
	return true
}

func constSuffix(v enumValueSpec) string {
	if v.Acronym {
		return strings.ToUpper(strings.ReplaceAll(v.Name, "_", ""))
	}
	return toCamel(v.Name)
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeFile(path string, data []byte) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("output path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func toCamel(input string) string {
	if input == "" {
		return ""
	}
	parts := strings.FieldsFunc(input, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	for i, p := range parts {
		parts[i] = applyInitialisms(capitalize(p))
	}
	return strings.Join(parts, "")
}

func lowerFirst(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	if len(s) == 1 {
		return strings.ToUpper(s)
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func applyInitialisms(part string) string {
	switch strings.ToLower(part) {
	case "id":
		return "ID"
	case "url":
		return "URL"
	case "uuid":
		return "UUID"
	default:
		return part
	}
}

func exitErr(err error) {
	if err == nil {
		return
	}
	//nolint:forbidigo // generator writes to stderr on failure.
	fmt.Fprintln(os.Stderr, err)
	exitFunc(1)
}
