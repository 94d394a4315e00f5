package main

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

const typeInteger = "integer"

type openAPIDoc struct {
	OpenAPI    string            `yaml:"openapi"`
	Info       openAPIInfo       `yaml:"info"`
	Components openAPIComponents `yaml:"components"`
}

type openAPIInfo struct {
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

type openAPIComponents struct {
	Schemas map[string]openAPIEnum `yaml:"schemas"`
}

// openAPIEnum describes an integer enum. Symbols travel in the x-enum-*
// extensions because the wire value is the code.
type openAPIEnum struct {
	Type         string   `yaml:"type"`
	Format       string   `yaml:"format"`
	Description  string   `yaml:"description,omitempty"`
	Enum         []int32  `yaml:"enum"`
	VarNames     []string `yaml:"x-enum-varnames"`
	Descriptions []string `yaml:"x-enum-descriptions"`
}

// generateOpenAPI renders every enum as an OpenAPI 3.1 component schema.
func generateOpenAPI(doc schemaDoc) ([]byte, error) {
	names := sortedKeys(doc.Enums)
	if len(names) == 0 {
		return nil, fmt.Errorf("schema declares no enums")
	}
	api := openAPIDoc{
		OpenAPI:    "3.1.0",
		Info:       openAPIInfo{Title: "streamcorpus entity types", Version: doc.Version},
		Components: openAPIComponents{Schemas: make(map[string]openAPIEnum, len(names))},
	}
	for _, name := range names {
		values, err := orderedValues(name, doc.Enums[name])
		if err != nil {
			return nil, err
		}
		schema := openAPIEnum{Type: typeInteger, Format: "int32", Description: doc.Enums[name].Description}
		for _, v := range values {
			schema.Enum = append(schema.Enum, v.Value)
			schema.VarNames = append(schema.VarNames, v.Name)
			schema.Descriptions = append(schema.Descriptions, v.Description)
		}
		api.Components.Schemas[toCamel(name)] = schema
	}

	var buf bytes.Buffer
	buf.WriteString("# " + generatedHeader + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(api); err != nil {
		return nil, fmt.Errorf("encode openapi: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode openapi: %w", err)
	}
	return buf.Bytes(), nil
}
