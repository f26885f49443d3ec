package sidecar

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schema.json
var schemaJSON []byte

var (
	compiledSchema *jsonschema.Schema
	compileErr     error
	compileOnce    sync.Once
)

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiledSchema, compileErr = compiler.Compile(schemaJSON)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile sidecar schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// Validate checks the document against the sidecar schema.
func (d Document) Validate() error {
	data, err := d.Encode()
	if err != nil {
		return err
	}
	return ValidateJSON(data)
}

// ValidateField checks a single field against its schema entry. Other
// fields are left to Validate. An absent field passes.
func (d Document) ValidateField(field string) error {
	v, ok := d[field]
	if !ok {
		return nil
	}
	return Document{field: v}.Validate()
}

// ValidateJSON checks raw sidecar JSON against the sidecar schema.
func ValidateJSON(data []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("schema validation failed: %v", result.Errors)
}
