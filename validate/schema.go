// Package validate provides JSON Schema and semantic validation for
// convey pipeline configurations.
package validate

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/conveyci/convey/schemas"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

var (
	compiledSchema *gojsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

func getSchema() (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		loader := gojsonschema.NewBytesLoader(schemas.PipelineV1Schema)
		compiledSchema, compileErr = gojsonschema.NewSchema(loader)
	})
	return compiledSchema, compileErr
}

// ValidatePipelineYAML validates raw convey.yaml bytes against the
// pipeline v1 schema. It returns a slice of validation error
// descriptions and an error if the document cannot be parsed or the
// schema fails to compile.
func ValidatePipelineYAML(data []byte) ([]string, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing pipeline config: %w", err)
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("converting pipeline config to JSON: %w", err)
	}

	schema, err := getSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling pipeline schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("validating pipeline config: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	return errs, nil
}
