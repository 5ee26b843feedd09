// Package schemas embeds the JSON Schema definitions for convey
// configuration files.
package schemas

import _ "embed"

// PipelineV1Schema is the JSON Schema for convey.yaml (v1).
//
//go:embed pipeline-v1.schema.json
var PipelineV1Schema []byte
