// Package schemas embeds the JSON Schemas tuneval validates against.
package schemas

import _ "embed"

// RecordSchemaJSON describes one line of a training or evaluation JSONL file.
//
//go:embed record.schema.json
var RecordSchemaJSON string

// ConfigSchemaJSON describes .tuneval.yaml.
//
//go:embed config.schema.json
var ConfigSchemaJSON string
