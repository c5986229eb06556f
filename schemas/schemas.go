// Package schemas embeds the JSON Schemas for .irtcal.yaml project files and
// YAML/JSON response datasets.
package schemas

import _ "embed"

//go:embed config.schema.json
var ConfigSchemaJSON string

//go:embed dataset.schema.json
var DatasetSchemaJSON string
