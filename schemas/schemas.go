// Package schemas holds the JSON Schemas of stored artifacts.
package schemas

import "embed"

// StructureSchema is the file name of the structure template schema
const StructureSchema = "structure.schema.json"

// FS contains every schema file in this directory
//
//go:embed *.schema.json
var FS embed.FS
