package schema

import (
	"embed"
	"fmt"
)

// schemaFiles embeds the three JSON Schema documents that define the
// structural shape of the planning artifacts. This mirrors the teacher's
// go:embed pattern for bundling schema source into the binary
// (internal/schema/embed.go previously embedded CUE documents; the
// validator's Schema Store needs JSON Schema keyword semantics instead,
// see SPEC_FULL.md's DOMAIN STACK section).
//
//go:embed schemas/*.schema.json
var schemaFiles embed.FS

// schemaFileNames maps a FileType to its embedded schema document name.
var schemaFileNames = map[FileType]string{
	FileTypeState:        "schemas/state.schema.json",
	FileTypeTaskRegistry: "schemas/task-registry.schema.json",
	FileTypePlan:         "schemas/plan.schema.json",
}

// GetSchemaSource returns the embedded raw JSON Schema source for the
// given file type, or an error if the file type is unknown.
func GetSchemaSource(ft FileType) ([]byte, error) {
	name, ok := schemaFileNames[ft]
	if !ok {
		return nil, fmt.Errorf("unknown file type: %q", ft)
	}
	return schemaFiles.ReadFile(name)
}

// ListFileTypes returns all file types with an embedded schema, in the
// fixed order state, task-registry, plan.
func ListFileTypes() []FileType {
	return []FileType{FileTypeState, FileTypeTaskRegistry, FileTypePlan}
}
