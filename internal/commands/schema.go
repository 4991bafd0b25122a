package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/your-org/sow/internal/schema"
)

// NewSchemaCmd creates the schema command.
func NewSchemaCmd() *cobra.Command {
	var fileType string
	var exportPath string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "View embedded JSON Schema documents",
		Long: `View the embedded JSON Schema documents that define .planning/ file formats.

By default, lists all available file types. Use --type to show a specific
schema, and --export to save it to a file.`,
		Example: `  # List all available schemas
  sow schema

  # Show the schema for a file type
  sow schema --type state

  # Export a schema to file
  sow schema --type task-registry --export task-registry.schema.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd, fileType, exportPath)
		},
	}

	cmd.Flags().StringVar(&fileType, "type", "", "File type: state, task-registry, plan")
	cmd.Flags().StringVar(&exportPath, "export", "", "Export schema to file (requires --type)")

	return cmd
}

func runSchema(cmd *cobra.Command, fileType, exportPath string) error {
	if exportPath != "" && fileType == "" {
		return fmt.Errorf("--export requires --type to be specified")
	}

	if fileType == "" {
		return listSchemas(cmd)
	}

	src, err := schema.GetSchemaSource(schema.FileType(fileType))
	if err != nil {
		return fmt.Errorf("schema %q not found. Available types: %s", fileType, joinFileTypes(schema.ListFileTypes()))
	}

	if exportPath != "" {
		return exportSchema(cmd, fileType, src, exportPath)
	}
	return showSchema(cmd, fileType, src)
}

func listSchemas(cmd *cobra.Command) error {
	fmt.Fprintf(cmd.OutOrStdout(), "Available schemas:\n\n")
	for _, ft := range schema.ListFileTypes() {
		fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", ft)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nUse 'sow schema --type <file-type>' to view a specific schema\n")
	return nil
}

func showSchema(cmd *cobra.Command, fileType string, content []byte) error {
	fmt.Fprintf(cmd.OutOrStdout(), "Schema: %s\n\n", fileType)
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", content)
	return nil
}

func exportSchema(cmd *cobra.Command, fileType string, content []byte, exportPath string) error {
	dir := filepath.Dir(exportPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(exportPath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write schema to %s: %w", exportPath, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema %q exported to %s\n", fileType, exportPath)
	return nil
}

func joinFileTypes(types []schema.FileType) string {
	out := ""
	for i, t := range types {
		if i > 0 {
			out += ", "
		}
		out += string(t)
	}
	return out
}
