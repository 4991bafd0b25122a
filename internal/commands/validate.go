package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/your-org/sow/internal/exitcode"
	"github.com/your-org/sow/internal/pipeline"
	"github.com/your-org/sow/internal/schema"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	var fileType string
	var stopOnFirstError bool
	var project string

	cmd := &cobra.Command{
		Use:   "validate [flags] <file-pattern>",
		Short: "Validate planning documents against the four-layer pipeline",
		Long: `Validate .planning/ files through the schema, semantic, referential, and
state-machine layers, in that fixed order.

Auto-detects file type from path or use --type flag. Supports glob
patterns for multiple files.

Type Detection:
  .planning/STATE.json          → state
  .planning/TASKS.json          → task-registry
  .planning/plans/*.plan.json   → plan`,
		Example: `  # Auto-detect type
  sow validate .planning/STATE.json

  # Explicit type with glob
  sow validate --type plan '.planning/plans/*.plan.json'

  # Validate a file with access to sibling state for cross-checks
  sow validate --project . .planning/TASKS.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], fileType, project, stopOnFirstError)
		},
	}

	cmd.Flags().StringVar(&fileType, "type", "", "File type: state, task-registry, plan")
	cmd.Flags().StringVar(&project, "project", ".", "Project root, used to resolve cross-file references")
	cmd.Flags().BoolVar(&stopOnFirstError, "stop-on-first-error", true, "Halt at the first failing layer")

	return cmd
}

func runValidate(cmd *cobra.Command, pattern, explicitType, project string, stopOnFirstError bool) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}
	if len(files) == 0 {
		files = []string{pattern}
	}

	opts := pipeline.Options{StopOnFirstError: stopOnFirstError}
	runner := pipeline.NewRunner()
	ctx := cmd.Context()

	validCount, invalidCount := 0, 0
	worstExit := exitcode.Success

	for _, file := range files {
		ft := schema.FileType(explicitType)
		if ft == "" {
			ft = pipeline.DetectFileType(file)
		}

		fr := runner.RunValidationOnFile(ctx, project, file, ft, opts)
		if fr.Result.Valid {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", file)
			validCount++
			continue
		}

		invalidCount++
		if worstExit == exitcode.Success || fr.Result.ExitCode < worstExit {
			worstExit = fr.Result.ExitCode
		}
		fmt.Fprintf(cmd.OutOrStderr(), "✗ %s (exit %d: %s)\n", file, fr.Result.ExitCode, exitcode.Name(fr.Result.ExitCode))
		for _, lr := range fr.Result.LayerResults {
			for _, e := range lr.Errors() {
				fmt.Fprintf(cmd.OutOrStderr(), "  [%s] %s: %s\n", lr.Layer(), e.Code, e.Message)
			}
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n")
	if invalidCount == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "All %d file(s) valid\n", validCount)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStderr(), "%d valid, %d invalid\n", validCount, invalidCount)
	return &exitcode.CommandError{
		Code: worstExit,
		Err:  fmt.Errorf("validation failed for %d file(s) (exit %d: %s)", invalidCount, worstExit, exitcode.Name(worstExit)),
	}
}
