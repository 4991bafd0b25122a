package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/your-org/sow/internal/audit"
)

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the project's append-only audit log",
		Long:  `Read and filter the .planning/AUDIT.jsonl record of validation outcomes, state changes, and decisions.`,
	}

	cmd.AddCommand(newAuditShowCmd())
	return cmd
}

func newAuditShowCmd() *cobra.Command {
	var project string
	var action string
	var taskID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show audit log entries",
		Example: `  # Show the whole log
  sow audit show --project .

  # Show only entries for one task
  sow audit show --task-id T001

  # Show only validation failures, as JSON
  sow audit show --action validation_failed --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := audit.ReadAll(project)
			if err != nil {
				return fmt.Errorf("read audit log: %w", err)
			}

			var filtered []audit.Entry
			for _, e := range entries {
				if action != "" && string(e.Action) != action {
					continue
				}
				if taskID != "" && e.TaskID != taskID {
					continue
				}
				filtered = append(filtered, e)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(filtered)
			}

			for _, e := range filtered {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-20s  %s\n", e.Timestamp, e.Action, e.Message)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d entries\n", len(filtered))
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", ".", "Project root containing .planning/AUDIT.jsonl")
	cmd.Flags().StringVar(&action, "action", "", "Filter by action")
	cmd.Flags().StringVar(&taskID, "task-id", "", "Filter by task id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit entries as a JSON array")

	return cmd
}
