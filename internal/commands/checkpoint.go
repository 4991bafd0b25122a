package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/your-org/sow/internal/exitcode"
	"github.com/your-org/sow/internal/hooks"
	"github.com/your-org/sow/internal/schema"
)

// NewCheckpointCmd creates the checkpoint command.
func NewCheckpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Create and verify project validation checkpoints",
		Long: `Capture the project's current validation state and later verify
whether anything has drifted since.

Checkpoints are not persisted between invocations of this command; use
"checkpoint create" and "checkpoint verify" within the same calling
process (e.g. a hook script) rather than across separate sow runs.`,
	}

	cmd.AddCommand(newCheckpointCreateCmd())
	cmd.AddCommand(newCheckpointVerifyCmd())
	return cmd
}

func newCheckpointCreateCmd() *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Validate the project and report its current state",
		Example: `  sow checkpoint create --project .`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cp, err := hooks.CreateValidationCheckpoint(cmd.Context(), project, hooks.DefaultOptions())
			if err != nil {
				return err
			}

			type createOutput struct {
				Timestamp string `json:"timestamp"`
				Result hooks.HookValidationResult `json:"result"`
				PermittedNextPhaseStates []string `json:"permitted_next_phase_states,omitempty"`
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(createOutput{
				Timestamp: cp.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
				Result: cp.InitialResult,
				PermittedNextPhaseStates: permittedNextPhaseStates(project),
			})
		},
	}

	cmd.Flags().StringVar(&project, "project", ".", "Project root to validate")
	return cmd
}

// permittedNextPhaseStates reads the project's STATE.json and renders
// the phase statuses reachable from its current_position.status via
// the advisory checkpoint machine, for display in checkpoint output.
// A missing or unreadable STATE.json yields no permitted states rather
// than failing the command, since a checkpoint is still meaningful for
// a project with no STATE.json yet.
func permittedNextPhaseStates(projectPath string) []string {
	raw, err := os.ReadFile(filepath.Join(projectPath, ".planning", "STATE.json"))
	if err != nil {
		return nil
	}
	var doc schema.StateDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	return hooks.PermittedNextPhaseStates(doc.CurrentPosition.Status)
}

func newCheckpointVerifyCmd() *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Re-validate the project and report whether anything changed",
		Long: `Creates a fresh checkpoint and immediately verifies it against itself.

This is the one-shot form, useful for a single "has this project
drifted from a known-good baseline right now" check. A caller that
needs to compare against an earlier point in time should use the
hooks package's Checkpoint.Verify directly, passing the retained
Checkpoint handle from an earlier create.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cp, err := hooks.CreateValidationCheckpoint(cmd.Context(), project, hooks.DefaultOptions())
			if err != nil {
				return err
			}
			v, err := cp.Verify(cmd.Context())
			if err != nil {
				return err
			}

			type verifyOutput struct {
				hooks.CheckpointVerification
				PermittedNextPhaseStates []string `json:"permitted_next_phase_states,omitempty"`
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			encodeErr := enc.Encode(verifyOutput{
				CheckpointVerification: v,
				PermittedNextPhaseStates: permittedNextPhaseStates(project),
			})
			if encodeErr != nil {
				return encodeErr
			}
			if !v.Valid {
				return &exitcode.CommandError{Code: v.CurrentResult.ExitCode, Err: fmt.Errorf("project validation failed")}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", ".", "Project root to validate")
	return cmd
}
