package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/your-org/sow/internal/config"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sow",
		Short: "AI-powered system of work",
		Long: `sow - Planning document validation for AI agent workflows

sow validates .planning/ documents (STATE.json, TASKS.json, plan files)
through a four-layer pipeline: structural schema, semantic field rules,
cross-reference integrity, and state-machine transition checks. It also
maintains the project's append-only audit log and exposes checkpoint
create/verify for caller workflows that need to detect drift.`,
		Version:      config.Version,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress output")
	rootCmd.PersistentFlags().Bool("verbose", false, "Verbose output")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colors")

	// Add subcommands
	rootCmd.AddCommand(NewVersionCmd())
	rootCmd.AddCommand(NewValidateCmd())
	rootCmd.AddCommand(NewSchemaCmd())
	rootCmd.AddCommand(NewAuditCmd())
	rootCmd.AddCommand(NewCheckpointCmd())

	return rootCmd
}

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sow %s\n", config.Version)
			if config.BuildDate != "unknown" {
				fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", config.BuildDate)
			}
			if config.Commit != "none" {
				fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", config.Commit)
			}
		},
	}
}
