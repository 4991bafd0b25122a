package main

import (
	"errors"
	"os"

	"github.com/your-org/sow/internal/commands"
	"github.com/your-org/sow/internal/exitcode"
)

func main() {
	rootCmd := commands.NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		var coder exitcode.Coder
		if errors.As(err, &coder) {
			os.Exit(int(coder.ExitCode()))
		}
		os.Exit(1)
	}
}
