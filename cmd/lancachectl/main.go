package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lancache-tools/lancachectl/internal/interfaces/cli/guests"
	"github.com/lancache-tools/lancachectl/internal/interfaces/cli/sessions"
	"github.com/lancache-tools/lancachectl/internal/interfaces/cli/watch"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lancachectl",
		Short: "lancachectl - administer a lancache manager from the terminal",
		Long: `lancachectl talks to a lancache manager's admin API and push channel to
inspect sessions, edit preferences, and manage guest defaults.`,
	}

	rootCmd.AddCommand(
		sessions.NewCommand(),
		guests.NewCommand(),
		watch.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
