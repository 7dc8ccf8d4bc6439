package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	playerFlag string
	verbose    bool
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aria",
		Short: "ARIA CLI - Inspect and manage per-player trading intelligence",
		Long: `ARIA CLI provides commands to inspect and manage the trading intelligence
the daemon accumulates for each player. Commands talk to the same database
the daemon uses, so results reflect live state.

Examples:
  aria memory list --player p-1001
  aria market observe --player p-1001 --port SOL-A3 --commodity ORE --buy 45 --sell 52
  aria market predict --player p-1001 --port SOL-A3 --commodity ORE
  aria dna seed --player p-1001
  aria dna evolve --player p-1001
  aria route plan --player p-1001 --start SOL-A3
  aria explore summary --player p-1001`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&playerFlag, "player", "p", "",
		"Player ID (falls back to the default set with 'aria config set-player')")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose output")

	// Add command groups
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewMemoryCommand())
	rootCmd.AddCommand(NewMarketCommand())
	rootCmd.AddCommand(NewPatternCommand())
	rootCmd.AddCommand(NewDNACommand())
	rootCmd.AddCommand(NewRouteCommand())
	rootCmd.AddCommand(NewExploreCommand())
	rootCmd.AddCommand(NewPurgeCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
