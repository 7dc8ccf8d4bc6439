package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sectorwars/aria-core/internal/infrastructure/config"
)

// NewConfigCommand creates the config command with subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage ARIA configuration settings.

Configuration is loaded from multiple sources with priority:
1. Environment variables (ARIA_* prefix)
2. Config file (config.yaml)
3. Default values

User preferences (default player) are stored in ~/.aria/config.json

Examples:
  aria config show
  aria config set-player p-1001
  aria config clear-player`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetPlayerCommand())
	cmd.AddCommand(newConfigClearPlayerCommand())

	return cmd
}

// newConfigShowCommand creates the config show subcommand
func newConfigShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long: `Display the current configuration settings.

Shows both system configuration and user preferences.

Example:
  aria config show`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig("")
			if err != nil {
				fmt.Printf("Warning: Failed to load config: %v\n", err)
				fmt.Println("Using default configuration.")
				cfg = config.LoadConfigOrDefault("")
			}

			userConfigHandler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}

			userCfg, err := userConfigHandler.Load()
			if err != nil {
				fmt.Printf("Warning: Failed to load user config: %v\n\n", err)
				userCfg = &config.UserConfig{}
			}

			fmt.Println("ARIA Configuration")
			fmt.Println("==================")
			fmt.Println()

			fmt.Println("User Preferences:")
			if userCfg.DefaultPlayerID != "" {
				fmt.Printf("  Default Player:   %s\n", userCfg.DefaultPlayerID)
			} else {
				fmt.Println("  Default Player:   (not set)")
			}
			fmt.Println()

			fmt.Println("System Configuration:")
			fmt.Printf("  Database:         %s\n", cfg.Database.Type)
			fmt.Printf("  API Address:      %s:%d\n", cfg.Server.Host, cfg.Server.Port)
			fmt.Printf("  Decay Rate:       %g/day\n", cfg.Intelligence.MemoryDecayRate)
			fmt.Printf("  Population Size:  %d\n", cfg.Intelligence.PopulationSize)
			fmt.Printf("  Min Observations: %d\n", cfg.Intelligence.MinObservations)
			fmt.Printf("  Cache TTL:        %s\n", cfg.Intelligence.CacheTTL)
			if cfg.Intelligence.EncryptionKey != "" {
				fmt.Println("  Encryption:       enabled (AES-256-GCM)")
			} else {
				fmt.Println("  Encryption:       disabled")
			}

			return nil
		},
	}

	return cmd
}

// newConfigSetPlayerCommand creates the config set-player subcommand
func newConfigSetPlayerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-player <player-id>",
		Short: "Set the default player",
		Long: `Set the default player used when --player is not given.

Example:
  aria config set-player p-1001`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userConfigHandler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}

			userCfg, err := userConfigHandler.Load()
			if err != nil {
				return fmt.Errorf("failed to load user config: %w", err)
			}

			userCfg.DefaultPlayerID = args[0]
			if err := userConfigHandler.Save(userCfg); err != nil {
				return fmt.Errorf("failed to save user config: %w", err)
			}

			fmt.Printf("Default player set to %s\n", args[0])
			return nil
		},
	}

	return cmd
}

// newConfigClearPlayerCommand creates the config clear-player subcommand
func newConfigClearPlayerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear-player",
		Short: "Clear the default player",
		RunE: func(cmd *cobra.Command, args []string) error {
			userConfigHandler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}

			userCfg, err := userConfigHandler.Load()
			if err != nil {
				return fmt.Errorf("failed to load user config: %w", err)
			}

			userCfg.DefaultPlayerID = ""
			if err := userConfigHandler.Save(userCfg); err != nil {
				return fmt.Errorf("failed to save user config: %w", err)
			}

			fmt.Println("Default player cleared")
			return nil
		},
	}

	return cmd
}
