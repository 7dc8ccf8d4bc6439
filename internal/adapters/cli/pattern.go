package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sectorwars/aria-core/internal/adapters/persistence"
	"github.com/sectorwars/aria-core/internal/domain/intel"
	"github.com/sectorwars/aria-core/internal/infrastructure/database"
)

// NewPatternCommand creates the pattern command with subcommands
func NewPatternCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pattern",
		Short: "Derived price patterns",
		Long: `Inspect and recompute the patterns derived from the player's price
ledgers.

A pattern summarizes one (port, commodity) ledger: its kind, how volatile
the prices are, and the expected next price. Patterns are normally
refreshed automatically when observations are recorded; refresh forces a
recomputation from the current ledger.

Examples:
  aria pattern show --port SOL-A3 --commodity ORE
  aria pattern refresh --port SOL-A3 --commodity ORE`,
	}

	cmd.AddCommand(newPatternShowCommand())
	cmd.AddCommand(newPatternRefreshCommand())

	return cmd
}

// newPatternShowCommand creates the pattern show subcommand
func newPatternShowCommand() *cobra.Command {
	var (
		portID      string
		commodityID string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored pattern for one commodity at one port",
		Long: `Show the latest pattern derived for a commodity at a port.

Example:
  aria pattern show --port SOL-A3 --commodity ORE`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPatternShow(portID, commodityID)
		},
	}

	cmd.Flags().StringVar(&portID, "port", "", "Port identifier (required)")
	cmd.Flags().StringVar(&commodityID, "commodity", "", "Commodity identifier (required)")
	cmd.MarkFlagRequired("port")
	cmd.MarkFlagRequired("commodity")

	return cmd
}

// newPatternRefreshCommand creates the pattern refresh subcommand
func newPatternRefreshCommand() *cobra.Command {
	var (
		portID      string
		commodityID string
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Recompute the pattern from the current ledger",
		Long: `Recompute the pattern for a commodity at a port from the full
recorded ledger, replacing the stored one.

Example:
  aria pattern refresh --port SOL-A3 --commodity ORE`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPatternRefresh(portID, commodityID)
		},
	}

	cmd.Flags().StringVar(&portID, "port", "", "Port identifier (required)")
	cmd.Flags().StringVar(&commodityID, "commodity", "", "Commodity identifier (required)")
	cmd.MarkFlagRequired("port")
	cmd.MarkFlagRequired("commodity")

	return cmd
}

// runPatternShow executes the pattern show command
func runPatternShow(portID, commodityID string) error {
	playerID, err := resolvePlayer()
	if err != nil {
		return err
	}

	_, db, err := connect()
	if err != nil {
		return err
	}
	defer database.Close(db)

	patternRepo := persistence.NewGormPatternRepository(db)

	ctx := context.Background()
	pattern, err := patternRepo.Find(ctx, playerID, portID, commodityID)
	if err != nil {
		if errors.Is(err, intel.ErrInsufficientData) {
			fmt.Printf("No pattern derived for %s at %s yet.\n", commodityID, portID)
			return nil
		}
		return fmt.Errorf("failed to load pattern: %w", err)
	}

	displayPattern(portID, commodityID, pattern)

	return nil
}

// runPatternRefresh executes the pattern refresh command
func runPatternRefresh(portID, commodityID string) error {
	playerID, err := resolvePlayer()
	if err != nil {
		return err
	}

	cfg, db, err := connect()
	if err != nil {
		return err
	}
	defer database.Close(db)

	observationRepo := persistence.NewGormObservationRepository(db)
	patternRepo := persistence.NewGormPatternRepository(db)
	recognizer := intel.NewRecognizer(cfg.Intelligence.MinObservations)

	ctx := context.Background()
	observations, err := observationRepo.History(ctx, playerID, portID, commodityID, 0)
	if err != nil {
		return fmt.Errorf("failed to load price ledger: %w", err)
	}

	pattern, err := recognizer.Analyze(playerID, portID, commodityID, observations, time.Now())
	if err != nil {
		if errors.Is(err, intel.ErrInsufficientData) {
			fmt.Printf("Not enough observations for %s at %s: %d recorded, %d required\n",
				commodityID, portID, len(observations), recognizer.MinSampleSize())
			return nil
		}
		return fmt.Errorf("failed to derive pattern: %w", err)
	}

	if err := patternRepo.Upsert(ctx, pattern); err != nil {
		return fmt.Errorf("failed to store pattern: %w", err)
	}

	displayPattern(portID, commodityID, pattern)

	return nil
}

// displayPattern renders one stored pattern
func displayPattern(portID, commodityID string, pattern *intel.PricePattern) {
	fmt.Printf("Pattern: %s at %s\n\n", commodityID, portID)
	fmt.Printf("  Kind:        %s\n", pattern.Kind())
	fmt.Printf("  Confidence:  %.0f%%\n", pattern.Confidence()*100)
	fmt.Printf("  Window:      %d observations\n", pattern.WindowSize())
	fmt.Printf("  Volatility:  %.1f%%\n", pattern.Volatility())
	fmt.Printf("  Next price:  %s credits (%.0f%% confidence)\n",
		humanize.Comma(int64(pattern.PredictedValue())), pattern.PredictionConfidence()*100)
	fmt.Printf("  Computed:    %s\n", humanize.Time(pattern.ComputedAt()))
}
