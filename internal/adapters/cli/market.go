package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bwmarrin/snowflake"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sectorwars/aria-core/internal/adapters/persistence"
	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/application/intelligence/commands"
	"github.com/sectorwars/aria-core/internal/application/intelligence/queries"
	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/domain/intel"
	"github.com/sectorwars/aria-core/internal/infrastructure/database"
)

// NewMarketCommand creates the market command with subcommands
func NewMarketCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Price observations and predictions",
		Long: `Record price observations and inspect what the engine has learned
from them.

Each observation extends the player's private price ledger for one
commodity at one port. Once enough observations accumulate, the engine
derives a pattern and can predict the next price.

Examples:
  aria market observe --port SOL-A3 --commodity ORE --buy 45 --sell 52
  aria market history --port SOL-A3 --commodity ORE
  aria market predict --port SOL-A3 --commodity ORE`,
	}

	cmd.AddCommand(newMarketObserveCommand())
	cmd.AddCommand(newMarketHistoryCommand())
	cmd.AddCommand(newMarketQualityCommand())
	cmd.AddCommand(newMarketPredictCommand())

	return cmd
}

// newMarketObserveCommand creates the market observe subcommand
func newMarketObserveCommand() *cobra.Command {
	var (
		portID      string
		commodityID string
		buyPrice    int
		sellPrice   int
	)

	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Record a price observation",
		Long: `Record one buy/sell price pair for a commodity at a port.

Example:
  aria market observe --port SOL-A3 --commodity ORE --buy 45 --sell 52`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMarketObserve(portID, commodityID, buyPrice, sellPrice)
		},
	}

	cmd.Flags().StringVar(&portID, "port", "", "Port identifier (required)")
	cmd.Flags().StringVar(&commodityID, "commodity", "", "Commodity identifier (required)")
	cmd.Flags().IntVar(&buyPrice, "buy", 0, "Observed buy price (required)")
	cmd.Flags().IntVar(&sellPrice, "sell", 0, "Observed sell price (required)")
	cmd.MarkFlagRequired("port")
	cmd.MarkFlagRequired("commodity")
	cmd.MarkFlagRequired("buy")
	cmd.MarkFlagRequired("sell")

	return cmd
}

// newMarketHistoryCommand creates the market history subcommand
func newMarketHistoryCommand() *cobra.Command {
	var (
		portID      string
		commodityID string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the price ledger for one commodity at one port",
		Long: `Show recorded observations in chronological order, along with the
ledger's derived quality and volatility.

Examples:
  aria market history --port SOL-A3 --commodity ORE
  aria market history --port SOL-A3 --commodity ORE --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMarketHistory(portID, commodityID, limit)
		},
	}

	cmd.Flags().StringVar(&portID, "port", "", "Port identifier (required)")
	cmd.Flags().StringVar(&commodityID, "commodity", "", "Commodity identifier (required)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of observations to show (0 = all)")
	cmd.MarkFlagRequired("port")
	cmd.MarkFlagRequired("commodity")

	return cmd
}

// newMarketQualityCommand creates the market quality subcommand
func newMarketQualityCommand() *cobra.Command {
	var (
		portID      string
		commodityID string
	)

	cmd := &cobra.Command{
		Use:   "quality",
		Short: "Show how trustworthy one ledger is",
		Long: `Show the quality score for a (port, commodity) ledger.

Quality rises with more and fresher observations and falls with
volatility. Downstream consumers gate their confidence on it.

Example:
  aria market quality --port SOL-A3 --commodity ORE`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMarketQuality(portID, commodityID)
		},
	}

	cmd.Flags().StringVar(&portID, "port", "", "Port identifier (required)")
	cmd.Flags().StringVar(&commodityID, "commodity", "", "Commodity identifier (required)")
	cmd.MarkFlagRequired("port")
	cmd.MarkFlagRequired("commodity")

	return cmd
}

// newMarketPredictCommand creates the market predict subcommand
func newMarketPredictCommand() *cobra.Command {
	var (
		portID      string
		commodityID string
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the next price from the derived pattern",
		Long: `Predict the next price for a commodity at a port.

A prediction is only available once the ledger holds enough observations
for a pattern to be derived. Until then the command reports why no
prediction can be made instead of guessing.

Example:
  aria market predict --port SOL-A3 --commodity ORE`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMarketPredict(portID, commodityID)
		},
	}

	cmd.Flags().StringVar(&portID, "port", "", "Port identifier (required)")
	cmd.Flags().StringVar(&commodityID, "commodity", "", "Commodity identifier (required)")
	cmd.MarkFlagRequired("port")
	cmd.MarkFlagRequired("commodity")

	return cmd
}

// runMarketObserve executes the market observe command
func runMarketObserve(portID, commodityID string, buyPrice, sellPrice int) error {
	playerID, err := resolvePlayer()
	if err != nil {
		return err
	}

	cfg, db, err := connect()
	if err != nil {
		return err
	}
	defer database.Close(db)

	codec, err := buildCodec(cfg)
	if err != nil {
		return err
	}

	node, err := snowflake.NewNode(cliSnowflakeNode)
	if err != nil {
		return fmt.Errorf("failed to create snowflake node: %w", err)
	}

	observationRepo := persistence.NewGormObservationRepository(db)
	patternRepo := persistence.NewGormPatternRepository(db)
	memoryRepo := persistence.NewGormMemoryRepository(db)
	auditRepo := persistence.NewGormAuditRepository(db, node)
	cache := persistence.NewGormResultCache(db, nil)

	audit := services.NewAuditTrail(auditRepo, nil)
	memoryWriter := services.NewMemoryWriter(memoryRepo, audit, codec, nil, cfg.Intelligence.MemoryDecayRate)
	recognizer := intel.NewRecognizer(cfg.Intelligence.MinObservations)
	locks := common.NewPlayerLocks()

	handler := commands.NewRecordObservationHandler(observationRepo, patternRepo, recognizer, memoryWriter,
		cache, locks, nil, cfg.Intelligence.CacheTTL, int64(cfg.Intelligence.CacheStaleThreshold))

	ctx := context.Background()
	result, err := handler.Handle(ctx, &commands.RecordObservationCommand{
		PlayerID:    playerID,
		PortID:      portID,
		CommodityID: commodityID,
		BuyPrice:    buyPrice,
		SellPrice:   sellPrice,
	})
	if err != nil {
		return fmt.Errorf("failed to record observation: %w", err)
	}

	response := result.(*commands.RecordObservationResponse)
	fmt.Printf("Observation #%d recorded for %s at %s\n", response.ObservationID, commodityID, portID)
	if response.PatternRefreshed {
		fmt.Printf("Pattern refreshed: %s\n", response.PatternKind)
	}
	if response.SignificantChange {
		fmt.Println("Significant price change remembered")
	}

	return nil
}

// runMarketHistory executes the market history command
func runMarketHistory(portID, commodityID string, limit int) error {
	playerID, err := resolvePlayer()
	if err != nil {
		return err
	}

	_, db, err := connect()
	if err != nil {
		return err
	}
	defer database.Close(db)

	observationRepo := persistence.NewGormObservationRepository(db)
	handler := queries.NewGetMarketHistoryHandler(observationRepo, nil)

	ctx := context.Background()
	result, err := handler.Handle(ctx, &queries.GetMarketHistoryQuery{
		PlayerID:    playerID,
		PortID:      portID,
		CommodityID: commodityID,
		Limit:       limit,
	})
	if err != nil {
		return fmt.Errorf("failed to query market history: %w", err)
	}

	response := result.(*queries.GetMarketHistoryResponse)
	displayMarketHistory(portID, commodityID, response)

	return nil
}

// runMarketQuality executes the market quality command
func runMarketQuality(portID, commodityID string) error {
	playerID, err := resolvePlayer()
	if err != nil {
		return err
	}

	_, db, err := connect()
	if err != nil {
		return err
	}
	defer database.Close(db)

	observationRepo := persistence.NewGormObservationRepository(db)
	handler := queries.NewGetMarketHistoryHandler(observationRepo, nil)

	ctx := context.Background()
	result, err := handler.Handle(ctx, &queries.GetMarketHistoryQuery{
		PlayerID:    playerID,
		PortID:      portID,
		CommodityID: commodityID,
	})
	if err != nil {
		return fmt.Errorf("failed to query ledger quality: %w", err)
	}

	response := result.(*queries.GetMarketHistoryResponse)

	fmt.Printf("Ledger quality: %s at %s\n\n", commodityID, portID)
	if response.SampleCount == 0 {
		fmt.Println("No observations recorded; quality stays zero until the ledger has data.")
		return nil
	}

	last := response.Observations[len(response.Observations)-1]
	fmt.Printf("  Quality:     %.0f%%\n", response.Quality*100)
	fmt.Printf("  Samples:     %d\n", response.SampleCount)
	fmt.Printf("  Volatility:  %.1f%%\n", response.VolatilityPct)
	fmt.Printf("  Last seen:   %s\n", humanize.Time(last.ObservedAt))

	return nil
}

// runMarketPredict executes the market predict command
func runMarketPredict(portID, commodityID string) error {
	playerID, err := resolvePlayer()
	if err != nil {
		return err
	}

	cfg, db, err := connect()
	if err != nil {
		return err
	}
	defer database.Close(db)

	patternRepo := persistence.NewGormPatternRepository(db)
	cache := persistence.NewGormResultCache(db, nil)
	handler := queries.NewGetPredictionHandler(patternRepo, cache, cfg.Intelligence.CacheTTL)

	ctx := context.Background()
	result, err := handler.Handle(ctx, &queries.GetPredictionQuery{
		PlayerID:    playerID,
		PortID:      portID,
		CommodityID: commodityID,
	})
	if err != nil {
		return fmt.Errorf("failed to query prediction: %w", err)
	}

	response := result.(*queries.GetPredictionResponse)
	displayPrediction(portID, commodityID, response)

	return nil
}

// displayMarketHistory renders the price ledger
func displayMarketHistory(portID, commodityID string, response *queries.GetMarketHistoryResponse) {
	fmt.Printf("Price ledger: %s at %s\n\n", commodityID, portID)

	if len(response.Observations) == 0 {
		fmt.Println("No observations recorded.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Observed\tBuy\tSell\tMid")
	fmt.Fprintln(w, "────────\t───\t────\t───")

	for _, o := range response.Observations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\n",
			o.ObservedAt.Format("2006-01-02 15:04"),
			humanize.Comma(int64(o.BuyPrice)),
			humanize.Comma(int64(o.SellPrice)),
			o.MidPrice,
		)
	}

	w.Flush()
	fmt.Printf("\nSamples: %d  Quality: %.0f%%  Volatility: %.1f%%\n",
		response.SampleCount, response.Quality*100, response.VolatilityPct)
}

// displayPrediction renders the prediction outcome
func displayPrediction(portID, commodityID string, response *queries.GetPredictionResponse) {
	if !response.Available {
		fmt.Printf("No prediction available for %s at %s: %s\n", commodityID, portID, response.Reason)
		return
	}

	fmt.Printf("Prediction: %s at %s\n\n", commodityID, portID)
	fmt.Printf("  Next price:  %s credits\n", humanize.Comma(int64(response.PredictedValue)))
	fmt.Printf("  Confidence:  %.0f%%\n", response.Confidence*100)
	fmt.Printf("  Pattern:     %s\n", response.PatternKind)
	fmt.Printf("  Computed:    %s\n", humanize.Time(response.ComputedAt))
}
