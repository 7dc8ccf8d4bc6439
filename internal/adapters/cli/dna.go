package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/bwmarrin/snowflake"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sectorwars/aria-core/internal/adapters/persistence"
	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/application/intelligence/commands"
	"github.com/sectorwars/aria-core/internal/application/intelligence/queries"
	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/domain/evolution"
	"github.com/sectorwars/aria-core/internal/infrastructure/database"
)

// NewDNACommand creates the dna command with subcommands
func NewDNACommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dna",
		Short: "Trading heuristic population",
		Long: `Manage the player's evolving population of trading heuristics.

Each heuristic is a bundle of genes (risk tolerance, profit margin, hop
budget, preferences). Recorded outcomes feed its fitness; evolve breeds
the next generation from the fittest half.

Examples:
  aria dna seed
  aria dna list
  aria dna outcome --heuristic 7f3a2b1c --success --profit 420
  aria dna evolve`,
	}

	cmd.AddCommand(newDNAListCommand())
	cmd.AddCommand(newDNASeedCommand())
	cmd.AddCommand(newDNAEvolveCommand())
	cmd.AddCommand(newDNAOutcomeCommand())

	return cmd
}

// newDNAListCommand creates the dna list subcommand
func newDNAListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List heuristics ranked by fitness",
		Long: `List the player's heuristic population, fittest first.

Examples:
  aria dna list
  aria dna list --limit 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDNAList(limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of heuristics to show (0 = all)")

	return cmd
}

// newDNASeedCommand creates the dna seed subcommand
func newDNASeedCommand() *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed an initial heuristic population",
		Long: `Create the player's initial generation of random heuristics.

Seeding is idempotent: if a population already exists, nothing changes.
Pass --seed for a reproducible population.

Examples:
  aria dna seed
  aria dna seed --seed 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var seedPtr *int64
			if cmd.Flags().Changed("seed") {
				seedPtr = &seed
			}
			return runDNASeed(seedPtr)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for a reproducible population")

	return cmd
}

// newDNAEvolveCommand creates the dna evolve subcommand
func newDNAEvolveCommand() *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Breed the next generation",
		Long: `Run one evolution cycle: keep the fittest half, refill the
population with mutated offspring, and advance the generation counter.

Examples:
  aria dna evolve
  aria dna evolve --seed 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var seedPtr *int64
			if cmd.Flags().Changed("seed") {
				seedPtr = &seed
			}
			return runDNAEvolve(seedPtr)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for a reproducible cycle")

	return cmd
}

// newDNAOutcomeCommand creates the dna outcome subcommand
func newDNAOutcomeCommand() *cobra.Command {
	var (
		heuristicID string
		success     bool
		profit      float64
		commodityID string
		fromPortID  string
		toPortID    string
	)

	cmd := &cobra.Command{
		Use:   "outcome",
		Short: "Record a trade outcome against a heuristic",
		Long: `Record the result of a trade that followed a heuristic's advice.

The outcome updates the heuristic's success rate, average profit, and
fitness score.

Examples:
  aria dna outcome --heuristic 7f3a2b1c --success --profit 420
  aria dna outcome --heuristic 7f3a2b1c --profit -80 --commodity ORE`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDNAOutcome(heuristicID, success, profit, commodityID, fromPortID, toPortID)
		},
	}

	cmd.Flags().StringVar(&heuristicID, "heuristic", "", "Heuristic identifier (required)")
	cmd.Flags().BoolVar(&success, "success", false, "Mark the trade as successful")
	cmd.Flags().Float64Var(&profit, "profit", 0, "Realized profit (negative for a loss)")
	cmd.Flags().StringVar(&commodityID, "commodity", "", "Commodity traded")
	cmd.Flags().StringVar(&fromPortID, "from", "", "Origin port")
	cmd.Flags().StringVar(&toPortID, "to", "", "Destination port")
	cmd.MarkFlagRequired("heuristic")

	return cmd
}

// runDNAList executes the dna list command
func runDNAList(limit int) error {
	playerID, err := resolvePlayer()
	if err != nil {
		return err
	}

	_, db, err := connect()
	if err != nil {
		return err
	}
	defer database.Close(db)

	heuristicRepo := persistence.NewGormHeuristicRepository(db)
	handler := queries.NewGetRecommendedHeuristicsHandler(heuristicRepo)

	ctx := context.Background()
	result, err := handler.Handle(ctx, &queries.GetRecommendedHeuristicsQuery{
		PlayerID: playerID,
		Limit:    limit,
	})
	if err != nil {
		return fmt.Errorf("failed to query heuristics: %w", err)
	}

	response := result.(*queries.GetRecommendedHeuristicsResponse)
	displayHeuristics(response)

	return nil
}

// runDNASeed executes the dna seed command
func runDNASeed(seed *int64) error {
	playerID, err := resolvePlayer()
	if err != nil {
		return err
	}

	cfg, db, err := connect()
	if err != nil {
		return err
	}
	defer database.Close(db)

	node, err := snowflake.NewNode(cliSnowflakeNode)
	if err != nil {
		return fmt.Errorf("failed to create snowflake node: %w", err)
	}

	heuristicRepo := persistence.NewGormHeuristicRepository(db)
	auditRepo := persistence.NewGormAuditRepository(db, node)
	audit := services.NewAuditTrail(auditRepo, nil)
	evolver := evolution.NewEvolver(cfg.Intelligence.PopulationSize)
	locks := common.NewPlayerLocks()

	handler := commands.NewSeedPopulationHandler(heuristicRepo, evolver, audit, locks, nil)

	ctx := context.Background()
	result, err := handler.Handle(ctx, &commands.SeedPopulationCommand{
		PlayerID: playerID,
		Seed:     seed,
	})
	if err != nil {
		return fmt.Errorf("failed to seed population: %w", err)
	}

	response := result.(*commands.SeedPopulationResponse)
	if response.Created {
		fmt.Printf("Seeded %d heuristics (generation %d)\n", response.PopulationSize, response.Generation)
	} else {
		fmt.Printf("Population already exists: %d heuristics at generation %d\n",
			response.PopulationSize, response.Generation)
	}

	return nil
}

// runDNAEvolve executes the dna evolve command
func runDNAEvolve(seed *int64) error {
	playerID, err := resolvePlayer()
	if err != nil {
		return err
	}

	cfg, db, err := connect()
	if err != nil {
		return err
	}
	defer database.Close(db)

	node, err := snowflake.NewNode(cliSnowflakeNode)
	if err != nil {
		return fmt.Errorf("failed to create snowflake node: %w", err)
	}

	heuristicRepo := persistence.NewGormHeuristicRepository(db)
	auditRepo := persistence.NewGormAuditRepository(db, node)
	audit := services.NewAuditTrail(auditRepo, nil)
	evolver := evolution.NewEvolver(cfg.Intelligence.PopulationSize)
	locks := common.NewPlayerLocks()

	handler := commands.NewEvolvePatternsHandler(heuristicRepo, evolver, audit, locks, nil)

	ctx := context.Background()
	result, err := handler.Handle(ctx, &commands.EvolvePatternsCommand{
		PlayerID: playerID,
		Seed:     seed,
	})
	if err != nil {
		return fmt.Errorf("failed to evolve population: %w", err)
	}

	response := result.(*commands.EvolvePatternsResponse)
	if !response.Evolved {
		fmt.Println("Nothing to evolve: seed a population first with 'aria dna seed'")
		return nil
	}

	fmt.Printf("Generation %d bred: %d survivors carried into a population of %d\n",
		response.Generation, response.Survivors, response.PopulationSize)
	if response.BestName != "" {
		fmt.Printf("Best heuristic: %s (fitness %.3f)\n", response.BestName, response.BestFitness)
	}

	return nil
}

// runDNAOutcome executes the dna outcome command
func runDNAOutcome(heuristicID string, success bool, profit float64, commodityID, fromPortID, toPortID string) error {
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

	heuristicRepo := persistence.NewGormHeuristicRepository(db)
	memoryRepo := persistence.NewGormMemoryRepository(db)
	auditRepo := persistence.NewGormAuditRepository(db, node)
	audit := services.NewAuditTrail(auditRepo, nil)
	memoryWriter := services.NewMemoryWriter(memoryRepo, audit, codec, nil, cfg.Intelligence.MemoryDecayRate)
	locks := common.NewPlayerLocks()

	handler := commands.NewRecordOutcomeHandler(heuristicRepo, memoryWriter, locks, nil)

	ctx := context.Background()
	result, err := handler.Handle(ctx, &commands.RecordOutcomeCommand{
		PlayerID:    playerID,
		HeuristicID: heuristicID,
		Success:     success,
		Profit:      profit,
		CommodityID: commodityID,
		FromPortID:  fromPortID,
		ToPortID:    toPortID,
	})
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	response := result.(*commands.RecordOutcomeResponse)
	fmt.Printf("Outcome recorded for %s\n\n", response.HeuristicName)
	fmt.Printf("  Fitness:      %.3f\n", response.Fitness)
	fmt.Printf("  Success rate: %.0f%%\n", response.SuccessRate*100)
	fmt.Printf("  Avg profit:   %s\n", formatProfit(response.AvgProfit))
	fmt.Printf("  Outcomes:     %d\n", response.OutcomeCount)

	return nil
}

// displayHeuristics renders the ranked population
func displayHeuristics(response *queries.GetRecommendedHeuristicsResponse) {
	if len(response.Heuristics) == 0 {
		fmt.Println("No heuristic population. Seed one with 'aria dna seed'.")
		return
	}

	fmt.Printf("Heuristic population (generation %d)\n\n", response.Generation)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Name\tFitness\tSuccess\tAvg Profit\tOutcomes\tRisk\tMargin\tHops")
	fmt.Fprintln(w, "────\t───────\t───────\t──────────\t────────\t────\t──────\t────")

	for _, h := range response.Heuristics {
		fmt.Fprintf(w, "%s\t%.3f\t%.0f%%\t%s\t%d\t%.2f\t%.2f\t%d\n",
			h.Name,
			h.Fitness,
			h.SuccessRate*100,
			formatProfit(h.AvgProfit),
			h.OutcomeCount,
			h.Genes.RiskTolerance,
			h.Genes.MinProfitMargin,
			h.Genes.MaxHops,
		)
	}

	w.Flush()

	if verbose {
		fmt.Println("\nPreferences:")
		for _, h := range response.Heuristics {
			fmt.Printf("  %s: commodities=[%s] classes=[%s] hour=%d\n",
				h.Name,
				strings.Join(h.Genes.PreferredCommodities, ","),
				strings.Join(h.Genes.PreferredPortClasses, ","),
				h.Genes.TimePreference,
			)
		}
	}
}

// formatProfit renders a signed credit amount with thousands separators
func formatProfit(amount float64) string {
	whole := int64(amount)
	if whole < 0 {
		return "-" + humanize.Comma(-whole)
	}
	return humanize.Comma(whole)
}
