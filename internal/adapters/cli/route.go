package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sectorwars/aria-core/internal/adapters/persistence"
	"github.com/sectorwars/aria-core/internal/application/intelligence/queries"
	"github.com/sectorwars/aria-core/internal/domain/routing"
	"github.com/sectorwars/aria-core/internal/infrastructure/database"
)

// NewRouteCommand creates the route command with subcommands
func NewRouteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Trade route planning",
		Long: `Plan multi-hop trade routes over the player's own exploration map.

Routes only traverse ports the player has visited and links the player
has travelled. Unexplored territory is invisible to the planner.

Examples:
  aria route plan --start SOL-A3
  aria route plan --start SOL-A3 --max-hops 3 --min-confidence 0.7`,
	}

	cmd.AddCommand(newRoutePlanCommand())

	return cmd
}

// newRoutePlanCommand creates the route plan subcommand
func newRoutePlanCommand() *cobra.Command {
	var (
		startPortID   string
		maxHops       int
		minConfidence float64
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a profit cascade from a starting port",
		Long: `Plan the most profitable multi-hop route starting at a port.

An unviable answer is normal for sparsely explored territory; the
command explains what is missing instead of inventing a route.

Examples:
  aria route plan --start SOL-A3
  aria route plan --start SOL-A3 --max-hops 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoutePlan(startPortID, maxHops, minConfidence)
		},
	}

	cmd.Flags().StringVar(&startPortID, "start", "", "Starting port (required)")
	cmd.Flags().IntVar(&maxHops, "max-hops", 0, "Maximum number of hops (0 = default)")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "Minimum pattern confidence per hop (0 = default)")
	cmd.MarkFlagRequired("start")

	return cmd
}

// runRoutePlan executes the route plan command
func runRoutePlan(startPortID string, maxHops int, minConfidence float64) error {
	playerID, err := resolvePlayer()
	if err != nil {
		return err
	}

	cfg, db, err := connect()
	if err != nil {
		return err
	}
	defer database.Close(db)

	visitRepo := persistence.NewGormVisitRepository(db)
	linkRepo := persistence.NewGormLinkRepository(db)
	patternRepo := persistence.NewGormPatternRepository(db)
	heuristicRepo := persistence.NewGormHeuristicRepository(db)
	cache := persistence.NewGormResultCache(db, nil)
	planner := routing.NewPlanner()

	handler := queries.NewGetRoutePlanHandler(visitRepo, linkRepo, patternRepo, heuristicRepo,
		planner, cache, cfg.Intelligence.CacheTTL)

	ctx := context.Background()
	result, err := handler.Handle(ctx, &queries.GetRoutePlanQuery{
		PlayerID:      playerID,
		StartPortID:   startPortID,
		MaxHops:       maxHops,
		MinConfidence: minConfidence,
	})
	if err != nil {
		return fmt.Errorf("failed to plan route: %w", err)
	}

	response := result.(*queries.GetRoutePlanResponse)
	displayRoutePlan(startPortID, response)

	return nil
}

// displayRoutePlan renders the planning outcome
func displayRoutePlan(startPortID string, response *queries.GetRoutePlanResponse) {
	if !response.Viable {
		fmt.Printf("No viable route from %s: %s\n", startPortID, response.Reason)
		return
	}

	fmt.Printf("Route plan from %s (%d ports considered)\n\n", startPortID, response.PortsConsidered)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Hop\tFrom\tTo\tCommodity\tExpected Profit\tConfidence")
	fmt.Fprintln(w, "───\t────\t──\t─────────\t───────────────\t──────────")

	for i, hop := range response.Hops {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%.0f%%\n",
			i+1,
			hop.FromPortID,
			hop.ToPortID,
			hop.CommodityID,
			formatProfit(hop.ExpectedProfit),
			hop.Confidence*100,
		)
	}

	w.Flush()
	fmt.Printf("\nTotal expected profit: %s credits\n", formatProfit(response.TotalExpectedProfit))
	fmt.Printf("Aggregate risk:        %.0f%%\n", response.AggregateRisk*100)
	if response.Summary != "" {
		fmt.Printf("\n%s\n", response.Summary)
	}
}
