package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/bwmarrin/snowflake"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sectorwars/aria-core/internal/adapters/persistence"
	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/application/intelligence/commands"
	"github.com/sectorwars/aria-core/internal/application/intelligence/queries"
	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/infrastructure/database"
)

// NewExploreCommand creates the explore command with subcommands
func NewExploreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Exploration map",
		Long: `Record port visits and inspect the player's exploration map.

The map only ever contains what the player has personally seen; it is
the sole territory the route planner may traverse.

Examples:
  aria explore visit --sector SOL --port SOL-A3 --class A
  aria explore visit --sector SOL --port SOL-B1 --from SOL-A3
  aria explore summary`,
	}

	cmd.AddCommand(newExploreVisitCommand())
	cmd.AddCommand(newExploreSummaryCommand())

	return cmd
}

// newExploreVisitCommand creates the explore visit subcommand
func newExploreVisitCommand() *cobra.Command {
	var (
		sectorID   string
		portID     string
		portClass  string
		fromPortID string
	)

	cmd := &cobra.Command{
		Use:   "visit",
		Short: "Record a port visit",
		Long: `Record that the player docked at a port.

Pass --from to also record the travel link from the previous port.

Examples:
  aria explore visit --sector SOL --port SOL-A3 --class A
  aria explore visit --sector SOL --port SOL-B1 --from SOL-A3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExploreVisit(sectorID, portID, portClass, fromPortID)
		},
	}

	cmd.Flags().StringVar(&sectorID, "sector", "", "Sector identifier (required)")
	cmd.Flags().StringVar(&portID, "port", "", "Port identifier (required)")
	cmd.Flags().StringVar(&portClass, "class", "", "Port class")
	cmd.Flags().StringVar(&fromPortID, "from", "", "Previous port, records a travel link")
	cmd.MarkFlagRequired("sector")
	cmd.MarkFlagRequired("port")

	return cmd
}

// newExploreSummaryCommand creates the explore summary subcommand
func newExploreSummaryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the exploration map summary",
		Long: `Summarize the player's exploration map: ports visited, sectors
seen, known travel links, and the most recent visits.

Example:
  aria explore summary`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExploreSummary()
		},
	}

	return cmd
}

// runExploreVisit executes the explore visit command
func runExploreVisit(sectorID, portID, portClass, fromPortID string) error {
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

	visitRepo := persistence.NewGormVisitRepository(db)
	linkRepo := persistence.NewGormLinkRepository(db)
	memoryRepo := persistence.NewGormMemoryRepository(db)
	auditRepo := persistence.NewGormAuditRepository(db, node)
	audit := services.NewAuditTrail(auditRepo, nil)
	memoryWriter := services.NewMemoryWriter(memoryRepo, audit, codec, nil, cfg.Intelligence.MemoryDecayRate)
	locks := common.NewPlayerLocks()

	handler := commands.NewRecordVisitHandler(visitRepo, linkRepo, memoryWriter, locks, nil)

	ctx := context.Background()
	result, err := handler.Handle(ctx, &commands.RecordVisitCommand{
		PlayerID:   playerID,
		SectorID:   sectorID,
		PortID:     portID,
		PortClass:  portClass,
		FromPortID: fromPortID,
	})
	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}

	response := result.(*commands.RecordVisitResponse)
	if response.FirstVisit {
		fmt.Printf("First visit to %s recorded\n", portID)
	} else {
		fmt.Printf("Visit to %s recorded (%d total)\n", portID, response.VisitCount)
	}
	if response.LinkRecorded {
		fmt.Printf("Travel link %s -> %s recorded\n", fromPortID, portID)
	}

	return nil
}

// runExploreSummary executes the explore summary command
func runExploreSummary() error {
	playerID, err := resolvePlayer()
	if err != nil {
		return err
	}

	_, db, err := connect()
	if err != nil {
		return err
	}
	defer database.Close(db)

	visitRepo := persistence.NewGormVisitRepository(db)
	linkRepo := persistence.NewGormLinkRepository(db)
	handler := queries.NewGetExplorationSummaryHandler(visitRepo, linkRepo)

	ctx := context.Background()
	result, err := handler.Handle(ctx, &queries.GetExplorationSummaryQuery{
		PlayerID: playerID,
	})
	if err != nil {
		return fmt.Errorf("failed to query exploration summary: %w", err)
	}

	response := result.(*queries.GetExplorationSummaryResponse)
	displayExplorationSummary(response)

	return nil
}

// displayExplorationSummary renders the exploration map summary
func displayExplorationSummary(response *queries.GetExplorationSummaryResponse) {
	if response.PortsVisited == 0 {
		fmt.Println("No ports visited yet.")
		return
	}

	fmt.Println("Exploration Summary")
	fmt.Println("===================")
	fmt.Println()
	fmt.Printf("  Ports visited:  %d\n", response.PortsVisited)
	fmt.Printf("  Sectors seen:   %d\n", response.SectorsSeen)
	fmt.Printf("  Total visits:   %d\n", response.TotalVisits)
	fmt.Printf("  Links known:    %d\n", response.LinksKnown)
	if response.LastVisitedAt != nil {
		fmt.Printf("  Last visit:     %s\n", humanize.Time(*response.LastVisitedAt))
	}

	if len(response.PortsByClass) > 0 {
		fmt.Println("\nPorts by class:")
		classes := make([]string, 0, len(response.PortsByClass))
		for class := range response.PortsByClass {
			classes = append(classes, class)
		}
		sort.Strings(classes)
		for _, class := range classes {
			fmt.Printf("  %-8s %d\n", class, response.PortsByClass[class])
		}
	}

	if len(response.RecentVisits) > 0 {
		fmt.Println("\nRecent visits:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Port\tSector\tClass\tVisits\tLast Seen")
		fmt.Fprintln(w, "────\t──────\t─────\t──────\t─────────")

		for _, v := range response.RecentVisits {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				v.PortID,
				v.SectorID,
				v.PortClass,
				v.VisitCount,
				humanize.Time(v.LastVisitedAt),
			)
		}

		w.Flush()
	}
}
