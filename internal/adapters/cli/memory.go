package cli

import (
	"context"
	"encoding/json"
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
	"github.com/sectorwars/aria-core/internal/infrastructure/database"
)

// cliSnowflakeNode keeps CLI audit IDs from colliding with the daemon's
const cliSnowflakeNode = 2

// NewMemoryCommand creates the memory command with subcommands
func NewMemoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and manage remembered events",
		Long: `View and manage the player's memory store.

Memories decay over time; entries below the visibility floor are hidden
from listings but remain on disk until compaction removes them.

Examples:
  aria memory list
  aria memory list --kind trade --min-strength 0.5
  aria memory forget 7f3a2b1c`,
	}

	cmd.AddCommand(newMemoryListCommand())
	cmd.AddCommand(newMemoryForgetCommand())

	return cmd
}

// newMemoryListCommand creates the memory list subcommand
func newMemoryListCommand() *cobra.Command {
	var (
		kind        string
		minStrength float64
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visible memories, strongest first",
		Long: `List the player's memories with their decayed strength.

Examples:
  aria memory list
  aria memory list --kind price_change --limit 10
  aria memory list --min-strength 0.5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMemoryList(kind, minStrength, limit)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Filter by memory kind")
	cmd.Flags().Float64Var(&minStrength, "min-strength", 0, "Hide memories below this effective strength")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of memories to show (0 = all)")

	return cmd
}

// newMemoryForgetCommand creates the memory forget subcommand
func newMemoryForgetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forget <record-id>",
		Short: "Delete one memory record",
		Long: `Permanently delete a single memory record.

The deletion is written to the audit log.

Example:
  aria memory forget 7f3a2b1c`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMemoryForget(args[0])
		},
	}

	return cmd
}

// runMemoryList executes the memory list command
func runMemoryList(kind string, minStrength float64, limit int) error {
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

	memoryRepo := persistence.NewGormMemoryRepository(db)
	auditRepo := persistence.NewGormAuditRepository(db, node)
	audit := services.NewAuditTrail(auditRepo, nil)
	handler := queries.NewGetMemoriesHandler(memoryRepo, codec, audit, nil)

	query := &queries.GetMemoriesQuery{
		PlayerID: playerID,
		Limit:    limit,
	}
	if kind != "" {
		query.Kind = &kind
	}
	if minStrength > 0 {
		query.MinStrength = &minStrength
	}

	ctx := context.Background()
	result, err := handler.Handle(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query memories: %w", err)
	}

	response := result.(*queries.GetMemoriesResponse)
	displayMemories(response)

	return nil
}

// runMemoryForget executes the memory forget command
func runMemoryForget(recordID string) error {
	playerID, err := resolvePlayer()
	if err != nil {
		return err
	}

	_, db, err := connect()
	if err != nil {
		return err
	}
	defer database.Close(db)

	node, err := snowflake.NewNode(cliSnowflakeNode)
	if err != nil {
		return fmt.Errorf("failed to create snowflake node: %w", err)
	}

	memoryRepo := persistence.NewGormMemoryRepository(db)
	auditRepo := persistence.NewGormAuditRepository(db, node)
	audit := services.NewAuditTrail(auditRepo, nil)
	locks := common.NewPlayerLocks()
	handler := commands.NewForgetMemoryHandler(memoryRepo, audit, locks)

	ctx := context.Background()
	result, err := handler.Handle(ctx, &commands.ForgetMemoryCommand{
		PlayerID: playerID,
		RecordID: recordID,
	})
	if err != nil {
		return fmt.Errorf("failed to forget memory: %w", err)
	}

	response := result.(*commands.ForgetMemoryResponse)
	if response.Deleted {
		fmt.Printf("Memory %s deleted\n", recordID)
	} else {
		fmt.Printf("Memory %s not found\n", recordID)
	}

	return nil
}

// displayMemories renders the memory listing
func displayMemories(response *queries.GetMemoriesResponse) {
	if len(response.Memories) == 0 {
		fmt.Println("No visible memories.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKind\tStrength\tImportance\tReads\tRecorded")
	fmt.Fprintln(w, "──\t────\t────────\t──────────\t─────\t────────")

	for _, m := range response.Memories {
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%.2f\t%d\t%s\n",
			m.ID,
			m.Kind,
			m.EffectiveStrength,
			m.Importance,
			m.AccessCount,
			humanize.Time(m.CreatedAt),
		)
	}

	w.Flush()
	fmt.Printf("\nTotal: %d visible memories\n", response.Total)

	if verbose {
		fmt.Println("\nPayloads:")
		for _, m := range response.Memories {
			data, err := json.Marshal(m.Payload)
			if err != nil {
				continue
			}
			fmt.Printf("  %s: %s\n", m.ID, string(data))
		}
	}
}
