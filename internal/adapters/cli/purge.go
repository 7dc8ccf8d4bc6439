package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"

	"github.com/sectorwars/aria-core/internal/adapters/persistence"
	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/application/intelligence/commands"
	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/infrastructure/database"
)

// NewPurgeCommand creates the purge command
func NewPurgeCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Erase all intelligence for a player",
		Long: `Permanently erase everything the engine knows about a player:
memories, price ledgers, patterns, heuristics, exploration map, and
cached results.

The audit log keeps a single purge entry so the erasure itself remains
accountable. This cannot be undone.

Example:
  aria purge --player p-1001 --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPurge(yes)
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the purge without prompting")

	return cmd
}

// runPurge executes the purge command
func runPurge(yes bool) error {
	playerID, err := resolvePlayer()
	if err != nil {
		return err
	}

	if !yes {
		fmt.Printf("Purge ALL intelligence for player %s? This cannot be undone. [y/N]: ", playerID)
		var answer string
		fmt.Scanln(&answer)
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
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
	observationRepo := persistence.NewGormObservationRepository(db)
	patternRepo := persistence.NewGormPatternRepository(db)
	heuristicRepo := persistence.NewGormHeuristicRepository(db)
	visitRepo := persistence.NewGormVisitRepository(db)
	linkRepo := persistence.NewGormLinkRepository(db)
	cache := persistence.NewGormResultCache(db, nil)
	auditRepo := persistence.NewGormAuditRepository(db, node)
	audit := services.NewAuditTrail(auditRepo, nil)
	locks := common.NewPlayerLocks()

	handler := commands.NewPurgePlayerDataHandler(memoryRepo, observationRepo, patternRepo,
		heuristicRepo, visitRepo, linkRepo, cache, audit, locks)

	ctx := context.Background()
	result, err := handler.Handle(ctx, &commands.PurgePlayerDataCommand{
		PlayerID: playerID,
	})
	if err != nil {
		return fmt.Errorf("failed to purge player data: %w", err)
	}

	response := result.(*commands.PurgePlayerDataResponse)
	if response.Purged {
		fmt.Printf("Purged all intelligence for player %s\n", playerID)
		fmt.Printf("Stores cleared: %s\n", strings.Join(response.Stores, ", "))
	}

	return nil
}
