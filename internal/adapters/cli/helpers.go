package cli

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/sectorwars/aria-core/internal/adapters/crypto"
	"github.com/sectorwars/aria-core/internal/domain/memory"
	"github.com/sectorwars/aria-core/internal/domain/shared"
	"github.com/sectorwars/aria-core/internal/infrastructure/config"
	"github.com/sectorwars/aria-core/internal/infrastructure/database"
)

// resolvePlayer resolves the player from the --player flag or the user
// config default. Returns an error only if no player can be identified
// from any source.
func resolvePlayer() (shared.PlayerID, error) {
	if playerFlag != "" {
		return shared.NewPlayerID(playerFlag)
	}

	userConfigHandler, err := config.NewUserConfigHandler()
	if err != nil {
		return shared.PlayerID{}, fmt.Errorf("no player specified and failed to load user config: %w", err)
	}

	userCfg, err := userConfigHandler.Load()
	if err != nil {
		return shared.PlayerID{}, fmt.Errorf("no player specified and failed to load user config: %w", err)
	}

	if userCfg.DefaultPlayerID != "" {
		return shared.NewPlayerID(userCfg.DefaultPlayerID)
	}

	return shared.PlayerID{}, fmt.Errorf("no player specified: use --player, or set a default with 'aria config set-player'")
}

// connect loads the system config and opens the shared database
func connect() (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig("")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return cfg, db, nil
}

// buildCodec mirrors the daemon's payload codec selection so the CLI can
// read and write the same memory store
func buildCodec(cfg *config.Config) (memory.PayloadCodec, error) {
	if cfg.Intelligence.EncryptionKey == "" {
		return crypto.NewPlainCodec(), nil
	}

	codec, err := crypto.NewAESCodec(cfg.Intelligence.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize payload encryption: %w", err)
	}
	return codec, nil
}
