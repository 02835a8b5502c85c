package main

import (
	"context"
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avcontrol/onkyo-bridge/pkg/bridge"
	"github.com/avcontrol/onkyo-bridge/pkg/db"
	"github.com/avcontrol/onkyo-bridge/pkg/device/schema"
	"github.com/avcontrol/onkyo-bridge/pkg/eiscp"
	bridgemcp "github.com/avcontrol/onkyo-bridge/pkg/mcp"
)

func main() {
	// Logging must go to stderr — stdout is the MCP transport
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Parse flags
	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/onkyo-bridge/bridge.db)")
	seedPath := flag.String("seed", "", "Path to YAML seed file for first run")
	flag.Parse()

	ctx := context.Background()

	// Open database
	database, err := db.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	log.Info().Str("path", database.Path()).Msg("Database opened")

	// Run migrations
	if err := database.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Bootstrap if needed (first run)
	if err := database.Bootstrap(ctx, *seedPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap database")
	}

	// Load the active receiver configuration
	cfg, receiver, err := database.ActiveConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Start the protocol adapter and its bridge
	adapter := eiscp.New(cfg)
	if err := adapter.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start adapter")
	}
	defer adapter.Stop()

	b := bridge.New(adapter, database, receiver.ID, nil)
	bridgeCtx, cancelBridge := context.WithCancel(ctx)
	defer cancelBridge()
	go b.Run(bridgeCtx)

	validator := schema.NewValidator()

	// Create and start MCP server
	mcpServer := bridgemcp.NewServer(b, validator)

	log.Info().Msg("Starting MCP server on stdio")

	if err := mcpServer.ServeStdio(); err != nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}
