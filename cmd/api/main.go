package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avcontrol/onkyo-bridge/pkg/api"
	"github.com/avcontrol/onkyo-bridge/pkg/bridge"
	"github.com/avcontrol/onkyo-bridge/pkg/db"
	"github.com/avcontrol/onkyo-bridge/pkg/device/schema"
	"github.com/avcontrol/onkyo-bridge/pkg/eiscp"
)

func main() {
	// Configure logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Parse flags
	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/onkyo-bridge/bridge.db)")
	seedPath := flag.String("seed", "", "Path to YAML seed file for first run")
	natsURL := flag.String("nats", "", "NATS server URL for event publishing (empty to disable)")
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

	log.Info().
		Str("receiver", receiver.Name).
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Msg("Configuration loaded")

	// Optional broker publisher
	var pub bridge.Publisher
	if *natsURL != "" {
		natsPub, err := bridge.NewNATSPublisher(*natsURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer natsPub.Close()
		pub = natsPub
	}

	// Start the protocol adapter
	adapter := eiscp.New(cfg)
	if err := adapter.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start adapter")
	}

	// Bridge the adapter's event stream to the API surface
	b := bridge.New(adapter, database, receiver.ID, pub)
	bridgeCtx, cancelBridge := context.WithCancel(ctx)
	go b.Run(bridgeCtx)

	validator := schema.NewValidator()
	router := api.NewRouter(b, validator)

	// Handle shutdown gracefully
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down...")
		adapter.Stop()
		cancelBridge()
		<-b.Done()
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
		os.Exit(0)
	}()

	// Start server
	addr := fmt.Sprintf("%s:%d", receiver.APIHost, receiver.APIPort)
	log.Info().Str("address", addr).Msg("Starting API server")

	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
