package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rentledger/rentledger/internal/api"
	"github.com/rentledger/rentledger/internal/auth"
	"github.com/rentledger/rentledger/internal/config"
	"github.com/rentledger/rentledger/internal/cron"
	"github.com/rentledger/rentledger/internal/data"
	"github.com/rentledger/rentledger/internal/docstore"
	"github.com/rentledger/rentledger/internal/integration"
)

func main() {
	// Command line flags
	var configFile string
	flag.StringVar(&configFile, "config", "config/rentledger.yml", "Configuration file path")
	flag.Parse()

	// Local overrides from .env, if present
	godotenv.Load()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional NATS connection for cross-instance watches and the
	// integration forwarder.
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		log.Info().Str("url", cfg.NATS.URL).Msg("Connecting to NATS...")

		nc, err = nats.Connect(cfg.NATS.URL,
			nats.Name("rentledger-server"),
			nats.ReconnectWait(cfg.NATS.ReconnectInterval),
			nats.MaxReconnects(cfg.NATS.MaxReconnects),
			nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
				log.Warn().Err(err).Msg("Disconnected from NATS")
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info().Msg("Reconnected to NATS")
			}),
			nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
				log.Error().
					Err(err).
					Str("subject", sub.Subject).
					Msg("NATS error")
			}),
		)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to NATS, continuing without NATS support")
			nc = nil
		} else {
			defer nc.Close()
			log.Info().Msg("Connected to NATS")
		}
	} else {
		log.Info().Msg("NATS not configured, running in standalone mode")
	}

	// Open the document store
	var store docstore.Store
	switch cfg.Database.Driver {
	case "postgres":
		pg, err := docstore.NewPostgresStore(cfg.Database.DSN, nc)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		store = pg
		log.Info().Msg("Connected to database")
	default:
		store = docstore.NewMemoryStore()
		log.Info().Msg("Using in-memory document store")
	}
	defer store.Close()

	// Wire the services
	dataSvc := data.NewService(store, cfg.Billing)
	defer dataSvc.Shutdown()
	authSvc := auth.NewService(store, auth.NewJWTManager(&cfg.JWT))
	apiServer := api.NewRESTServer(cfg, store, dataSvc, authSvc)

	// WaitGroup for services
	var wg sync.WaitGroup

	// Start API server
	wg.Add(1)
	go func() {
		defer wg.Done()
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		if err := apiServer.ListenAndServe(addr); err != nil {
			log.Error().Err(err).Msg("REST API server stopped")
			cancel()
		}
	}()

	// Start the integration forwarder when NATS is available
	if nc != nil {
		forwarder := integration.NewForwarderService(nc, store)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := forwarder.Start(ctx); err != nil {
				log.Error().Err(err).Msg("Integration forwarder stopped")
			}
		}()
	}

	// Start the overdue sweep worker
	worker := cron.NewWorker(store, cfg.Billing.OverdueSchedule)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := worker.Run(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Cron worker stopped")
		}
	}()

	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
	case <-ctx.Done():
	}

	// Cancel context
	cancel()

	// Shutdown API server
	if err := apiServer.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown API server gracefully")
	}

	// Wait for all services
	wg.Wait()

	log.Info().Msg("Server stopped")
}
