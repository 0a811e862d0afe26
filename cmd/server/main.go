package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RailSettle/internal/adapters/eventbus"
	"RailSettle/internal/adapters/negativelist"
	"RailSettle/internal/adapters/postgres"
	"RailSettle/internal/adapters/security"
	"RailSettle/internal/api"
	"RailSettle/internal/core/capability"
	"RailSettle/internal/core/mandate"
	"RailSettle/internal/core/microdeposit"
	"RailSettle/internal/core/nacha"
	"RailSettle/internal/core/ports"
	"RailSettle/internal/core/risk"
	"RailSettle/internal/core/strategy"
	"RailSettle/internal/shared/config"
	"RailSettle/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	isDevMode := cfg.AppEnv == "dev"
	baseLogger := logger.New(isDevMode)
	baseLogger.Info().
		Str("app_env", cfg.AppEnv).
		Str("http_addr", cfg.HTTP.Addr).
		Msg("Configuration loaded")

	// 3. Initialize the Vault
	keyBytes, err := hex.DecodeString(cfg.EncryptionKey)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to decode ENCRYPTION_KEY. It must be hex-encoded.")
	}
	vault, err := security.NewAESVault(keyBytes, &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize vault")
	}

	// 4. Initialize Database
	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Postgres.URL, &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// 5. Initialize Repositories
	accountRepo := postgres.NewBankAccountRepository(db, &baseLogger)
	mandateRepo := postgres.NewMandateRepository(db, &baseLogger)
	transferRepo := postgres.NewTransferRepository(db, &baseLogger)
	microdepositRepo := postgres.NewMicrodepositRepository(db, &baseLogger)
	riskEventRepo := postgres.NewRiskEventRepository(db, &baseLogger)

	// 6. Negative list on Redis. A dead Redis degrades the risk engine
	// to fail-open on that one check, so startup only warns.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		baseLogger.Warn().Err(err).Msg("Redis ping failed; negative-list checks will fail open")
	}
	cancelPing()
	defer redisClient.Close()
	negList := negativelist.NewRedisNegativeList(redisClient, &baseLogger)

	// 7. Event bus, plus the RabbitMQ forwarder when a broker is
	// configured.
	bus := eventbus.NewInMemoryEventBus(&baseLogger)
	if cfg.RabbitMQ.URL != "" {
		forwarder, err := eventbus.NewRabbitMQForwarder(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, &baseLogger)
		if err != nil {
			baseLogger.Warn().Err(err).Msg("RabbitMQ unavailable; events stay in-process only")
		} else {
			defer forwarder.Close()
			forwarder.Attach(bus,
				ports.TopicRiskAssessed,
				ports.TopicTransferReturned,
				ports.TopicMandateRevoked,
				ports.TopicBatchBuilt,
			)
		}
	}

	// 8. Core engines
	detector := capability.NewDetector(&baseLogger)
	selector := strategy.NewSelector(strategy.DefaultCatalog(), &baseLogger)
	mandateEngine := mandate.NewEngine(mandateRepo, transferRepo, bus, &baseLogger)
	riskEngine := risk.NewEngine(risk.DefaultConfig(), transferRepo, negList, vault, mandateEngine, riskEventRepo, bus, &baseLogger)
	mdService := microdeposit.NewService(microdeposit.DefaultConfig(), microdepositRepo, accountRepo, &baseLogger)
	builder := nacha.NewBuilder(nacha.OriginConfig{
		ImmediateDestination: cfg.Origin.ImmediateDestination,
		ImmediateOrigin:      cfg.Origin.ImmediateOrigin,
		DestinationName:      cfg.Origin.DestinationName,
		OriginName:           cfg.Origin.OriginName,
		CompanyName:          cfg.Origin.CompanyName,
		CompanyID:            cfg.Origin.CompanyID,
		ODFIRoutingNumber:    cfg.Origin.ODFIRoutingNumber,
		FileIDModifier:       cfg.Origin.FileIDModifier[0],
	}, vault, &baseLogger)

	// 9. HTTP surface
	handler := api.NewHandler(accountRepo, mandateRepo, transferRepo, vault, negList, bus,
		detector, selector, mandateEngine, riskEngine, mdService, builder, &baseLogger)
	router := api.NewRouter(handler, cfg.HTTP.JWTSecret)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		baseLogger.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			baseLogger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// 10. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	baseLogger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error().Err(err).Msg("Forced shutdown")
	}
	baseLogger.Info().Msg("Server stopped")
}
