package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harvestledger/backend/internal/config"
	"github.com/harvestledger/backend/internal/db"
	"github.com/harvestledger/backend/internal/events"
	apphttp "github.com/harvestledger/backend/internal/http"
	"github.com/harvestledger/backend/internal/http/handlers"
	"github.com/harvestledger/backend/internal/repositories"
	"github.com/harvestledger/backend/internal/services"
	"github.com/harvestledger/backend/internal/wallet"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	walletRepo := repositories.NewWalletRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	subRepo := repositories.NewSubmissionRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Wallet providers
	registry := wallet.NewRegistry(buildProviders(cfg)...)
	manager := wallet.NewManager(registry, log)

	// Services
	otpService := services.NewOTPService(rdb, services.NewLogSender(log), cfg, log)
	identityService := services.NewIdentityService(userRepo, walletRepo, auditRepo, otpService, rdb, cfg, log)
	linkingService := services.NewLinkingService(walletRepo, auditRepo, publisher, cfg, log)
	tokenService := services.NewTokenService(manager, subRepo, publisher, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(identityService, log)
	userHandler := handlers.NewUserHandler(userRepo, log)
	walletHandler := handlers.NewWalletHandler(manager, linkingService, log)
	tokenHandler := handlers.NewTokenHandler(tokenService, subRepo, cfg, log)
	metaHandler := handlers.NewMetaHandler(registry, cfg)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, userHandler, walletHandler, tokenHandler, metaHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
