package http

import (
	"time"

	"github.com/harvestledger/backend/internal/config"
	"github.com/harvestledger/backend/internal/http/handlers"
	"github.com/harvestledger/backend/internal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	walletHandler *handlers.WalletHandler,
	tokenHandler *handlers.TokenHandler,
	metaHandler *handlers.MetaHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Rate-limited public endpoints
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Auth (public)
	api.Post("/auth/email/send-code", authHandler.SendCode)
	api.Post("/auth/email/verify-code", authHandler.VerifyCode)
	api.Post("/auth/wallet/nonce", authHandler.Nonce)
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)

	// Meta (public, no auth required)
	api.Get("/meta/wallets", metaHandler.GetWallets)
	api.Get("/meta/networks", metaHandler.GetNetworks)

	// Verification lookup (public)
	api.Get("/verify/:family/:policyId", tokenHandler.Lookup)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// User
	protected.Get("/me", userHandler.GetMe)
	protected.Post("/me/ping", userHandler.Ping)
	protected.Get("/me/transactions", tokenHandler.History)

	// Wallet connections
	protected.Post("/me/wallet/connect", walletHandler.Connect)
	protected.Get("/me/wallet/:family", walletHandler.GetConnection)
	protected.Delete("/me/wallet/:family", walletHandler.Disconnect)
	protected.Get("/me/wallet/:family/balance", tokenHandler.Balance)

	// Linked wallets
	protected.Get("/me/wallets", walletHandler.List)
	protected.Post("/me/wallets/link", walletHandler.Link)
	protected.Post("/me/wallets/primary", walletHandler.SetPrimary)

	// Token operations
	protected.Post("/tokens/mint", tokenHandler.Mint)
	protected.Post("/tokens/transfer", tokenHandler.Transfer)
	protected.Post("/tokens/estimate-fee", tokenHandler.EstimateFee)
	protected.Get("/tokens/:family/operation-status", tokenHandler.Status)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
