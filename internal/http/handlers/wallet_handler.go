package handlers

import (
	"github.com/google/uuid"

	"github.com/harvestledger/backend/internal/http/dto"
	"github.com/harvestledger/backend/internal/middleware"
	"github.com/harvestledger/backend/internal/services"
	"github.com/harvestledger/backend/internal/wallet"
	"github.com/harvestledger/backend/internal/walletauth"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type WalletHandler struct {
	manager *wallet.Manager
	linking *services.LinkingService
	log     *zap.Logger
}

func NewWalletHandler(manager *wallet.Manager, linking *services.LinkingService, log *zap.Logger) *WalletHandler {
	return &WalletHandler{manager: manager, linking: linking, log: log}
}

// Connect подключает кошелёк через адаптер провайдера.
// POST /me/wallet/connect
func (h *WalletHandler) Connect(c *fiber.Ctx) error {
	var req dto.ConnectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.ProviderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "provider_id is required"})
	}

	conn, err := h.manager.Connect(c.Context(), req.ProviderID)
	if err != nil {
		return walletError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: conn})
}

// Disconnect отключает активный кошелёк семейства.
// DELETE /me/wallet/:family
func (h *WalletHandler) Disconnect(c *fiber.Ctx) error {
	family := wallet.ChainFamily(c.Params("family"))
	if !family.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "unknown chain family"})
	}
	h.manager.Disconnect(family)
	return c.JSON(dto.SuccessResponse{OK: true})
}

// GetConnection возвращает активное подключение семейства (или null).
// GET /me/wallet/:family
func (h *WalletHandler) GetConnection(c *fiber.Ctx) error {
	family := wallet.ChainFamily(c.Params("family"))
	if !family.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "unknown chain family"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.manager.Connected(family)})
}

// Link привязывает дополнительный кошелёк (две подписи).
// POST /me/wallets/link
func (h *WalletHandler) Link(c *fiber.Ctx) error {
	var req walletauth.LinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.NewWalletAddress == "" || req.Message == "" ||
		req.NewWalletSignature == "" || req.PrimaryWalletSignature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "address, message and both signatures are required"})
	}

	userID := middleware.GetUserID(c)
	w, err := h.linking.LinkWallet(c.Context(), userID, req)
	if err != nil {
		h.log.Debug("wallet link failed", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: w})
}

// List возвращает кошельки аккаунта, primary первым.
// GET /me/wallets
func (h *WalletHandler) List(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	wallets, err := h.linking.ListWallets(c.Context(), userID)
	if err != nil {
		h.log.Error("failed to list wallets", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: wallets})
}

// SetPrimary переносит primary-флаг.
// POST /me/wallets/primary
func (h *WalletHandler) SetPrimary(c *fiber.Ctx) error {
	var req dto.SetPrimaryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid wallet_id"})
	}

	userID := middleware.GetUserID(c)
	if err := h.linking.SetPrimaryWallet(c.Context(), userID, walletID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// walletError переводит код таксономии в HTTP-статус, не теряя код.
func walletError(c *fiber.Ctx, err error) error {
	code := wallet.CodeOf(err)
	status := fiber.StatusBadRequest
	switch code {
	case wallet.ErrInsufficientBalance:
		status = fiber.StatusUnprocessableEntity
	case wallet.ErrNetworkMismatch:
		status = fiber.StatusConflict
	case wallet.ErrConnectionTimeout:
		status = fiber.StatusGatewayTimeout
	case wallet.ErrNetworkError:
		status = fiber.StatusBadGateway
	case wallet.ErrUnknown:
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: err.Error(), Code: string(code)})
}
