package handlers

import (
	"github.com/harvestledger/backend/internal/config"
	"github.com/harvestledger/backend/internal/http/dto"
	"github.com/harvestledger/backend/internal/middleware"
	"github.com/harvestledger/backend/internal/repositories"
	"github.com/harvestledger/backend/internal/services"
	"github.com/harvestledger/backend/internal/wallet"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type TokenHandler struct {
	tokens *services.TokenService
	subs   *repositories.SubmissionRepo
	cfg    *config.Config
	log    *zap.Logger
}

func NewTokenHandler(tokens *services.TokenService, subs *repositories.SubmissionRepo, cfg *config.Config, log *zap.Logger) *TokenHandler {
	return &TokenHandler{tokens: tokens, subs: subs, cfg: cfg, log: log}
}

func parseFamily(c *fiber.Ctx, raw string) (wallet.ChainFamily, bool) {
	family := wallet.ChainFamily(raw)
	if !family.Valid() {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "unknown chain family"})
		return "", false
	}
	return family, true
}

// Mint чеканит crop-токен на подключённом кошельке.
// POST /tokens/mint
func (h *TokenHandler) Mint(c *fiber.Ctx) error {
	var req dto.MintRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	family, ok := parseFamily(c, req.Family)
	if !ok {
		return nil
	}

	res, err := h.tokens.MintCropToken(c.Context(), middleware.GetUserID(c), family, req.Params)
	if err != nil {
		h.log.Debug("mint failed", zap.Error(err))
		return walletError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: res})
}

// Transfer переводит токен.
// POST /tokens/transfer
func (h *TokenHandler) Transfer(c *fiber.Ctx) error {
	var req dto.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	family, ok := parseFamily(c, req.Family)
	if !ok {
		return nil
	}

	res, err := h.tokens.TransferToken(c.Context(), middleware.GetUserID(c), family, req.Params)
	if err != nil {
		h.log.Debug("transfer failed", zap.Error(err))
		return walletError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: res})
}

// EstimateFee — оценка комиссии без побочных эффектов.
// POST /tokens/estimate-fee
func (h *TokenHandler) EstimateFee(c *fiber.Ctx) error {
	var req dto.EstimateFeeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	family, ok := parseFamily(c, req.Family)
	if !ok {
		return nil
	}

	fee, err := h.tokens.EstimateTransferFee(c.Context(), family, req.Params)
	if err != nil {
		return walletError(c, err)
	}
	display, _ := wallet.FormatNative(family, fee)
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"fee":         fee,
		"fee_display": display,
		"symbol":      wallet.NativeSymbol(family),
	}})
}

// Lookup ищет токен по policy id / token id для страницы верификации.
// GET /verify/:family/:policyId
func (h *TokenHandler) Lookup(c *fiber.Ctx) error {
	family, ok := parseFamily(c, c.Params("family"))
	if !ok {
		return nil
	}
	policyID := c.Params("policyId")
	assetName := c.Query("asset_name")

	info, err := h.tokens.GetTokenInfo(c.Context(), family, policyID, assetName)
	if err == wallet.ErrTokenNotFound {
		// «Не найдено» — валидный ответ поиска, не ошибка.
		return c.JSON(dto.TokenLookupResponse{Found: false})
	}
	if err != nil {
		return walletError(c, err)
	}

	resp := dto.TokenLookupResponse{Found: true, Token: info}
	if info.MintTxHash != "" {
		networkID := h.cfg.HederaNetworkID
		if family == wallet.FamilyCardano {
			networkID = h.cfg.CardanoNetworkID
		}
		resp.ExplorerURL = wallet.ExplorerTxURL(family, networkID, info.MintTxHash)
	}
	return c.JSON(resp)
}

// Balance — свежий баланс подключённого кошелька.
// GET /me/wallet/:family/balance
func (h *TokenHandler) Balance(c *fiber.Ctx) error {
	family, ok := parseFamily(c, c.Params("family"))
	if !ok {
		return nil
	}
	bal, err := h.tokens.WalletBalance(c.Context(), family)
	if err != nil {
		return walletError(c, err)
	}
	display, _ := wallet.FormatNative(family, bal.Native)
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"native":         bal.Native,
		"native_display": display,
		"symbol":         wallet.NativeSymbol(family),
		"assets":         bal.Assets,
	}})
}

// Status — статус машины операций семейства (для блокировки форм).
// GET /tokens/:family/operation-status
func (h *TokenHandler) Status(c *fiber.Ctx) error {
	family, ok := parseFamily(c, c.Params("family"))
	if !ok {
		return nil
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"status": h.tokens.OperationStatus(family),
	}})
}

// History — отправленные транзакции пользователя, новые первыми.
// GET /me/transactions
func (h *TokenHandler) History(c *fiber.Ctx) error {
	subs, err := h.subs.ListByUser(c.Context(), middleware.GetUserID(c), 50)
	if err != nil {
		h.log.Error("failed to list submissions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: subs})
}
