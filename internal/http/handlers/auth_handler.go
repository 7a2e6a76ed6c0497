package handlers

import (
	"github.com/harvestledger/backend/internal/http/dto"
	"github.com/harvestledger/backend/internal/services"
	"github.com/harvestledger/backend/internal/walletauth"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	identity *services.IdentityService
	log      *zap.Logger
}

func NewAuthHandler(identity *services.IdentityService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{identity: identity, log: log}
}

// SendCode шлёт OTP-код на e-mail.
// POST /auth/email/send-code
func (h *AuthHandler) SendCode(c *fiber.Ctx) error {
	var req dto.SendCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "email is required"})
	}

	if err := h.identity.RequestEmailCode(c.Context(), req.Email); err != nil {
		h.log.Debug("send code failed", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// VerifyCode проверяет OTP-код.
// POST /auth/email/verify-code
func (h *AuthHandler) VerifyCode(c *fiber.Ctx) error {
	var req dto.VerifyCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Email == "" || req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "email and code are required"})
	}

	if err := h.identity.ConfirmEmail(c.Context(), req.Email, req.Code); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// Nonce выдаёт одноразовый nonce и готовое сообщение для подписи.
// POST /auth/wallet/nonce
func (h *AuthHandler) Nonce(c *fiber.Ctx) error {
	var req dto.NonceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Address == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "address is required"})
	}

	nonce, err := h.identity.IssueSignInNonce(c.Context(), req.Address)
	if err != nil {
		h.log.Error("failed to issue nonce", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.NonceResponse{
		Nonce:   nonce,
		Message: walletauth.BuildSignInMessage(req.Address, nonce),
	})
}

// Register завершает регистрацию: подтверждённый e-mail + подпись кошелька.
// POST /auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Email == "" || req.Address == "" || req.Signature == "" || req.Nonce == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "email, address, nonce and signature are required"})
	}

	res, err := h.identity.CompleteRegistration(c.Context(), req)
	if err != nil {
		h.log.Debug("registration failed", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.AuthResponse{Token: res.Token, User: res.User, Wallet: res.Wallet})
}

// Login — вход по подписи привязанного кошелька.
// POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req services.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Address == "" || req.Signature == "" || req.Nonce == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "address, nonce and signature are required"})
	}

	res, err := h.identity.Login(c.Context(), req)
	if err != nil {
		h.log.Debug("login failed", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.AuthResponse{Token: res.Token, User: res.User, Wallet: res.Wallet})
}
