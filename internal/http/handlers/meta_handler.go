package handlers

import (
	"github.com/harvestledger/backend/internal/config"
	"github.com/harvestledger/backend/internal/http/dto"
	"github.com/harvestledger/backend/internal/wallet"
	"github.com/gofiber/fiber/v2"
)

type MetaHandler struct {
	registry *wallet.Registry
	cfg      *config.Config
}

func NewMetaHandler(registry *wallet.Registry, cfg *config.Config) *MetaHandler {
	return &MetaHandler{registry: registry, cfg: cfg}
}

type WalletDescriptor struct {
	ID        string `json:"id"`
	Family    string `json:"family"`
	Installed bool   `json:"installed"`
}

// GetWallets возвращает поддерживаемые кошельки и их доступность.
// GET /meta/wallets
func (h *MetaHandler) GetWallets(c *fiber.Ctx) error {
	families := []wallet.ChainFamily{wallet.FamilyHedera, wallet.FamilyCardano}
	out := make([]WalletDescriptor, 0, 16)
	for _, family := range families {
		for _, p := range h.registry.ByFamily(family) {
			out = append(out, WalletDescriptor{
				ID:        p.ID(),
				Family:    string(family),
				Installed: p.IsAvailable(c.Context()),
			})
		}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: out})
}

// GetNetworks сообщает, на какие сети смотрит сервер.
// GET /meta/networks
func (h *MetaHandler) GetNetworks(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"hedera": fiber.Map{
			"network": h.cfg.HederaNetwork,
			"symbol":  wallet.NativeSymbol(wallet.FamilyHedera),
			"scale":   wallet.HederaUnitScale,
		},
		"cardano": fiber.Map{
			"network": h.cfg.CardanoNetwork,
			"symbol":  wallet.NativeSymbol(wallet.FamilyCardano),
			"scale":   wallet.CardanoUnitScale,
		},
	}})
}
