package main

import (
	"github.com/harvestledger/backend/internal/cardano"
	"github.com/harvestledger/backend/internal/config"
	"github.com/harvestledger/backend/internal/hedera"
	"github.com/harvestledger/backend/internal/simchain"
	"github.com/harvestledger/backend/internal/wallet"
)

// buildProviders собирает адаптеры для всех поддерживаемых кошельков.
// Сессии пока симулируются (мост к расширениям живёт на клиенте),
// ключи и подписи при этом настоящие.
func buildProviders(cfg *config.Config) []wallet.Provider {
	hederaSession := func() wallet.Session {
		return simchain.New(wallet.FamilyHedera, simchain.KeyEd25519,
			simchain.WithNetworkID(cfg.HederaNetworkID))
	}
	cardanoSession := func() wallet.Session {
		return simchain.New(wallet.FamilyCardano, simchain.KeyEd25519,
			simchain.WithNetworkID(cfg.CardanoNetworkID))
	}

	providers := []wallet.Provider{
		hedera.NewMetaMask(
			simchain.New(wallet.FamilyHedera, simchain.KeySecp256k1,
				simchain.WithNetworkID(cfg.HederaNetworkID)),
			cfg.HederaNetworkID,
		),
	}
	for _, id := range []string{"hashpack", "blade", "kabila", "portal"} {
		providers = append(providers, hedera.New(id, hederaSession(), cfg.HederaNetworkID))
	}
	for _, id := range []string{"nami", "eternl", "flint", "lace", "typhon"} {
		providers = append(providers, cardano.New(id, cardanoSession(), cfg.CardanoNetworkID))
	}
	return providers
}
