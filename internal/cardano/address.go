package cardano

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/blake2b"

	"github.com/harvestledger/backend/internal/wallet"
)

// ValidAddress проверяет bech32-адрес Shelley и принадлежность сети:
// addr1... — mainnet, addr_test1... — testnet/preprod.
func ValidAddress(address string, networkID int) bool {
	hrp, _, err := bech32.DecodeNoLimit(address)
	if err != nil {
		return false
	}
	switch networkID {
	case 1:
		return hrp == "addr"
	default:
		return hrp == "addr_test"
	}
}

// DerivePolicyID выводит policy id из типа культуры и момента чеканки:
// blake2b-224, как у нативного скрипта — 28 байт, 56 hex-символов.
func DerivePolicyID(cropType string, at time.Time) string {
	h, err := blake2b.New(28, nil)
	if err != nil {
		panic(err)
	}
	h.Write([]byte(strings.ToLower(strings.TrimSpace(cropType))))
	h.Write([]byte(at.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(h.Sum(nil))
}

// AssetName нормализует тип культуры в имя актива: латиница и цифры,
// верхний регистр, не длиннее 32 байт (ограничение Cardano).
func AssetName(cropType string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(cropType) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == 32 {
			break
		}
	}
	if b.Len() == 0 {
		return "HARVEST"
	}
	return b.String()
}

// CIP25Metadata собирает метаданные токена под label 721.
func CIP25Metadata(policyID, assetName string, meta wallet.TokenMetadata) map[string]any {
	entry := map[string]any{
		"name":        meta.Name,
		"description": meta.Description,
		"harvestDate": meta.HarvestDate,
		"location":    meta.Location,
	}
	if meta.Image != "" {
		entry["image"] = meta.Image
	}
	if len(meta.Certifications) > 0 {
		entry["certifications"] = meta.Certifications
	}
	if len(meta.Attributes) > 0 {
		entry["attributes"] = meta.Attributes
	}
	return map[string]any{
		"721": map[string]any{
			policyID: map[string]any{
				assetName: entry,
			},
		},
	}
}
