package wallet

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Масштабы минимальных единиц — явные per-chain константы.
// Балансы и комиссии везде хранятся целыми в минимальных единицах;
// десятичное представление всегда производное, никогда не хранится.
const (
	// 1 HBAR = 100_000_000 tinybar
	HederaUnitScale int32 = 8
	// 1 ADA = 1_000_000 lovelace
	CardanoUnitScale int32 = 6
)

func UnitScale(family ChainFamily) int32 {
	if family == FamilyHedera {
		return HederaUnitScale
	}
	return CardanoUnitScale
}

func NativeSymbol(family ChainFamily) string {
	if family == FamilyHedera {
		return "HBAR"
	}
	return "ADA"
}

// FormatNative переводит целую сумму в минимальных единицах в
// десятичную строку для отображения.
func FormatNative(family ChainFamily, minorUnits string) (string, error) {
	d, err := decimal.NewFromString(minorUnits)
	if err != nil {
		return "", fmt.Errorf("parse native amount %q: %w", minorUnits, err)
	}
	return d.Shift(-UnitScale(family)).String(), nil
}

// ParseQuantity разбирает количество токена как неотрицательное целое
// произвольной точности. Дробные и отрицательные значения отклоняются.
func ParseQuantity(s string) (*big.Int, error) {
	q, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("quantity %q is not an integer", s)
	}
	if q.Sign() <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %q", s)
	}
	return q, nil
}
