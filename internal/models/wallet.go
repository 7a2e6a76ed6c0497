package models

import (
	"time"

	"github.com/google/uuid"
)

// UserWallet — кошелёк, привязанный к аккаунту. is_primary ровно у
// одного кошелька пользователя: его подпись требуется для привязки
// каждого следующего.
type UserWallet struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Address     string    `json:"address"`
	WalletType  string    `json:"wallet_type"`  // hashpack/blade/.../nami/...
	ChainFamily string    `json:"chain_family"` // hedera/cardano
	PublicKey   string    `json:"public_key"`   // hex
	IsPrimary   bool      `json:"is_primary"`
	FirstUsedAt time.Time `json:"first_used_at"`
	LastUsedAt  time.Time `json:"last_used_at"`
	CreatedAt   time.Time `json:"created_at"`
}
