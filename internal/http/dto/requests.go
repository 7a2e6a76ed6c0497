package dto

import "github.com/harvestledger/backend/internal/wallet"

type SendCodeRequest struct {
	Email string `json:"email"`
}

type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type NonceRequest struct {
	Address string `json:"address"`
}

type ConnectRequest struct {
	ProviderID string `json:"provider_id"` // hashpack / blade / ... / nami / eternl / ...
}

type SetPrimaryRequest struct {
	WalletID string `json:"wallet_id"`
}

type MintRequest struct {
	Family string            `json:"family"` // hedera / cardano
	Params wallet.MintParams `json:"params"`
}

type TransferRequest struct {
	Family string                `json:"family"`
	Params wallet.TransferParams `json:"params"`
}

type EstimateFeeRequest struct {
	Family string                `json:"family"`
	Params wallet.TransferParams `json:"params"`
}
