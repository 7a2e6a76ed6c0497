// Package hedera — адаптеры кошельков семейства Hedera: нативные
// (HashPack, Blade, Kabila, Portal) и MetaMask в EVM-режиме. Каждый
// адаптер переводит вызовы контракта wallet.Provider в vendor-specific
// запросы к расширению и классифицирует его ошибки в общую таксономию.
package hedera

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/harvestledger/backend/internal/wallet"
)

// ConnectTimeout — ограничение ожидания ответа расширения на connect.
// Подпись и отправка таймаутом не ограничиваются: там UX кошелька.
const ConnectTimeout = 60 * time.Second

// EIP-1193: 4001 — пользователь отклонил запрос.
const vendorUserRejected = 4001

var accountIDRe = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Provider реализует wallet.Provider для одного Hedera-кошелька.
type Provider struct {
	id        string
	session   wallet.Session
	networkID int // 0 = testnet, 1 = mainnet
	evm       bool
}

// New — адаптер нативного Hedera-кошелька (ed25519-подписи, адреса 0.0.x).
func New(id string, session wallet.Session, networkID int) *Provider {
	return &Provider{id: id, session: session, networkID: networkID}
}

// NewMetaMask — адаптер MetaMask: secp256k1, personal_sign, 0x-адреса.
func NewMetaMask(session wallet.Session, networkID int) *Provider {
	return &Provider{id: "metamask", session: session, networkID: networkID, evm: true}
}

func (p *Provider) ID() string                 { return p.id }
func (p *Provider) Family() wallet.ChainFamily { return wallet.FamilyHedera }

func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.session.Available(ctx)
}

func (p *Provider) Connect(ctx context.Context) (*wallet.Connection, error) {
	if !p.session.Available(ctx) {
		return nil, wallet.NewErrorf(wallet.ErrNotInstalled, "%s extension is not installed", p.id).
			WithDetail("walletName", p.id)
	}

	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	raw, err := p.session.Invoke(ctx, "connect", nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, wallet.NewErrorf(wallet.ErrConnectionTimeout, "%s did not respond", p.id)
		}
		return nil, p.classify(err, "connect")
	}

	var resp struct {
		Address   string `json:"address"`
		PublicKey string `json:"public_key"`
		NetworkID int    `json:"network_id"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, wallet.NewErrorf(wallet.ErrUnknown, "malformed connect response: %v", err)
	}

	if resp.NetworkID != p.networkID {
		return nil, wallet.NewErrorf(wallet.ErrNetworkMismatch,
			"wallet is on network %d, expected %d", resp.NetworkID, p.networkID)
	}

	return &wallet.Connection{
		Family:     wallet.FamilyHedera,
		ProviderID: p.id,
		Address:    resp.Address,
		PublicKey:  resp.PublicKey,
		NetworkID:  resp.NetworkID,
	}, nil
}

func (p *Provider) SignMessage(ctx context.Context, message string) (*wallet.SignatureResult, error) {
	raw, err := p.session.Invoke(ctx, "sign_message", map[string]string{"message": message})
	if err != nil {
		return nil, p.classify(err, "sign")
	}
	var res wallet.SignatureResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, wallet.NewErrorf(wallet.ErrUnknown, "malformed signature response: %v", err)
	}
	return &res, nil
}

func (p *Provider) BuildAndSign(ctx context.Context, intent wallet.TxIntent) (*wallet.SignedTx, error) {
	body, err := buildTxBody(intent)
	if err != nil {
		return nil, err
	}
	raw, err := p.session.Invoke(ctx, "build_and_sign", body)
	if err != nil {
		return nil, p.classify(err, "sign")
	}
	var tx struct {
		Blob     []byte `json:"blob"`
		BodyHash string `json:"body_hash"`
	}
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, wallet.NewErrorf(wallet.ErrUnknown, "malformed signed tx: %v", err)
	}
	return &wallet.SignedTx{Blob: tx.Blob, BodyHash: tx.BodyHash}, nil
}

func (p *Provider) Submit(ctx context.Context, tx *wallet.SignedTx) (*wallet.SubmitResult, error) {
	raw, err := p.session.Invoke(ctx, "submit", map[string]string{"body_hash": tx.BodyHash})
	if err != nil {
		return nil, p.classify(err, "submit")
	}
	var res wallet.SubmitResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, wallet.NewErrorf(wallet.ErrUnknown, "malformed submit response: %v", err)
	}
	return &res, nil
}

func (p *Provider) GetBalance(ctx context.Context) (*wallet.Balance, error) {
	raw, err := p.session.Invoke(ctx, "get_balance", nil)
	if err != nil {
		return nil, p.classify(err, "query")
	}
	var bal wallet.Balance
	if err := json.Unmarshal(raw, &bal); err != nil {
		return nil, wallet.NewErrorf(wallet.ErrUnknown, "malformed balance response: %v", err)
	}
	return &bal, nil
}

func (p *Provider) GetAssets(ctx context.Context) ([]wallet.Asset, error) {
	raw, err := p.session.Invoke(ctx, "get_assets", nil)
	if err != nil {
		return nil, p.classify(err, "query")
	}
	var assets []wallet.Asset
	if err := json.Unmarshal(raw, &assets); err != nil {
		return nil, wallet.NewErrorf(wallet.ErrUnknown, "malformed assets response: %v", err)
	}
	return assets, nil
}

func (p *Provider) GetTokenInfo(ctx context.Context, tokenID, assetName string) (*wallet.TokenInfo, error) {
	raw, err := p.session.Invoke(ctx, "get_token_info", map[string]string{
		"policy_id":  tokenID,
		"asset_name": assetName,
	})
	if err != nil {
		return nil, p.classify(err, "query")
	}
	if string(raw) == "null" {
		return nil, wallet.ErrTokenNotFound
	}
	var info wallet.TokenInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, wallet.NewErrorf(wallet.ErrUnknown, "malformed token info: %v", err)
	}
	return &info, nil
}

func (p *Provider) EstimateFee(ctx context.Context, intent wallet.TxIntent) (string, error) {
	body, err := buildTxBody(intent)
	if err != nil {
		return "", err
	}
	raw, err := p.session.Invoke(ctx, "estimate_fee", body)
	if err != nil {
		return "", p.classify(err, "query")
	}
	var res struct {
		Fee string `json:"fee"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", wallet.NewErrorf(wallet.ErrUnknown, "malformed fee response: %v", err)
	}
	return res.Fee, nil
}

// ValidateAddress: shard.realm.num для нативных кошельков,
// 0x-адрес для EVM-режима.
func (p *Provider) ValidateAddress(address string) bool {
	if p.evm {
		return ethcommon.IsHexAddress(address)
	}
	return accountIDRe.MatchString(address)
}

// classify переводит vendor-код расширения в таксономию. Происходит
// только здесь: выше по стеку коды не выводятся заново из текста ошибки.
func (p *Provider) classify(err error, op string) error {
	var se *wallet.SessionError
	if errors.As(err, &se) {
		if se.VendorCode == vendorUserRejected || se.VendorCode == 2 {
			return wallet.NewError(wallet.ErrUserRejected, se.Message)
		}
		if op == "submit" || op == "query" {
			return wallet.NewError(wallet.ErrNetworkError, se.Message)
		}
		return wallet.NewError(wallet.ErrUnknown, se.Message)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return wallet.NewError(wallet.ErrNetworkError, err.Error())
	}
	return wallet.NewError(wallet.ErrUnknown, err.Error())
}

// buildTxBody собирает тело транзакции в wire-форме Hedera:
// чеканка — TokenCreate+TokenMint с метаданными в memo,
// перевод — CryptoTransfer с token id.
func buildTxBody(intent wallet.TxIntent) (map[string]any, error) {
	switch intent.Kind {
	case wallet.IntentMint:
		m := intent.Mint
		meta, err := json.Marshal(m.Metadata)
		if err != nil {
			return nil, wallet.NewErrorf(wallet.ErrInvalidMetadata, "encode metadata: %v", err)
		}
		return map[string]any{
			"kind":       "mint",
			"token_name": m.Metadata.Name,
			"symbol":     tokenSymbol(m.CropType),
			"quantity":   m.Quantity,
			"memo":       string(meta),
			"recipient":  m.RecipientAddress,
		}, nil
	case wallet.IntentTransfer:
		t := intent.Transfer
		return map[string]any{
			"kind":      "transfer",
			"token_id":  t.PolicyID,
			"quantity":  t.Quantity,
			"recipient": t.RecipientAddress,
			"memo":      t.Memo,
		}, nil
	default:
		return nil, wallet.NewErrorf(wallet.ErrInvalidParams, "unsupported intent kind %q", intent.Kind)
	}
}

func tokenSymbol(cropType string) string {
	sym := make([]rune, 0, 8)
	for _, r := range cropType {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			if r >= 'a' && r <= 'z' {
				r -= 'a' - 'A'
			}
			sym = append(sym, r)
		}
		if len(sym) == 8 {
			break
		}
	}
	if len(sym) == 0 {
		return "CROP"
	}
	return string(sym)
}
