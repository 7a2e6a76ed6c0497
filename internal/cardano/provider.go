// Package cardano — CIP-30 адаптеры кошельков Cardano: Nami, Eternl,
// Flint, Lace, Typhon. Адреса проверяются по bech32-грамматике, policy id
// чеканки выводится как blake2b-224 (56 hex-символов), метаданные токена
// прикладываются по CIP-25 (label 721).
package cardano

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/harvestledger/backend/internal/wallet"
)

const ConnectTimeout = 60 * time.Second

// CIP-30 vendor-коды: APIError.Refused = -3 (отказ на connect),
// TxSignError.UserDeclined = 2, TxSendError.Failure = 1.
const (
	vendorAPIRefused   = -3
	vendorUserDeclined = 2
	vendorSendFailure  = 1
)

type Provider struct {
	id        string
	session   wallet.Session
	networkID int // 0 = preprod/testnet, 1 = mainnet
}

func New(id string, session wallet.Session, networkID int) *Provider {
	return &Provider{id: id, session: session, networkID: networkID}
}

func (p *Provider) ID() string                 { return p.id }
func (p *Provider) Family() wallet.ChainFamily { return wallet.FamilyCardano }

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

	// CIP-30 getNetworkId: 0 = testnet, 1 = mainnet.
	if resp.NetworkID != p.networkID {
		return nil, wallet.NewErrorf(wallet.ErrNetworkMismatch,
			"wallet is on network %d, expected %d", resp.NetworkID, p.networkID)
	}

	return &wallet.Connection{
		Family:     wallet.FamilyCardano,
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
	body, err := p.buildTxBody(intent)
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

func (p *Provider) GetTokenInfo(ctx context.Context, policyID, assetName string) (*wallet.TokenInfo, error) {
	raw, err := p.session.Invoke(ctx, "get_token_info", map[string]string{
		"policy_id":  policyID,
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
	body, err := p.buildTxBody(intent)
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

func (p *Provider) ValidateAddress(address string) bool {
	return ValidAddress(address, p.networkID)
}

func (p *Provider) classify(err error, op string) error {
	var se *wallet.SessionError
	if errors.As(err, &se) {
		switch se.VendorCode {
		case vendorAPIRefused, vendorUserDeclined:
			return wallet.NewError(wallet.ErrUserRejected, se.Message)
		case vendorSendFailure:
			return wallet.NewError(wallet.ErrNetworkError, se.Message)
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

// buildTxBody: чеканка несёт CIP-25 метаданные под label 721,
// перевод — выход на адрес получателя с мультиассетом.
func (p *Provider) buildTxBody(intent wallet.TxIntent) (map[string]any, error) {
	switch intent.Kind {
	case wallet.IntentMint:
		m := intent.Mint
		policyID := m.PolicyID
		if policyID == "" {
			policyID = DerivePolicyID(m.CropType, time.Now())
		}
		assetName := m.AssetName
		if assetName == "" {
			assetName = AssetName(m.CropType)
		}
		return map[string]any{
			"kind":       "mint",
			"policy_id":  policyID,
			"asset_name": assetName,
			"quantity":   m.Quantity,
			"metadata":   CIP25Metadata(policyID, assetName, m.Metadata),
			"recipient":  m.RecipientAddress,
		}, nil
	case wallet.IntentTransfer:
		t := intent.Transfer
		return map[string]any{
			"kind":       "transfer",
			"policy_id":  t.PolicyID,
			"asset_name": t.AssetName,
			"quantity":   t.Quantity,
			"recipient":  t.RecipientAddress,
			"memo":       t.Memo,
		}, nil
	default:
		return nil, wallet.NewErrorf(wallet.ErrInvalidParams, "unsupported intent kind %q", intent.Kind)
	}
}
