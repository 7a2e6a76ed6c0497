// Package simchain — детерминированный генератор правдоподобных ответов
// блокчейна. Подставляется вместо живого моста до расширения кошелька в
// демо-режиме и в тестах: фабрикует балансы, активы и хеши транзакций,
// но подписи делает настоящими ключами, чтобы верификация проходила
// по-честному.
package simchain

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/harvestledger/backend/internal/wallet"
)

// Vendor-коды, которыми настоящие расширения сообщают об отказе
// пользователя: 4001 — EIP-1193 (MetaMask, HashConnect-совместимые),
// 2 — CIP-30 TxSignError.UserDeclined.
const (
	CodeEVMUserRejected   = 4001
	CodeCIP30UserDeclined = 2
	CodeNetworkFailure    = -32000
)

type KeyKind string

const (
	KeyEd25519   KeyKind = "ed25519"
	KeySecp256k1 KeyKind = "secp256k1"
)

// Simulator реализует wallet.Session для одного кошелька.
type Simulator struct {
	mu sync.Mutex

	family    wallet.ChainFamily
	keyKind   KeyKind
	installed bool
	networkID int
	address   string

	edPriv  ed25519.PrivateKey
	edPub   ed25519.PublicKey
	ecdsaPK *ecdsa.PrivateKey

	native string
	assets []wallet.Asset
	tokens map[string]wallet.TokenInfo // policyID.assetName

	// Сценарные флаги для тестов.
	RejectConnect bool
	RejectSign    bool
	RejectSubmit  bool
	FailSubmit    bool
	WrongNetwork  bool

	signCalls   int
	submitCalls int
	mintSeq     int
	lastKind    string
}

type Option func(*Simulator)

func WithNative(minorUnits string) Option {
	return func(s *Simulator) { s.native = minorUnits }
}

func WithAsset(a wallet.Asset) Option {
	return func(s *Simulator) { s.assets = append(s.assets, a) }
}

func WithNetworkID(id int) Option {
	return func(s *Simulator) { s.networkID = id }
}

func NotInstalled() Option {
	return func(s *Simulator) { s.installed = false }
}

// New создаёт симулятор с настоящей ключевой парой. Для metamask
// используется secp256k1, для остальных кошельков — ed25519.
func New(family wallet.ChainFamily, keyKind KeyKind, opts ...Option) *Simulator {
	s := &Simulator{
		family:    family,
		keyKind:   keyKind,
		installed: true,
		networkID: 0,
		native:    "250000000",
		tokens:    make(map[string]wallet.TokenInfo),
	}

	switch keyKind {
	case KeySecp256k1:
		pk, err := ethcrypto.GenerateKey()
		if err != nil {
			panic(err)
		}
		s.ecdsaPK = pk
		s.address = ethcrypto.PubkeyToAddress(pk.PublicKey).Hex()
	default:
		pub, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			panic(err)
		}
		s.edPub, s.edPriv = pub, priv
		if family == wallet.FamilyHedera {
			s.address = fmt.Sprintf("0.0.%d", 1000+int(pub[0])<<8+int(pub[1]))
		} else {
			s.address = fabricateCardanoAddress(pub, 0)
		}
	}

	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Simulator) Address() string { return s.address }

func (s *Simulator) PublicKeyHex() string {
	if s.keyKind == KeySecp256k1 {
		return hex.EncodeToString(ethcrypto.FromECDSAPub(&s.ecdsaPK.PublicKey))
	}
	return hex.EncodeToString(s.edPub)
}

// SignCalls / SubmitCalls — счётчики для проверок вида «кошелёк не
// трогали до валидации».
func (s *Simulator) SignCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signCalls
}

func (s *Simulator) SubmitCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitCalls
}

// SetNative подменяет баланс между валидацией и подписью — для
// проверки пересчёта баланса в момент подписания.
func (s *Simulator) SetNative(minorUnits string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.native = minorUnits
}

func (s *Simulator) SetAssetQuantity(policyID, assetName, quantity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assets {
		if s.assets[i].PolicyID == policyID && s.assets[i].AssetName == assetName {
			s.assets[i].Quantity = quantity
			return
		}
	}
	s.assets = append(s.assets, wallet.Asset{PolicyID: policyID, AssetName: assetName, Quantity: quantity})
}

func (s *Simulator) Available(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.installed
}

func (s *Simulator) Invoke(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.installed {
		return nil, &wallet.SessionError{VendorCode: CodeNetworkFailure, Message: "extension not reachable"}
	}

	switch method {
	case "connect":
		return s.handleConnect()
	case "sign_message":
		return s.handleSignMessage(params)
	case "build_and_sign":
		return s.handleBuildAndSign(params)
	case "submit":
		return s.handleSubmit(params)
	case "get_balance":
		return marshal(wallet.Balance{Native: s.native, Assets: append([]wallet.Asset(nil), s.assets...)})
	case "get_assets":
		return marshal(append([]wallet.Asset(nil), s.assets...))
	case "get_token_info":
		return s.handleTokenInfo(params)
	case "estimate_fee":
		return s.handleEstimateFee()
	default:
		return nil, &wallet.SessionError{VendorCode: CodeNetworkFailure, Message: "unsupported method " + method}
	}
}

func (s *Simulator) rejectCode() int {
	if s.keyKind == KeySecp256k1 {
		return CodeEVMUserRejected
	}
	return CodeCIP30UserDeclined
}

func (s *Simulator) handleConnect() (json.RawMessage, error) {
	if s.RejectConnect {
		return nil, &wallet.SessionError{VendorCode: s.rejectCode(), Message: "user rejected the request"}
	}
	networkID := s.networkID
	if s.WrongNetwork {
		networkID = 1 - networkID
	}
	return marshal(map[string]any{
		"address":    s.address,
		"public_key": s.publicKeyHexLocked(),
		"network_id": networkID,
	})
}

func (s *Simulator) publicKeyHexLocked() string {
	if s.keyKind == KeySecp256k1 {
		return hex.EncodeToString(ethcrypto.FromECDSAPub(&s.ecdsaPK.PublicKey))
	}
	return hex.EncodeToString(s.edPub)
}

func (s *Simulator) handleSignMessage(params any) (json.RawMessage, error) {
	s.signCalls++
	if s.RejectSign {
		return nil, &wallet.SessionError{VendorCode: s.rejectCode(), Message: "user declined to sign"}
	}

	var p struct {
		Message string `json:"message"`
	}
	if err := remarshal(params, &p); err != nil {
		return nil, err
	}

	var sig []byte
	if s.keyKind == KeySecp256k1 {
		// personal_sign: keccak256("\x19Ethereum Signed Message:\n" + len + msg)
		hash := personalSignHash([]byte(p.Message))
		var err error
		sig, err = ethcrypto.Sign(hash, s.ecdsaPK)
		if err != nil {
			return nil, &wallet.SessionError{VendorCode: CodeNetworkFailure, Message: err.Error()}
		}
	} else {
		sig = ed25519.Sign(s.edPriv, []byte(p.Message))
	}

	return marshal(wallet.SignatureResult{
		Signature: hex.EncodeToString(sig),
		PublicKey: s.publicKeyHexLocked(),
	})
}

func personalSignHash(msg []byte) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	return ethcrypto.Keccak256([]byte(prefixed))
}

func (s *Simulator) handleBuildAndSign(params any) (json.RawMessage, error) {
	s.signCalls++
	if s.RejectSign {
		return nil, &wallet.SessionError{VendorCode: s.rejectCode(), Message: "user declined to sign"}
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, &wallet.SessionError{VendorCode: CodeNetworkFailure, Message: err.Error()}
	}
	var kind struct {
		Kind string `json:"kind"`
	}
	_ = json.Unmarshal(body, &kind)
	s.lastKind = kind.Kind

	sum := sha256.Sum256(append([]byte(s.address), body...))
	return marshal(map[string]any{
		"blob":      body,
		"body_hash": hex.EncodeToString(sum[:]),
	})
}

func (s *Simulator) handleSubmit(params any) (json.RawMessage, error) {
	s.submitCalls++
	if s.RejectSubmit {
		return nil, &wallet.SessionError{VendorCode: s.rejectCode(), Message: "user declined to submit"}
	}
	if s.FailSubmit {
		return nil, &wallet.SessionError{VendorCode: CodeNetworkFailure, Message: "broadcast failed: node unreachable"}
	}

	var p struct {
		BodyHash string `json:"body_hash"`
	}
	if err := remarshal(params, &p); err != nil {
		return nil, err
	}

	sum := sha256.Sum256([]byte("tx:" + p.BodyHash))
	res := wallet.SubmitResult{
		TxHash: hex.EncodeToString(sum[:]),
		Status: wallet.TxPending,
	}
	if s.family == wallet.FamilyHedera && s.lastKind == "mint" {
		s.mintSeq++
		res.TokenID = fmt.Sprintf("0.0.%d", 4400000+s.mintSeq)
	}
	return marshal(res)
}

func (s *Simulator) handleTokenInfo(params any) (json.RawMessage, error) {
	var p struct {
		PolicyID  string `json:"policy_id"`
		AssetName string `json:"asset_name"`
	}
	if err := remarshal(params, &p); err != nil {
		return nil, err
	}
	info, ok := s.tokens[p.PolicyID+"."+p.AssetName]
	if !ok {
		// Пустой ответ — «не найдено»; отличимо от сбоя транспорта.
		return marshal(nil)
	}
	return marshal(info)
}

// RegisterToken делает токен видимым для get_token_info.
func (s *Simulator) RegisterToken(info wallet.TokenInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[info.PolicyID+"."+info.AssetName] = info
}

func (s *Simulator) handleEstimateFee() (json.RawMessage, error) {
	// Фиксированная правдоподобная комиссия в минимальных единицах.
	fee := "180000"
	if s.family == wallet.FamilyHedera {
		fee = "500000"
	}
	return marshal(map[string]string{"fee": fee})
}

func marshal(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &wallet.SessionError{VendorCode: CodeNetworkFailure, Message: err.Error()}
	}
	return data, nil
}

func remarshal(params any, into any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return &wallet.SessionError{VendorCode: CodeNetworkFailure, Message: err.Error()}
	}
	if err := json.Unmarshal(data, into); err != nil {
		return &wallet.SessionError{VendorCode: CodeNetworkFailure, Message: err.Error()}
	}
	return nil
}

// fabricateCardanoAddress собирает синтаксически корректный bech32-адрес
// testnet-сети из публичного ключа.
func fabricateCardanoAddress(pub ed25519.PublicKey, networkID int) string {
	hrp := "addr_test"
	if networkID == 1 {
		hrp = "addr"
	}
	sum := sha256.Sum256(pub)
	payload := append([]byte{byte(networkID)}, sum[:28]...)
	addr, err := encodeBech32(hrp, payload)
	if err != nil {
		// Ключ всегда даёт корректный payload; сюда не попадаем.
		panic(err)
	}
	return addr
}
