package walletauth

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/harvestledger/backend/internal/wallet"
)

// WalletType — тип кошелька, определяющий схему подписи.
type WalletType string

const (
	TypeHashPack WalletType = "hashpack"
	TypeBlade    WalletType = "blade"
	TypeKabila   WalletType = "kabila"
	TypePortal   WalletType = "portal"
	TypeMetaMask WalletType = "metamask"
	TypeNami     WalletType = "nami"
	TypeEternl   WalletType = "eternl"
	TypeFlint    WalletType = "flint"
	TypeLace     WalletType = "lace"
	TypeTyphon   WalletType = "typhon"
)

func (t WalletType) Valid() bool {
	switch t {
	case TypeHashPack, TypeBlade, TypeKabila, TypePortal, TypeMetaMask,
		TypeNami, TypeEternl, TypeFlint, TypeLace, TypeTyphon:
		return true
	}
	return false
}

// IsEVM: MetaMask подписывает по personal_sign (secp256k1 recovery),
// остальные кошельки — ed25519 над сырыми байтами сообщения.
func (t WalletType) IsEVM() bool {
	return t == TypeMetaMask
}

// VerifySignature проверяет подпись сообщения для данного типа кошелька.
// Для EVM сверяется восстановленный адрес, для остальных — ed25519
// публичный ключ.
func VerifySignature(walletType WalletType, message, signatureHex, pubKeyHex, address string) error {
	if !walletType.Valid() {
		return fmt.Errorf("unknown wallet type %q", walletType)
	}
	if walletType.IsEVM() {
		return verifyEVMPersonalSign(message, signatureHex, address)
	}
	return verifyEd25519(message, signatureHex, pubKeyHex)
}

func verifyEd25519(message, signatureHex, pubKeyHex string) error {
	pubKey, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return fmt.Errorf("invalid public key hex: %w", err)
	}
	if len(pubKey) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid public key size: %d", len(pubKey))
	}

	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("invalid signature size: %d", len(sig))
	}

	if !ed25519.Verify(pubKey, []byte(message), sig) {
		return fmt.Errorf("invalid signature")
	}
	return nil
}

// verifyEVMPersonalSign восстанавливает адрес из подписи
// "\x19Ethereum Signed Message:\n<len><msg>" и сравнивает с заявленным.
func verifyEVMPersonalSign(message, signatureHex, address string) error {
	sig, err := hex.DecodeString(strings.TrimPrefix(signatureHex, "0x"))
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sig) != 65 {
		return fmt.Errorf("invalid signature size: %d", len(sig))
	}

	// MetaMask отдаёт V как 27/28; go-ethereum ждёт 0/1.
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := ethcrypto.Keccak256([]byte(prefixed))

	pubKey, err := ethcrypto.SigToPub(hash, sig)
	if err != nil {
		return fmt.Errorf("recover public key: %w", err)
	}

	recovered := ethcrypto.PubkeyToAddress(*pubKey)
	if !strings.EqualFold(recovered.Hex(), address) {
		return fmt.Errorf("signature does not match address")
	}
	return nil
}

// LinkRequest — запрос на привязку второго кошелька. Неизменяем после
// отправки; message обязан быть тем самым текстом, над которым сделаны
// обе подписи.
type LinkRequest struct {
	NewWalletAddress       string     `json:"new_wallet_address"`
	NewWalletType          WalletType `json:"new_wallet_type"`
	NewWalletSignature     string     `json:"new_wallet_signature"`
	PrimaryWalletSignature string     `json:"primary_wallet_signature"`
	Message                string     `json:"message"`
	PublicKey              string     `json:"public_key"` // ключ нового кошелька, hex
}

// PrimaryWallet — данные записанного primary-кошелька аккаунта,
// против которых проверяется вторая подпись.
type PrimaryWallet struct {
	Address   string
	Type      WalletType
	PublicKey string
}

// VerifyLinkRequest — двухподписная проверка. Отклоняет запрос, если
// сообщение не связывает именно этот кошелёк с этим аккаунтом, если
// новая подпись не бьётся с ключом нового кошелька, или если primary
// подпись не верифицируется ключом записанного primary-кошелька —
// последнее и не даёт злоумышленнику со скомпрометированным вторичным
// устройством привязать чужой кошелёк.
func VerifyLinkRequest(req LinkRequest, userID string, primary PrimaryWallet) error {
	parsed, err := ParseLinkMessage(req.Message)
	if err != nil {
		return err
	}
	if parsed.WalletAddress != req.NewWalletAddress {
		return fmt.Errorf("link message is bound to a different wallet")
	}
	if parsed.UserID != userID {
		return fmt.Errorf("link message is bound to a different account")
	}

	if err := VerifySignature(req.NewWalletType, req.Message,
		req.NewWalletSignature, req.PublicKey, req.NewWalletAddress); err != nil {
		return fmt.Errorf("new wallet signature: %w", err)
	}

	if err := VerifySignature(primary.Type, req.Message,
		req.PrimaryWalletSignature, primary.PublicKey, primary.Address); err != nil {
		return fmt.Errorf("primary wallet signature: %w", err)
	}

	return nil
}

// Family возвращает семейство цепочки для типа кошелька.
func (t WalletType) Family() wallet.ChainFamily {
	switch t {
	case TypeNami, TypeEternl, TypeFlint, TypeLace, TypeTyphon:
		return wallet.FamilyCardano
	default:
		return wallet.FamilyHedera
	}
}
