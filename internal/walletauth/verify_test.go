package walletauth

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

type edWallet struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

func newEdWallet(t *testing.T) edWallet {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	return edWallet{pub: pub, priv: priv}
}

func (w edWallet) sign(msg string) string {
	return hex.EncodeToString(ed25519.Sign(w.priv, []byte(msg)))
}

func (w edWallet) pubHex() string {
	return hex.EncodeToString(w.pub)
}

func TestVerifyEd25519Signature(t *testing.T) {
	w := newEdWallet(t)
	msg := "hello harvest"

	if err := VerifySignature(TypeHashPack, msg, w.sign(msg), w.pubHex(), "0.0.1001"); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
	if err := VerifySignature(TypeHashPack, "tampered", w.sign(msg), w.pubHex(), "0.0.1001"); err == nil {
		t.Fatal("tampered message accepted")
	}

	other := newEdWallet(t)
	if err := VerifySignature(TypeHashPack, msg, w.sign(msg), other.pubHex(), "0.0.1001"); err == nil {
		t.Fatal("wrong key accepted")
	}
}

func TestVerifyEVMPersonalSign(t *testing.T) {
	pk, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	address := ethcrypto.PubkeyToAddress(pk.PublicKey).Hex()
	msg := "Link wallet test"

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	sig, err := ethcrypto.Sign(ethcrypto.Keccak256([]byte(prefixed)), pk)
	if err != nil {
		t.Fatal(err)
	}
	// Расширения отдают V как 27/28.
	sig[64] += 27

	if err := VerifySignature(TypeMetaMask, msg, hex.EncodeToString(sig), "", address); err != nil {
		t.Fatalf("valid personal_sign rejected: %v", err)
	}
	if err := VerifySignature(TypeMetaMask, msg, hex.EncodeToString(sig), "", "0x0000000000000000000000000000000000000001"); err == nil {
		t.Fatal("signature accepted for foreign address")
	}
}

func TestWalletTypeFamily(t *testing.T) {
	cases := map[WalletType]string{
		TypeHashPack: "hedera",
		TypeBlade:    "hedera",
		TypeMetaMask: "hedera",
		TypeNami:     "cardano",
		TypeEternl:   "cardano",
		TypeLace:     "cardano",
	}
	for wt, want := range cases {
		if got := string(wt.Family()); got != want {
			t.Errorf("%s: family = %s, want %s", wt, got, want)
		}
	}
}

func makeLinkRequest(t *testing.T, userID string, newW, primaryW edWallet, newAddr string, at time.Time) LinkRequest {
	t.Helper()
	msg := BuildLinkMessage(newAddr, userID, at)
	return LinkRequest{
		NewWalletAddress:       newAddr,
		NewWalletType:          TypeBlade,
		NewWalletSignature:     newW.sign(msg),
		PrimaryWalletSignature: primaryW.sign(msg),
		Message:                msg,
		PublicKey:              newW.pubHex(),
	}
}

func TestVerifyLinkRequest(t *testing.T) {
	userID := "7b4a0b2e-9d1f-4f6e-a1c2-3d4e5f607182"
	newW := newEdWallet(t)
	primaryW := newEdWallet(t)
	primary := PrimaryWallet{Address: "0.0.1001", Type: TypeHashPack, PublicKey: primaryW.pubHex()}

	req := makeLinkRequest(t, userID, newW, primaryW, "0.0.2002", time.Now())
	if err := VerifyLinkRequest(req, userID, primary); err != nil {
		t.Fatalf("valid link request rejected: %v", err)
	}
}

func TestVerifyLinkRequestRejectsForgedPrimary(t *testing.T) {
	userID := "7b4a0b2e-9d1f-4f6e-a1c2-3d4e5f607182"
	newW := newEdWallet(t)
	primaryW := newEdWallet(t)
	attacker := newEdWallet(t)
	primary := PrimaryWallet{Address: "0.0.1001", Type: TypeHashPack, PublicKey: primaryW.pubHex()}

	// Атакующий контролирует новый кошелёк, но не primary: подпись
	// primary сделана чужим ключом.
	req := makeLinkRequest(t, userID, newW, attacker, "0.0.2002", time.Now())
	if err := VerifyLinkRequest(req, userID, primary); err == nil {
		t.Fatal("forged primary signature accepted")
	}
}

func TestVerifyLinkRequestRejectsWrongBinding(t *testing.T) {
	userID := "7b4a0b2e-9d1f-4f6e-a1c2-3d4e5f607182"
	newW := newEdWallet(t)
	primaryW := newEdWallet(t)
	primary := PrimaryWallet{Address: "0.0.1001", Type: TypeHashPack, PublicKey: primaryW.pubHex()}

	t.Run("different wallet in message", func(t *testing.T) {
		req := makeLinkRequest(t, userID, newW, primaryW, "0.0.2002", time.Now())
		req.NewWalletAddress = "0.0.3003"
		if err := VerifyLinkRequest(req, userID, primary); err == nil {
			t.Fatal("message bound to another wallet accepted")
		}
	})

	t.Run("different account", func(t *testing.T) {
		req := makeLinkRequest(t, userID, newW, primaryW, "0.0.2002", time.Now())
		if err := VerifyLinkRequest(req, "another-user", primary); err == nil {
			t.Fatal("message bound to another account accepted")
		}
	})

	t.Run("stale message", func(t *testing.T) {
		req := makeLinkRequest(t, userID, newW, primaryW, "0.0.2002", time.Now().Add(-10*time.Minute))
		if err := VerifyLinkRequest(req, userID, primary); err == nil {
			t.Fatal("stale link message accepted")
		}
	})
}
