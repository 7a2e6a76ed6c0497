package hedera

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	"github.com/harvestledger/backend/internal/simchain"
	"github.com/harvestledger/backend/internal/wallet"
	"github.com/harvestledger/backend/internal/walletauth"
)

func TestConnectHappyPath(t *testing.T) {
	sim := simchain.New(wallet.FamilyHedera, simchain.KeyEd25519)
	p := New("hashpack", sim, 0)

	conn, err := p.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if conn.Family != wallet.FamilyHedera || conn.ProviderID != "hashpack" {
		t.Fatalf("unexpected connection: %+v", conn)
	}
	if !accountIDRe.MatchString(conn.Address) {
		t.Fatalf("address %q is not a hedera account id", conn.Address)
	}
	if conn.PublicKey == "" {
		t.Fatal("missing public key")
	}
}

func TestConnectNotInstalled(t *testing.T) {
	sim := simchain.New(wallet.FamilyHedera, simchain.KeyEd25519, simchain.NotInstalled())
	p := New("blade", sim, 0)

	_, err := p.Connect(context.Background())
	if !wallet.IsCode(err, wallet.ErrNotInstalled) {
		t.Fatalf("expected NOT_INSTALLED, got %v", err)
	}
}

func TestConnectUserRejected(t *testing.T) {
	sim := simchain.New(wallet.FamilyHedera, simchain.KeyEd25519)
	sim.RejectConnect = true
	p := New("hashpack", sim, 0)

	_, err := p.Connect(context.Background())
	if !wallet.IsCode(err, wallet.ErrUserRejected) {
		t.Fatalf("expected USER_REJECTED, got %v", err)
	}
}

func TestConnectNetworkMismatch(t *testing.T) {
	sim := simchain.New(wallet.FamilyHedera, simchain.KeyEd25519)
	sim.WrongNetwork = true
	p := New("hashpack", sim, 0)

	_, err := p.Connect(context.Background())
	if !wallet.IsCode(err, wallet.ErrNetworkMismatch) {
		t.Fatalf("expected NETWORK_MISMATCH, got %v", err)
	}
}

func TestSignMessageVerifiable(t *testing.T) {
	sim := simchain.New(wallet.FamilyHedera, simchain.KeyEd25519)
	p := New("hashpack", sim, 0)
	msg := "Link wallet 0.0.2002 to account user-1 at 2026-08-30T12:00:00Z"

	res, err := p.SignMessage(context.Background(), msg)
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}

	pub, err := hex.DecodeString(res.PublicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		t.Fatalf("bad public key %q", res.PublicKey)
	}
	sig, err := hex.DecodeString(res.Signature)
	if err != nil {
		t.Fatalf("bad signature hex: %v", err)
	}
	if !ed25519.Verify(pub, []byte(msg), sig) {
		t.Fatal("signature does not verify")
	}
}

func TestMetaMaskSignVerifiesThroughWalletauth(t *testing.T) {
	sim := simchain.New(wallet.FamilyHedera, simchain.KeySecp256k1)
	p := NewMetaMask(sim, 0)

	conn, err := p.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	msg := "HarvestLedger sign-in\nAddress: " + conn.Address + "\nNonce: deadbeef"

	res, err := p.SignMessage(context.Background(), msg)
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}
	if err := walletauth.VerifySignature(walletauth.TypeMetaMask, msg, res.Signature, "", conn.Address); err != nil {
		t.Fatalf("personal_sign verification failed: %v", err)
	}
}

func TestSubmitNetworkFailure(t *testing.T) {
	sim := simchain.New(wallet.FamilyHedera, simchain.KeyEd25519)
	sim.FailSubmit = true
	p := New("hashpack", sim, 0)

	signed, err := p.BuildAndSign(context.Background(), wallet.TxIntent{
		Kind: wallet.IntentTransfer,
		Transfer: &wallet.TransferParams{
			RecipientAddress: "0.0.2002",
			PolicyID:         "0.0.4400123",
			Quantity:         "10",
		},
	})
	if err != nil {
		t.Fatalf("BuildAndSign: %v", err)
	}

	_, err = p.Submit(context.Background(), signed)
	if !wallet.IsCode(err, wallet.ErrNetworkError) {
		t.Fatalf("expected NETWORK_ERROR, got %v", err)
	}
}

func TestValidateAddress(t *testing.T) {
	native := New("hashpack", simchain.New(wallet.FamilyHedera, simchain.KeyEd25519), 0)
	evm := NewMetaMask(simchain.New(wallet.FamilyHedera, simchain.KeySecp256k1), 0)

	cases := []struct {
		p       *Provider
		address string
		want    bool
	}{
		{native, "0.0.1001", true},
		{native, "0.0.0", true},
		{native, "0.0.", false},
		{native, "0x52908400098527886E0F7030069857D2E4169EE7", false},
		{native, "addr_test1qz2fxv", false},
		{evm, "0x52908400098527886E0F7030069857D2E4169EE7", true},
		{evm, "0.0.1001", false},
	}
	for _, tc := range cases {
		if got := tc.p.ValidateAddress(tc.address); got != tc.want {
			t.Errorf("%s ValidateAddress(%q) = %v, want %v", tc.p.ID(), tc.address, got, tc.want)
		}
	}
}

func TestTokenSymbol(t *testing.T) {
	cases := []struct{ in, want string }{
		{"coffee", "COFFEE"},
		{"green tea", "GREENTEA"},
		{"dragonfruit", "DRAGONFR"},
		{"", "CROP"},
	}
	for _, tc := range cases {
		if got := tokenSymbol(tc.in); got != tc.want {
			t.Errorf("tokenSymbol(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
