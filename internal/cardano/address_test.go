package cardano

import (
	"testing"
	"time"

	"github.com/harvestledger/backend/internal/wallet"
)

func TestValidAddress(t *testing.T) {
	// Известные валидные Shelley-адреса из документации Cardano.
	mainnet := "addr1qx2fxv2umyhttkxyxp8x0dlpdt3k6cwng5pxj3jhsydzer3n0d3vllmyqwsx5wktcd8cc3sq835lu7drv2xwl2wywfgse35a3x"
	testnet := "addr_test1qz2fxv2umyhttkxyxp8x0dlpdt3k6cwng5pxj3jhsydzer3n0d3vllmyqwsx5wktcd8cc3sq835lu7drv2xwl2wywfgs68faae"

	if !ValidAddress(mainnet, 1) {
		t.Error("mainnet address rejected on mainnet")
	}
	if ValidAddress(mainnet, 0) {
		t.Error("mainnet address accepted on testnet")
	}
	if !ValidAddress(testnet, 0) {
		t.Error("testnet address rejected on testnet")
	}
	if ValidAddress(testnet, 1) {
		t.Error("testnet address accepted on mainnet")
	}
	if ValidAddress("0.0.1001", 0) {
		t.Error("hedera account id accepted as cardano address")
	}
	if ValidAddress("", 0) {
		t.Error("empty address accepted")
	}
}

func TestDerivePolicyID(t *testing.T) {
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	a := DerivePolicyID("coffee", at)
	if len(a) != 56 {
		t.Fatalf("policy id length = %d, want 56", len(a))
	}
	// Детерминированность и нечувствительность к регистру культуры.
	if DerivePolicyID("Coffee", at) != a {
		t.Error("crop type case changed policy id")
	}
	if DerivePolicyID("coffee", at.Add(time.Second)) == a {
		t.Error("different mint time produced same policy id")
	}
	if DerivePolicyID("cacao", at) == a {
		t.Error("different crop produced same policy id")
	}
}

func TestAssetName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"coffee", "COFFEE"},
		{"green tea", "GREENTEA"},
		{"café искра", "CAF"},
		{"", "HARVEST"},
		{"!!!", "HARVEST"},
	}
	for _, tc := range cases {
		if got := AssetName(tc.in); got != tc.want {
			t.Errorf("AssetName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAssetNameLengthCap(t *testing.T) {
	long := "averyveryverylongcroptypenamethatexceedsthelimit"
	if got := AssetName(long); len(got) > 32 {
		t.Fatalf("asset name %q exceeds 32 bytes", got)
	}
}

func TestCIP25MetadataShape(t *testing.T) {
	meta := CIP25Metadata("abc123", "COFFEE", testMeta())
	label, ok := meta["721"].(map[string]any)
	if !ok {
		t.Fatal("missing 721 label")
	}
	policy, ok := label["abc123"].(map[string]any)
	if !ok {
		t.Fatal("missing policy entry")
	}
	entry, ok := policy["COFFEE"].(map[string]any)
	if !ok {
		t.Fatal("missing asset entry")
	}
	if entry["name"] != "Arabica Lot 7" || entry["location"] != "Huila, Colombia" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if _, present := entry["image"]; present {
		t.Error("empty image must be omitted")
	}
}

func testMeta() wallet.TokenMetadata {
	return wallet.TokenMetadata{
		Name:        "Arabica Lot 7",
		Description: "Washed arabica, single estate",
		HarvestDate: "2026-08-01",
		Location:    "Huila, Colombia",
	}
}
