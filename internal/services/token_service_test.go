package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harvestledger/backend/internal/cardano"
	"github.com/harvestledger/backend/internal/hedera"
	"github.com/harvestledger/backend/internal/models"
	"github.com/harvestledger/backend/internal/simchain"
	"github.com/harvestledger/backend/internal/wallet"
)

func goodMintParams() wallet.MintParams {
	return wallet.MintParams{
		CropType: "coffee",
		Quantity: 500,
		Metadata: wallet.TokenMetadata{
			Name:        "Arabica Lot 7",
			Description: "Washed arabica, single estate",
			HarvestDate: "2026-08-01",
			Location:    "Huila, Colombia",
		},
	}
}

func newHederaStack(t *testing.T, opts ...simchain.Option) (*TokenService, *simchain.Simulator, *wallet.Manager) {
	t.Helper()
	sim := simchain.New(wallet.FamilyHedera, simchain.KeyEd25519, opts...)
	registry := wallet.NewRegistry(hedera.New("hashpack", sim, 0))
	manager := wallet.NewManager(registry, zap.NewNop())
	if _, err := manager.Connect(context.Background(), "hashpack"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	svc := NewTokenService(manager, nil, nil, zap.NewNop())
	return svc, sim, manager
}

func newCardanoStack(t *testing.T, opts ...simchain.Option) (*TokenService, *simchain.Simulator) {
	t.Helper()
	sim := simchain.New(wallet.FamilyCardano, simchain.KeyEd25519, opts...)
	registry := wallet.NewRegistry(cardano.New("nami", sim, 0))
	manager := wallet.NewManager(registry, zap.NewNop())
	if _, err := manager.Connect(context.Background(), "nami"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return NewTokenService(manager, nil, nil, zap.NewNop()), sim
}

func TestMintHappyPath(t *testing.T) {
	svc, sim, _ := newHederaStack(t)
	ctx := context.Background()

	res, err := svc.MintCropToken(ctx, uuid.New(), wallet.FamilyHedera, goodMintParams())
	if err != nil {
		t.Fatalf("MintCropToken: %v", err)
	}
	if res.TxHash == "" {
		t.Fatal("expected tx hash")
	}
	// HTS присваивает token id на консенсусе; результат обязан его нести.
	if !strings.HasPrefix(res.PolicyID, "0.0.") {
		t.Fatalf("expected hedera token id, got %q", res.PolicyID)
	}
	if res.Status != wallet.TxPending {
		t.Fatalf("expected pending status, got %q", res.Status)
	}
	if sim.SignCalls() != 1 || sim.SubmitCalls() != 1 {
		t.Fatalf("expected one sign and one submit, got %d/%d", sim.SignCalls(), sim.SubmitCalls())
	}
	if got := svc.OperationStatus(wallet.FamilyHedera); got != models.OpStatusIdle {
		t.Fatalf("expected idle after mint, got %q", got)
	}
}

func TestMintCardanoDerivesPolicy(t *testing.T) {
	svc, _ := newCardanoStack(t)

	res, err := svc.MintCropToken(context.Background(), uuid.New(), wallet.FamilyCardano, goodMintParams())
	if err != nil {
		t.Fatalf("MintCropToken: %v", err)
	}
	if len(res.PolicyID) != 56 {
		t.Fatalf("expected 28-byte policy id hex, got %q", res.PolicyID)
	}
	if res.AssetName != "COFFEE" {
		t.Fatalf("expected asset name COFFEE, got %q", res.AssetName)
	}
}

func TestMintValidationNeverTouchesWallet(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*wallet.MintParams)
		code   wallet.ErrorCode
	}{
		{"empty crop type", func(p *wallet.MintParams) { p.CropType = "" }, wallet.ErrInvalidParams},
		{"zero quantity", func(p *wallet.MintParams) { p.Quantity = 0 }, wallet.ErrInvalidParams},
		{"negative quantity", func(p *wallet.MintParams) { p.Quantity = -3 }, wallet.ErrInvalidParams},
		{"missing name", func(p *wallet.MintParams) { p.Metadata.Name = "" }, wallet.ErrInvalidMetadata},
		{"missing location", func(p *wallet.MintParams) { p.Metadata.Location = "" }, wallet.ErrInvalidMetadata},
		{"bad harvest date", func(p *wallet.MintParams) { p.Metadata.HarvestDate = "01/08/2026" }, wallet.ErrInvalidMetadata},
		{"bad recipient", func(p *wallet.MintParams) { p.RecipientAddress = "not-an-address" }, wallet.ErrInvalidAddress},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, sim, _ := newHederaStack(t)
			params := goodMintParams()
			tc.mutate(&params)

			_, err := svc.MintCropToken(context.Background(), uuid.New(), wallet.FamilyHedera, params)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !wallet.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			// Невалидный запрос не доходит до кошелька.
			if sim.SignCalls() != 0 || sim.SubmitCalls() != 0 {
				t.Fatalf("wallet was touched: sign=%d submit=%d", sim.SignCalls(), sim.SubmitCalls())
			}
			if got := svc.OperationStatus(wallet.FamilyHedera); got != models.OpStatusIdle {
				t.Fatalf("expected idle after rejected mint, got %q", got)
			}
		})
	}
}

func TestMintUserRejectedSurfacesCode(t *testing.T) {
	svc, sim, _ := newHederaStack(t)
	sim.RejectSign = true

	_, err := svc.MintCropToken(context.Background(), uuid.New(), wallet.FamilyHedera, goodMintParams())
	if !wallet.IsCode(err, wallet.ErrUserRejected) {
		t.Fatalf("expected USER_REJECTED, got %v", err)
	}
	if sim.SubmitCalls() != 0 {
		t.Fatal("rejected tx must not be submitted")
	}
	// После отказа машина свободна для новой попытки: повторный запрос
	// снова доходит до кошелька, а не отклоняется как busy.
	_, err = svc.MintCropToken(context.Background(), uuid.New(), wallet.FamilyHedera, goodMintParams())
	if !wallet.IsCode(err, wallet.ErrUserRejected) {
		t.Fatalf("expected USER_REJECTED on retry, got %v", err)
	}
}

func TestTransferHappyPath(t *testing.T) {
	asset := wallet.Asset{PolicyID: "0.0.4400123", AssetName: "COFFEE", Quantity: "500"}
	svc, sim, _ := newHederaStack(t, simchain.WithAsset(asset))

	res, err := svc.TransferToken(context.Background(), uuid.New(), wallet.FamilyHedera, wallet.TransferParams{
		RecipientAddress: "0.0.2002",
		PolicyID:         "0.0.4400123",
		AssetName:        "COFFEE",
		Quantity:         "120",
	})
	if err != nil {
		t.Fatalf("TransferToken: %v", err)
	}
	if res.TxHash == "" || res.Fee == "" {
		t.Fatalf("expected hash and fee, got %+v", res)
	}
	if sim.SignCalls() != 1 || sim.SubmitCalls() != 1 {
		t.Fatalf("expected one sign and one submit, got %d/%d", sim.SignCalls(), sim.SubmitCalls())
	}
}

func TestTransferInvalidRecipient(t *testing.T) {
	svc, sim, _ := newHederaStack(t)

	_, err := svc.TransferToken(context.Background(), uuid.New(), wallet.FamilyHedera, wallet.TransferParams{
		RecipientAddress: "addr1qxyz", // кардано-адрес в hedera-переводе
		PolicyID:         "0.0.4400123",
		Quantity:         "10",
	})
	if !wallet.IsCode(err, wallet.ErrInvalidAddress) {
		t.Fatalf("expected INVALID_ADDRESS, got %v", err)
	}
	if sim.SignCalls() != 0 || sim.SubmitCalls() != 0 {
		t.Fatal("wallet must not be invoked for invalid recipient")
	}
}

func TestTransferInsufficientBalanceFreshRead(t *testing.T) {
	asset := wallet.Asset{PolicyID: "0.0.4400123", AssetName: "COFFEE", Quantity: "500"}
	svc, sim, _ := newHederaStack(t, simchain.WithAsset(asset))

	// Баланс уехал между заполнением формы и отправкой: человек видел
	// 500, но на момент подписи осталось 50.
	sim.SetAssetQuantity("0.0.4400123", "COFFEE", "50")

	_, err := svc.TransferToken(context.Background(), uuid.New(), wallet.FamilyHedera, wallet.TransferParams{
		RecipientAddress: "0.0.2002",
		PolicyID:         "0.0.4400123",
		AssetName:        "COFFEE",
		Quantity:         "120",
	})
	if !wallet.IsCode(err, wallet.ErrInsufficientBalance) {
		t.Fatalf("expected INSUFFICIENT_BALANCE, got %v", err)
	}
	if sim.SignCalls() != 0 {
		t.Fatal("signing must not start with insufficient balance")
	}
}

func TestTransferUnknownAssetInsufficient(t *testing.T) {
	svc, _, _ := newHederaStack(t)

	_, err := svc.TransferToken(context.Background(), uuid.New(), wallet.FamilyHedera, wallet.TransferParams{
		RecipientAddress: "0.0.2002",
		PolicyID:         "0.0.9999999",
		AssetName:        "GHOST",
		Quantity:         "1",
	})
	if !wallet.IsCode(err, wallet.ErrInsufficientBalance) {
		t.Fatalf("expected INSUFFICIENT_BALANCE for unknown asset, got %v", err)
	}
}

func TestOperationNonReentrant(t *testing.T) {
	svc, _, _ := newHederaStack(t)

	// Вручную занимаем машину, как если бы операция была in-flight.
	if err := svc.begin(context.Background(), wallet.FamilyHedera, "mint"); err != nil {
		t.Fatalf("begin: %v", err)
	}

	_, err := svc.MintCropToken(context.Background(), uuid.New(), wallet.FamilyHedera, goodMintParams())
	if err == nil || !strings.Contains(err.Error(), "in progress") {
		t.Fatalf("expected busy rejection, got %v", err)
	}

	svc.finish(context.Background(), wallet.FamilyHedera, "mint", nil)
	if got := svc.OperationStatus(wallet.FamilyHedera); got != models.OpStatusIdle {
		t.Fatalf("expected idle, got %q", got)
	}
}

func TestEstimateFeeDoesNotTouchOperationState(t *testing.T) {
	asset := wallet.Asset{PolicyID: "0.0.4400123", AssetName: "COFFEE", Quantity: "500"}
	svc, _, _ := newHederaStack(t, simchain.WithAsset(asset))

	fee, err := svc.EstimateTransferFee(context.Background(), wallet.FamilyHedera, wallet.TransferParams{
		RecipientAddress: "0.0.2002",
		PolicyID:         "0.0.4400123",
		Quantity:         "10",
	})
	if err != nil {
		t.Fatalf("EstimateTransferFee: %v", err)
	}
	if fee == "" {
		t.Fatal("expected fee estimate")
	}
	if got := svc.OperationStatus(wallet.FamilyHedera); got != models.OpStatusIdle {
		t.Fatalf("estimate must not occupy the state machine, got %q", got)
	}

	_, err = svc.EstimateTransferFee(context.Background(), wallet.FamilyHedera, wallet.TransferParams{
		RecipientAddress: "bogus",
		PolicyID:         "0.0.4400123",
		Quantity:         "10",
	})
	if !wallet.IsCode(err, wallet.ErrInvalidAddress) {
		t.Fatalf("expected INVALID_ADDRESS, got %v", err)
	}
}

func TestGetTokenInfoNotFound(t *testing.T) {
	svc, _, _ := newHederaStack(t)

	_, err := svc.GetTokenInfo(context.Background(), wallet.FamilyHedera, "0.0.7777777", "")
	if err != wallet.ErrTokenNotFound {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestGetTokenInfoAfterMint(t *testing.T) {
	svc, sim, _ := newHederaStack(t)

	res, err := svc.MintCropToken(context.Background(), uuid.New(), wallet.FamilyHedera, goodMintParams())
	if err != nil {
		t.Fatalf("MintCropToken: %v", err)
	}
	sim.RegisterToken(wallet.TokenInfo{
		PolicyID:    res.PolicyID,
		AssetName:   res.AssetName,
		TotalSupply: "500",
		MintTxHash:  res.TxHash,
	})

	info, err := svc.GetTokenInfo(context.Background(), wallet.FamilyHedera, res.PolicyID, res.AssetName)
	if err != nil {
		t.Fatalf("GetTokenInfo: %v", err)
	}
	if info.MintTxHash != res.TxHash {
		t.Fatalf("expected mint tx %q, got %q", res.TxHash, info.MintTxHash)
	}
}

func TestMintRequiresConnection(t *testing.T) {
	sim := simchain.New(wallet.FamilyHedera, simchain.KeyEd25519)
	registry := wallet.NewRegistry(hedera.New("hashpack", sim, 0))
	manager := wallet.NewManager(registry, zap.NewNop())
	svc := NewTokenService(manager, nil, nil, zap.NewNop())

	_, err := svc.MintCropToken(context.Background(), uuid.New(), wallet.FamilyHedera, goodMintParams())
	if err == nil || !strings.Contains(err.Error(), "connected") {
		t.Fatalf("expected no-connection error, got %v", err)
	}
}
