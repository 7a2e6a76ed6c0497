package services

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harvestledger/backend/internal/cardano"
	"github.com/harvestledger/backend/internal/events"
	"github.com/harvestledger/backend/internal/models"
	"github.com/harvestledger/backend/internal/wallet"
)

// SubmissionRecorder пишет отправленные транзакции для монитора
// подтверждений. В тестах может быть nil.
type SubmissionRecorder interface {
	Insert(ctx context.Context, s *models.TxSubmission) error
}

// TokenService выполняет mint/transfer поверх активного подключения.
// На каждое семейство цепочки — не более одной операции одновременно:
// повторный запрос во время in-flight операции отклоняется, а не
// ставится в очередь.
type TokenService struct {
	manager     *wallet.Manager
	submissions SubmissionRecorder
	publisher   events.Publisher
	log         *zap.Logger

	mu  sync.Mutex
	ops map[wallet.ChainFamily]string // текущий статус операции
}

func NewTokenService(
	manager *wallet.Manager,
	submissions SubmissionRecorder,
	publisher events.Publisher,
	log *zap.Logger,
) *TokenService {
	return &TokenService{
		manager:     manager,
		submissions: submissions,
		publisher:   publisher,
		log:         log,
		ops:         make(map[wallet.ChainFamily]string),
	}
}

// OperationStatus возвращает статус текущей операции семейства.
func (s *TokenService) OperationStatus(family wallet.ChainFamily) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.ops[family]; ok {
		return st
	}
	return models.OpStatusIdle
}

// begin переводит машину из idle в validating; занятое семейство
// отклоняется.
func (s *TokenService) begin(ctx context.Context, family wallet.ChainFamily, kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.ops[family]
	if !ok {
		cur = models.OpStatusIdle
	}
	if cur != models.OpStatusIdle {
		return fmt.Errorf("another %s operation is in progress (%s)", family, cur)
	}
	s.ops[family] = models.OpStatusValidating
	s.announce(ctx, family, kind, models.OpStatusValidating)
	return nil
}

func (s *TokenService) advance(ctx context.Context, family wallet.ChainFamily, kind, to string) {
	s.mu.Lock()
	from := s.ops[family]
	if !models.IsValidOpTransition(from, to) {
		s.mu.Unlock()
		s.log.Error("invalid operation transition",
			zap.String("family", string(family)),
			zap.String("from", from),
			zap.String("to", to),
		)
		return
	}
	s.ops[family] = to
	s.mu.Unlock()
	s.announce(ctx, family, kind, to)
}

// finish закрывает операцию терминальным статусом и возвращает
// машину в idle.
func (s *TokenService) finish(ctx context.Context, family wallet.ChainFamily, kind string, err error) {
	terminal := models.OpStatusSuccess
	if err != nil {
		terminal = models.OpStatusError
	}
	s.advance(ctx, family, kind, terminal)
	s.mu.Lock()
	s.ops[family] = models.OpStatusIdle
	s.mu.Unlock()
}

func (s *TokenService) announce(ctx context.Context, family wallet.ChainFamily, kind, status string) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(ctx, events.StreamWallet, events.Event{
		Type: events.EventOperationStatus,
		Payload: map[string]any{
			"family": string(family),
			"kind":   kind,
			"status": status,
		},
	})
}

// MintCropToken чеканит crop-токен. Валидация до первого обращения к
// кошельку: при невалидных параметрах кошелёк не трогается вовсе.
func (s *TokenService) MintCropToken(ctx context.Context, userID uuid.UUID, family wallet.ChainFamily, params wallet.MintParams) (res *wallet.MintResult, err error) {
	provider, conn, ok := s.manager.ProviderFor(family)
	if !ok {
		return nil, fmt.Errorf("no %s wallet connected", family)
	}

	if err := s.begin(ctx, family, "mint"); err != nil {
		return nil, err
	}
	defer func() { s.finish(ctx, family, "mint", err) }()

	if err = validateMintParams(provider, params); err != nil {
		return nil, err
	}

	s.advance(ctx, family, "mint", models.OpStatusBuilding)

	// Для Cardano идентификаторы токена выводятся здесь и попадают
	// в ту же транзакцию, что будет подписана.
	if family == wallet.FamilyCardano {
		now := time.Now().UTC()
		params.PolicyID = cardano.DerivePolicyID(params.CropType, now)
		params.AssetName = cardano.AssetName(params.CropType)
	}

	intent := wallet.TxIntent{Kind: wallet.IntentMint, Mint: &params}

	s.advance(ctx, family, "mint", models.OpStatusSigning)
	signed, err := provider.BuildAndSign(ctx, intent)
	if err != nil {
		return nil, err
	}

	s.advance(ctx, family, "mint", models.OpStatusSubmitting)
	submitted, err := provider.Submit(ctx, signed)
	if err != nil {
		return nil, err
	}

	policyID := params.PolicyID
	if submitted.TokenID != "" {
		policyID = submitted.TokenID
	}

	s.recordSubmission(ctx, userID, family, "mint", submitted.TxHash, policyID, params.AssetName)
	s.publishResult(ctx, events.EventTokenMinted, map[string]any{
		"user_id":   userID.String(),
		"family":    string(family),
		"policy_id": policyID,
		"tx_hash":   submitted.TxHash,
		"quantity":  params.Quantity,
	})

	s.log.Info("token minted",
		zap.String("user_id", userID.String()),
		zap.String("family", string(family)),
		zap.String("address", conn.Address),
		zap.String("tx_hash", submitted.TxHash),
	)

	return &wallet.MintResult{
		PolicyID:  policyID,
		AssetName: params.AssetName,
		TxHash:    submitted.TxHash,
		Quantity:  params.Quantity,
		Status:    submitted.Status,
	}, nil
}

// TransferToken переводит токен. Баланс перечитывается непосредственно
// перед подписанием: кеш на момент заполнения формы не доказательство.
func (s *TokenService) TransferToken(ctx context.Context, userID uuid.UUID, family wallet.ChainFamily, params wallet.TransferParams) (res *wallet.TransferResult, err error) {
	provider, _, ok := s.manager.ProviderFor(family)
	if !ok {
		return nil, fmt.Errorf("no %s wallet connected", family)
	}

	if err := s.begin(ctx, family, "transfer"); err != nil {
		return nil, err
	}
	defer func() { s.finish(ctx, family, "transfer", err) }()

	qty, err := validateTransferParams(provider, params)
	if err != nil {
		return nil, err
	}

	s.advance(ctx, family, "transfer", models.OpStatusBuilding)

	assets, err := provider.GetAssets(ctx)
	if err != nil {
		return nil, err
	}
	available := "0"
	for _, a := range assets {
		if a.PolicyID == params.PolicyID && (params.AssetName == "" || a.AssetName == params.AssetName) {
			available = a.Quantity
			break
		}
	}
	have, err := wallet.ParseQuantity(available)
	if err != nil || have.Cmp(qty) < 0 {
		return nil, wallet.NewErrorf(wallet.ErrInsufficientBalance,
			"have %s, need %s", available, params.Quantity)
	}

	intent := wallet.TxIntent{Kind: wallet.IntentTransfer, Transfer: &params}

	fee, err := provider.EstimateFee(ctx, intent)
	if err != nil {
		return nil, err
	}

	s.advance(ctx, family, "transfer", models.OpStatusSigning)
	signed, err := provider.BuildAndSign(ctx, intent)
	if err != nil {
		return nil, err
	}

	s.advance(ctx, family, "transfer", models.OpStatusSubmitting)
	submitted, err := provider.Submit(ctx, signed)
	if err != nil {
		return nil, err
	}

	s.recordSubmission(ctx, userID, family, "transfer", submitted.TxHash, params.PolicyID, params.AssetName)
	s.publishResult(ctx, events.EventTokenTransferred, map[string]any{
		"user_id":   userID.String(),
		"family":    string(family),
		"policy_id": params.PolicyID,
		"recipient": params.RecipientAddress,
		"tx_hash":   submitted.TxHash,
	})

	return &wallet.TransferResult{
		TxHash: submitted.TxHash,
		Fee:    fee,
		Status: submitted.Status,
	}, nil
}

// EstimateTransferFee — чистое чтение, машину операций не трогает.
func (s *TokenService) EstimateTransferFee(ctx context.Context, family wallet.ChainFamily, params wallet.TransferParams) (string, error) {
	provider, _, ok := s.manager.ProviderFor(family)
	if !ok {
		return "", fmt.Errorf("no %s wallet connected", family)
	}
	if _, err := validateTransferParams(provider, params); err != nil {
		return "", err
	}
	return provider.EstimateFee(ctx, wallet.TxIntent{Kind: wallet.IntentTransfer, Transfer: &params})
}

// GetTokenInfo — read-only lookup для Verification-страницы.
func (s *TokenService) GetTokenInfo(ctx context.Context, family wallet.ChainFamily, policyID, assetName string) (*wallet.TokenInfo, error) {
	provider, _, ok := s.manager.ProviderFor(family)
	if !ok {
		return nil, fmt.Errorf("no %s wallet connected", family)
	}
	return provider.GetTokenInfo(ctx, policyID, assetName)
}

// WalletBalance — свежий баланс активного кошелька.
func (s *TokenService) WalletBalance(ctx context.Context, family wallet.ChainFamily) (*wallet.Balance, error) {
	provider, _, ok := s.manager.ProviderFor(family)
	if !ok {
		return nil, fmt.Errorf("no %s wallet connected", family)
	}
	return provider.GetBalance(ctx)
}

func (s *TokenService) recordSubmission(ctx context.Context, userID uuid.UUID, family wallet.ChainFamily, kind, txHash, policyID, assetName string) {
	if s.submissions == nil {
		return
	}
	err := s.submissions.Insert(ctx, &models.TxSubmission{
		UserID:      userID,
		ChainFamily: string(family),
		Kind:        kind,
		TxHash:      txHash,
		PolicyID:    policyID,
		AssetName:   assetName,
		Status:      models.SubmissionPending,
	})
	if err != nil {
		s.log.Error("failed to record tx submission",
			zap.String("tx_hash", txHash), zap.Error(err))
	}
}

func (s *TokenService) publishResult(ctx context.Context, eventType string, payload map[string]any) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(ctx, events.StreamWallet, events.Event{Type: eventType, Payload: payload})
}

func validateMintParams(provider wallet.Provider, p wallet.MintParams) error {
	if p.CropType == "" {
		return wallet.NewError(wallet.ErrInvalidParams, "crop type is required")
	}
	if p.Quantity <= 0 {
		return wallet.NewError(wallet.ErrInvalidParams, "quantity must be positive")
	}
	if p.Metadata.Name == "" || p.Metadata.Description == "" || p.Metadata.Location == "" {
		return wallet.NewError(wallet.ErrInvalidMetadata, "name, description and location are required")
	}
	if _, err := time.Parse("2006-01-02", p.Metadata.HarvestDate); err != nil {
		return wallet.NewError(wallet.ErrInvalidMetadata, "harvest date must be YYYY-MM-DD")
	}
	if p.RecipientAddress != "" && !provider.ValidateAddress(p.RecipientAddress) {
		return wallet.NewErrorf(wallet.ErrInvalidAddress, "recipient %q is not a valid address", p.RecipientAddress)
	}
	return nil
}

func validateTransferParams(provider wallet.Provider, p wallet.TransferParams) (*big.Int, error) {
	if !provider.ValidateAddress(p.RecipientAddress) {
		return nil, wallet.NewErrorf(wallet.ErrInvalidAddress, "recipient %q is not a valid address", p.RecipientAddress)
	}
	if p.PolicyID == "" {
		return nil, wallet.NewError(wallet.ErrInvalidParams, "token id is required")
	}
	q, err := wallet.ParseQuantity(p.Quantity)
	if err != nil {
		return nil, wallet.NewErrorf(wallet.ErrInvalidParams, "invalid quantity %q", p.Quantity)
	}
	return q, nil
}
