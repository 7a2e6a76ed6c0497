package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/harvestledger/backend/internal/config"
	"github.com/harvestledger/backend/internal/events"
	"github.com/harvestledger/backend/internal/models"
	"github.com/harvestledger/backend/internal/repositories"
	"github.com/harvestledger/backend/internal/walletauth"
)

// LinkingService привязывает дополнительные кошельки к аккаунту.
// Привязка необратима без primary-кошелька: каждый запрос несёт две
// подписи над одним сообщением.
type LinkingService struct {
	walletRepo *repositories.WalletRepo
	auditRepo  *repositories.AuditRepo
	publisher  events.Publisher
	cfg        *config.Config
	log        *zap.Logger
}

func NewLinkingService(
	walletRepo *repositories.WalletRepo,
	auditRepo *repositories.AuditRepo,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *LinkingService {
	return &LinkingService{
		walletRepo: walletRepo,
		auditRepo:  auditRepo,
		publisher:  publisher,
		cfg:        cfg,
		log:        log,
	}
}

// LinkWallet проверяет двухподписный запрос и сохраняет кошелёк.
func (s *LinkingService) LinkWallet(ctx context.Context, userID uuid.UUID, req walletauth.LinkRequest) (*models.UserWallet, error) {
	if !req.NewWalletType.Valid() {
		return nil, fmt.Errorf("unknown wallet type %q", req.NewWalletType)
	}

	primary, err := s.walletRepo.GetPrimary(ctx, userID)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("account has no primary wallet")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load primary wallet: %w", err)
	}

	err = walletauth.VerifyLinkRequest(req, userID.String(), walletauth.PrimaryWallet{
		Address:   primary.Address,
		Type:      walletauth.WalletType(primary.WalletType),
		PublicKey: primary.PublicKey,
	})
	if err != nil {
		return nil, fmt.Errorf("link verification failed: %w", err)
	}

	// Один адрес — один аккаунт, без исключений.
	if existing, err := s.walletRepo.GetByAddress(ctx, req.NewWalletAddress); err == nil && existing != nil {
		if existing.UserID == userID {
			return nil, fmt.Errorf("wallet already linked to this account")
		}
		return nil, fmt.Errorf("wallet already linked to another account")
	} else if err != nil && err != pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to check wallet: %w", err)
	}

	w := &models.UserWallet{
		UserID:      userID,
		Address:     req.NewWalletAddress,
		WalletType:  string(req.NewWalletType),
		ChainFamily: string(req.NewWalletType.Family()),
		PublicKey:   req.PublicKey,
		IsPrimary:   false,
	}
	if err := s.walletRepo.Insert(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to save wallet: %w", err)
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorUserID: &userID,
		ActorType:   "user",
		Action:      "wallet_linked",
		EntityType:  "user_wallet",
		EntityID:    &w.ID,
		Meta:        map[string]any{"address": w.Address, "wallet_type": w.WalletType},
	})

	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, events.StreamWallet, events.Event{
			Type: events.EventWalletLinked,
			Payload: map[string]any{
				"user_id": userID.String(),
				"address": w.Address,
				"family":  w.ChainFamily,
			},
		})
	}

	s.log.Info("wallet linked",
		zap.String("user_id", userID.String()),
		zap.String("address", w.Address),
	)

	return w, nil
}

// SetPrimaryWallet переносит primary-флаг на другой кошелёк аккаунта.
func (s *LinkingService) SetPrimaryWallet(ctx context.Context, userID, walletID uuid.UUID) error {
	if err := s.walletRepo.SetPrimary(ctx, userID, walletID); err != nil {
		return err
	}
	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorUserID: &userID,
		ActorType:   "user",
		Action:      "primary_wallet_changed",
		EntityType:  "user_wallet",
		EntityID:    &walletID,
	})
	return nil
}

// ListWallets возвращает кошельки аккаунта, primary первым.
func (s *LinkingService) ListWallets(ctx context.Context, userID uuid.UUID) ([]models.UserWallet, error) {
	return s.walletRepo.ListByUser(ctx, userID)
}
