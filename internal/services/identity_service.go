package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/harvestledger/backend/internal/auth"
	"github.com/harvestledger/backend/internal/config"
	"github.com/harvestledger/backend/internal/models"
	"github.com/harvestledger/backend/internal/repositories"
	"github.com/harvestledger/backend/internal/walletauth"
)

// IdentityService — регистрация по e-mail + кошельку и вход по подписи.
type IdentityService struct {
	userRepo   *repositories.UserRepo
	walletRepo *repositories.WalletRepo
	auditRepo  *repositories.AuditRepo
	otp        *OTPService
	rdb        *redis.Client
	cfg        *config.Config
	log        *zap.Logger
}

func NewIdentityService(
	userRepo *repositories.UserRepo,
	walletRepo *repositories.WalletRepo,
	auditRepo *repositories.AuditRepo,
	otp *OTPService,
	rdb *redis.Client,
	cfg *config.Config,
	log *zap.Logger,
) *IdentityService {
	return &IdentityService{
		userRepo:   userRepo,
		walletRepo: walletRepo,
		auditRepo:  auditRepo,
		otp:        otp,
		rdb:        rdb,
		cfg:        cfg,
		log:        log,
	}
}

// RequestEmailCode шлёт OTP на указанный адрес. Повторный запрос
// заменяет предыдущий код.
func (s *IdentityService) RequestEmailCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address")
	}
	if existing, err := s.userRepo.GetByEmail(ctx, email); err == nil && existing != nil {
		return fmt.Errorf("email already registered")
	}
	return s.otp.Issue(ctx, OTPPurposeRegistration, email)
}

// ConfirmEmail проверяет код и помечает e-mail подтверждённым
// в рамках текущей регистрации.
func (s *IdentityService) ConfirmEmail(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	if err := s.otp.Verify(ctx, OTPPurposeRegistration, email, code); err != nil {
		return err
	}
	return s.otp.MarkVerified(ctx, OTPPurposeRegistration, email)
}

// IssueSignInNonce выдаёт одноразовый nonce для подписи кошельком.
// Клиент подписывает walletauth.BuildSignInMessage(address, nonce).
func (s *IdentityService) IssueSignInNonce(ctx context.Context, address string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(buf)

	key := "signin_nonce:" + address
	if err := s.rdb.Set(ctx, key, nonce, s.cfg.SignInNonceTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}
	return nonce, nil
}

func (s *IdentityService) consumeNonce(ctx context.Context, address, nonce string) error {
	key := "signin_nonce:" + address
	stored, err := s.rdb.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return fmt.Errorf("nonce expired or not issued")
	}
	if err != nil {
		return fmt.Errorf("failed to consume nonce: %w", err)
	}
	if stored != nonce {
		return fmt.Errorf("nonce mismatch")
	}
	return nil
}

type RegisterRequest struct {
	Email       string                `json:"email"`
	AccountType *string               `json:"account_type"` // farmer / distributor / retailer
	WalletType  walletauth.WalletType `json:"wallet_type"`
	Address     string                `json:"address"`
	PublicKey   string                `json:"public_key"`
	Nonce       string                `json:"nonce"`
	Signature   string                `json:"signature"`
}

type AuthResult struct {
	Token  string           `json:"token"`
	User   *models.User     `json:"user"`
	Wallet *models.UserWallet `json:"wallet"`
}

// CompleteRegistration создаёт аккаунт: e-mail должен быть подтверждён
// кодом, а владение кошельком — подписью над sign-in сообщением.
// Кошелёк становится primary и уже не может мигрировать на другой аккаунт.
func (s *IdentityService) CompleteRegistration(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)
	if !req.WalletType.Valid() {
		return nil, fmt.Errorf("unknown wallet type %q", req.WalletType)
	}

	if err := s.otp.ConsumeVerified(ctx, OTPPurposeRegistration, email); err != nil {
		return nil, err
	}
	if err := s.consumeNonce(ctx, req.Address, req.Nonce); err != nil {
		return nil, err
	}

	msg := walletauth.BuildSignInMessage(req.Address, req.Nonce)
	if err := walletauth.VerifySignature(req.WalletType, msg, req.Signature, req.PublicKey, req.Address); err != nil {
		return nil, fmt.Errorf("wallet signature verification failed: %w", err)
	}

	if existing, err := s.walletRepo.GetByAddress(ctx, req.Address); err == nil && existing != nil {
		return nil, fmt.Errorf("wallet already linked to an account")
	} else if err != nil && err != pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to check wallet: %w", err)
	}

	user, err := s.userRepo.CreateWithEmail(ctx, email, req.AccountType)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	w := &models.UserWallet{
		UserID:      user.ID,
		Address:     req.Address,
		WalletType:  string(req.WalletType),
		ChainFamily: string(req.WalletType.Family()),
		PublicKey:   req.PublicKey,
		IsPrimary:   true,
	}
	if err := s.walletRepo.Insert(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to save wallet: %w", err)
	}

	token, err := auth.GenerateJWT(s.cfg.JWTSecret, user.ID, user.Email, s.cfg.JWTExpiration)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorUserID: &user.ID,
		ActorType:   "user",
		Action:      "account_registered",
		EntityType:  "user",
		EntityID:    &user.ID,
		Meta:        map[string]any{"address": req.Address, "wallet_type": string(req.WalletType)},
	})

	s.log.Info("account registered",
		zap.String("user_id", user.ID.String()),
		zap.String("address", req.Address),
	)

	return &AuthResult{Token: token, User: user, Wallet: w}, nil
}

type LoginRequest struct {
	WalletType walletauth.WalletType `json:"wallet_type"`
	Address    string                `json:"address"`
	Nonce      string                `json:"nonce"`
	Signature  string                `json:"signature"`
}

// Login — вход по подписи любого привязанного кошелька.
func (s *IdentityService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if err := s.consumeNonce(ctx, req.Address, req.Nonce); err != nil {
		return nil, err
	}

	w, err := s.walletRepo.GetByAddress(ctx, req.Address)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("wallet is not linked to any account")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up wallet: %w", err)
	}

	msg := walletauth.BuildSignInMessage(req.Address, req.Nonce)
	if err := walletauth.VerifySignature(walletauth.WalletType(w.WalletType), msg, req.Signature, w.PublicKey, w.Address); err != nil {
		return nil, fmt.Errorf("wallet signature verification failed: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, w.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	_ = s.walletRepo.TouchLastUsed(ctx, w.ID)
	_ = s.userRepo.TouchLastActive(ctx, user.ID)

	token, err := auth.GenerateJWT(s.cfg.JWTSecret, user.ID, user.Email, s.cfg.JWTExpiration)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &AuthResult{Token: token, User: user, Wallet: w}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
