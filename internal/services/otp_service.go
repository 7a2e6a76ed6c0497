package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/harvestledger/backend/internal/config"
)

// Назначения OTP-кодов. Код, выданный для одного назначения,
// не подходит для другого.
const (
	OTPPurposeRegistration = "registration"
	OTPPurposeEmailChange  = "email_change"
)

// Sender доставляет код получателю. В dev-окружении это логгер,
// в проде — SMTP-шлюз.
type Sender interface {
	Send(ctx context.Context, email, code string) error
}

type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender { return &LogSender{log: log} }

func (s *LogSender) Send(_ context.Context, email, code string) error {
	s.log.Info("otp issued", zap.String("email", email), zap.String("code", code))
	return nil
}

type OTPService struct {
	rdb    *redis.Client
	sender Sender
	cfg    *config.Config
	log    *zap.Logger
}

func NewOTPService(rdb *redis.Client, sender Sender, cfg *config.Config, log *zap.Logger) *OTPService {
	return &OTPService{rdb: rdb, sender: sender, cfg: cfg, log: log}
}

func otpKey(purpose, email string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, email)
}

func otpAttemptsKey(purpose, email string) string {
	return fmt.Sprintf("otp_attempts:%s:%s", purpose, email)
}

// Issue генерирует и отправляет шестизначный код. Повторный вызов
// перезаписывает предыдущий код: действителен всегда только последний.
func (s *OTPService) Issue(ctx context.Context, purpose, email string) error {
	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}

	ttl := s.cfg.OTPCodeTTL
	if err := s.rdb.Set(ctx, otpKey(purpose, email), code, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	// Новый код — новый лимит попыток.
	if err := s.rdb.Del(ctx, otpAttemptsKey(purpose, email)).Err(); err != nil {
		s.log.Warn("failed to reset otp attempts", zap.Error(err))
	}

	if err := s.sender.Send(ctx, email, code); err != nil {
		return fmt.Errorf("failed to send otp: %w", err)
	}
	return nil
}

// Verify проверяет код. Код одноразовый: после успешной проверки он
// удаляется. После превышения лимита неверных попыток код сгорает.
func (s *OTPService) Verify(ctx context.Context, purpose, email, code string) error {
	key := otpKey(purpose, email)
	stored, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return fmt.Errorf("code expired or not requested")
	}
	if err != nil {
		return fmt.Errorf("failed to read otp: %w", err)
	}

	attemptsKey := otpAttemptsKey(purpose, email)
	attempts, err := s.rdb.Incr(ctx, attemptsKey).Result()
	if err != nil {
		return fmt.Errorf("failed to count otp attempt: %w", err)
	}
	if attempts == 1 {
		_ = s.rdb.Expire(ctx, attemptsKey, s.cfg.OTPCodeTTL).Err()
	}
	if attempts > int64(s.cfg.OTPMaxAttempts) {
		_ = s.rdb.Del(ctx, key).Err()
		return fmt.Errorf("too many attempts, request a new code")
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return fmt.Errorf("invalid code")
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, key)
	pipe.Del(ctx, attemptsKey)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn("failed to consume otp", zap.Error(err))
	}
	return nil
}

// MarkVerified выставляет маркер подтверждённого e-mail для завершения
// регистрации. Маркер действует ограниченное время и потребляется один раз.
func (s *OTPService) MarkVerified(ctx context.Context, purpose, email string) error {
	key := fmt.Sprintf("otp_verified:%s:%s", purpose, email)
	return s.rdb.Set(ctx, key, "1", 30*time.Minute).Err()
}

// ConsumeVerified снимает маркер. Возвращает ошибку, если e-mail не был
// подтверждён или маркер истёк.
func (s *OTPService) ConsumeVerified(ctx context.Context, purpose, email string) error {
	key := fmt.Sprintf("otp_verified:%s:%s", purpose, email)
	n, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to consume verification marker: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("email not verified")
	}
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
