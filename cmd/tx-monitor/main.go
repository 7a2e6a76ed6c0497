package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/harvestledger/backend/internal/chainquery"
	"github.com/harvestledger/backend/internal/config"
	"github.com/harvestledger/backend/internal/db"
	"github.com/harvestledger/backend/internal/events"
	"github.com/harvestledger/backend/internal/models"
	"github.com/harvestledger/backend/internal/repositories"
	"github.com/harvestledger/backend/internal/wallet"
)

const (
	redisProcessed = "tx-monitor:tx:"
	processedTTL   = 7 * 24 * time.Hour
	batchSize      = 100

	staleCheckInterval = time.Hour
	staleAfter         = 24 * time.Hour
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	subRepo := repositories.NewSubmissionRepo(pool)
	publisher := events.NewRedisPublisher(rdb, log)
	chain := chainquery.New(cfg.HederaMirrorURL, cfg.CardanoAPIURL, cfg.TxConfirmations, log)

	log.Info("tx monitor started",
		zap.String("hedera_mirror", cfg.HederaMirrorURL),
		zap.String("cardano_api", cfg.CardanoAPIURL),
		zap.Duration("poll_interval", cfg.TxPollInterval),
	)

	ticker := time.NewTicker(cfg.TxPollInterval)
	defer ticker.Stop()

	staleTicker := time.NewTicker(staleCheckInterval)
	defer staleTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			if err := pollPending(ctx, subRepo, chain, publisher, rdb, log); err != nil {
				log.Error("poll cycle failed", zap.Error(err))
			}
		case <-staleTicker.C:
			expired, err := subRepo.ExpireStale(ctx, staleAfter)
			if err != nil {
				log.Error("failed to expire stale submissions", zap.Error(err))
			} else if expired > 0 {
				log.Warn("expired stale pending submissions", zap.Int64("count", expired))
			}
		case <-sigCh:
			log.Info("shutting down tx monitor")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

// pollPending переводит отправленные транзакции в confirmed/failed по
// данным индексаторов. Повторная обработка исключается redis-маркером.
func pollPending(
	ctx context.Context,
	subRepo *repositories.SubmissionRepo,
	chain *chainquery.Client,
	publisher events.Publisher,
	rdb *redis.Client,
	log *zap.Logger,
) error {
	pending, err := subRepo.ListPending(ctx, batchSize)
	if err != nil {
		return err
	}

	for _, sub := range pending {
		// Маркер защищает от двойной публикации события, если MarkStatus
		// упал после успешного запроса к индексатору в прошлом цикле.
		seen, err := rdb.Exists(ctx, redisProcessed+sub.TxHash).Result()
		if err == nil && seen > 0 {
			continue
		}

		status, err := chain.TxStatus(ctx, wallet.ChainFamily(sub.ChainFamily), sub.TxHash)
		if err != nil {
			log.Warn("tx status lookup failed",
				zap.String("tx_hash", sub.TxHash),
				zap.String("family", sub.ChainFamily),
				zap.Error(err),
			)
			continue
		}
		if status == wallet.TxPending {
			continue
		}

		newStatus := models.SubmissionConfirmed
		if status == wallet.TxFailed {
			newStatus = models.SubmissionFailed
		}
		if err := subRepo.MarkStatus(ctx, sub.TxHash, newStatus); err != nil {
			log.Error("failed to mark submission", zap.String("tx_hash", sub.TxHash), zap.Error(err))
			continue
		}

		_ = rdb.Set(ctx, redisProcessed+sub.TxHash, "1", processedTTL).Err()

		_ = publisher.Publish(ctx, events.StreamWallet, events.Event{
			Type: events.EventTxConfirmed,
			Payload: map[string]any{
				"user_id":   sub.UserID.String(),
				"tx_hash":   sub.TxHash,
				"family":    sub.ChainFamily,
				"kind":      sub.Kind,
				"policy_id": sub.PolicyID,
				"status":    newStatus,
			},
		})

		log.Info("submission finalized",
			zap.String("tx_hash", sub.TxHash),
			zap.String("status", newStatus),
		)
	}
	return nil
}
