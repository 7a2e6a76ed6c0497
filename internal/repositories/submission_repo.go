package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harvestledger/backend/internal/models"
)

type SubmissionRepo struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepo(pool *pgxpool.Pool) *SubmissionRepo {
	return &SubmissionRepo{pool: pool}
}

func (r *SubmissionRepo) Insert(ctx context.Context, s *models.TxSubmission) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO tx_submissions (user_id, chain_family, kind, tx_hash, policy_id, asset_name, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, submitted_at
	`, s.UserID, s.ChainFamily, s.Kind, s.TxHash, s.PolicyID, s.AssetName, s.Status,
	).Scan(&s.ID, &s.SubmittedAt)
}

// ListPending — неподтверждённые транзакции для монитора, старые первыми.
func (r *SubmissionRepo) ListPending(ctx context.Context, limit int) ([]models.TxSubmission, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, chain_family, kind, tx_hash, policy_id, asset_name, status, submitted_at, confirmed_at
		FROM tx_submissions WHERE status = $1
		ORDER BY submitted_at LIMIT $2
	`, models.SubmissionPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.TxSubmission
	for rows.Next() {
		var s models.TxSubmission
		if err := rows.Scan(&s.ID, &s.UserID, &s.ChainFamily, &s.Kind, &s.TxHash,
			&s.PolicyID, &s.AssetName, &s.Status, &s.SubmittedAt, &s.ConfirmedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *SubmissionRepo) MarkStatus(ctx context.Context, txHash, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE tx_submissions
		SET status = $2, confirmed_at = CASE WHEN $2 = 'confirmed' THEN now() ELSE confirmed_at END
		WHERE tx_hash = $1
	`, txHash, status)
	return err
}

// ExpireStale помечает failed транзакции, висящие в pending дольше
// заданного срока: индексатор так и не увидел их в сети.
func (r *SubmissionRepo) ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tx_submissions SET status = $1
		WHERE status = $2 AND submitted_at < now() - $3::interval
	`, models.SubmissionFailed, models.SubmissionPending, olderThan.String())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByUser — история отправленных транзакций пользователя.
func (r *SubmissionRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.TxSubmission, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, chain_family, kind, tx_hash, policy_id, asset_name, status, submitted_at, confirmed_at
		FROM tx_submissions WHERE user_id = $1
		ORDER BY submitted_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.TxSubmission
	for rows.Next() {
		var s models.TxSubmission
		if err := rows.Scan(&s.ID, &s.UserID, &s.ChainFamily, &s.Kind, &s.TxHash,
			&s.PolicyID, &s.AssetName, &s.Status, &s.SubmittedAt, &s.ConfirmedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
