package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harvestledger/backend/internal/models"
)

type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, user_id, address, wallet_type, chain_family, public_key,
       is_primary, first_used_at, last_used_at, created_at`

func scanWallet(row pgx.Row) (*models.UserWallet, error) {
	var w models.UserWallet
	err := row.Scan(
		&w.ID, &w.UserID, &w.Address, &w.WalletType, &w.ChainFamily, &w.PublicKey,
		&w.IsPrimary, &w.FirstUsedAt, &w.LastUsedAt, &w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Insert привязывает кошелёк. Уникальность address глобальная: один
// кошелёк не может числиться за двумя аккаунтами.
func (r *WalletRepo) Insert(ctx context.Context, w *models.UserWallet) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO user_wallets (user_id, address, wallet_type, chain_family, public_key, is_primary)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, first_used_at, last_used_at, created_at
	`, w.UserID, w.Address, w.WalletType, w.ChainFamily, w.PublicKey, w.IsPrimary,
	).Scan(&w.ID, &w.FirstUsedAt, &w.LastUsedAt, &w.CreatedAt)
}

// GetByAddress ищет кошелёк по адресу среди всех аккаунтов.
func (r *WalletRepo) GetByAddress(ctx context.Context, address string) (*models.UserWallet, error) {
	return scanWallet(r.pool.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM user_wallets WHERE address = $1`, address))
}

// GetPrimary возвращает primary-кошелёк пользователя.
func (r *WalletRepo) GetPrimary(ctx context.Context, userID uuid.UUID) (*models.UserWallet, error) {
	return scanWallet(r.pool.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM user_wallets WHERE user_id = $1 AND is_primary`, userID))
}

// ListByUser — кошельки пользователя, primary первым.
func (r *WalletRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserWallet, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+walletColumns+`
		FROM user_wallets WHERE user_id = $1
		ORDER BY is_primary DESC, created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []models.UserWallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, *w)
	}
	return wallets, rows.Err()
}

// SetPrimary переназначает primary атомарно: сначала снимает флаг со
// всех кошельков пользователя, затем ставит одному.
func (r *WalletRepo) SetPrimary(ctx context.Context, userID, walletID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE user_wallets SET is_primary = false WHERE user_id = $1`, userID); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE user_wallets SET is_primary = true WHERE id = $1 AND user_id = $2`,
		walletID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("wallet not found")
	}

	return tx.Commit(ctx)
}

func (r *WalletRepo) TouchLastUsed(ctx context.Context, walletID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE user_wallets SET last_used_at = now() WHERE id = $1`, walletID)
	return err
}
