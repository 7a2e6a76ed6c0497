package models

import (
	"time"

	"github.com/google/uuid"
)

// Submission статусы: pending — транзакция отправлена в сеть, но ещё
// не подтверждена; монитор опрашивает её до confirmed/failed.
const (
	SubmissionPending   = "pending"
	SubmissionConfirmed = "confirmed"
	SubmissionFailed    = "failed"
)

// TxSubmission — отправленная в сеть транзакция. Отправленная-но-не-
// подтверждённая операция видна отдельно от отклонённой: она ещё может
// завершиться успехом on-chain.
type TxSubmission struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	ChainFamily string     `json:"chain_family"`
	Kind        string     `json:"kind"` // mint/transfer
	TxHash      string     `json:"tx_hash"`
	PolicyID    string     `json:"policy_id,omitempty"`
	AssetName   string     `json:"asset_name,omitempty"`
	Status      string     `json:"status"`
	SubmittedAt time.Time  `json:"submitted_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}
