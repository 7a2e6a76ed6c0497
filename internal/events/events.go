package events

import "context"

// Event types
const (
	EventOperationStatus  = "operation_status"
	EventTokenMinted      = "token_minted"
	EventTokenTransferred = "token_transferred"
	EventTxConfirmed      = "tx_confirmed"
	EventWalletLinked     = "wallet_linked"
)

// Stream, на который подписан WS-хаб дашборда.
const StreamWallet = "events:wallet"

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
