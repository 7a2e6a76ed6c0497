package wallet

import (
	"context"
	"encoding/json"
	"sort"
)

// Session — транспорт до расширения кошелька (инжектированный в браузер
// глобал, проброшенный через мост дашборда). Единственное место, где код
// платформы говорит с vendor-specific API. В тестах и демо-режиме вместо
// живого моста подставляется симулятор.
type Session interface {
	// Available сообщает, достижимо ли расширение. Никогда не возвращает
	// ошибку: отсутствие — нормальный ответ false.
	Available(ctx context.Context) bool

	// Invoke выполняет vendor-specific вызов и возвращает сырой ответ.
	// Отказ пользователя и сбои сети поднимаются как *SessionError
	// с vendor-кодом и классифицируются адаптером.
	Invoke(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// SessionError — ошибка транспорта с исходным кодом расширения
// (EIP-1193 / CIP-30 / HashConnect). Классификация в таксономию —
// обязанность адаптера, не транспорта.
type SessionError struct {
	VendorCode int
	Message    string
}

func (e *SessionError) Error() string {
	return e.Message
}

// Provider — единый контракт поверх несовместимых нативных API кошельков.
// Connection Manager и Token Service зависят только от него.
type Provider interface {
	ID() string
	Family() ChainFamily

	// IsAvailable сообщает, установлено ли расширение. Отсутствие —
	// нормальный результат (false), не ошибка.
	IsAvailable(ctx context.Context) bool

	// Connect запрашивает доступ к аккаунту. Ошибки: NOT_INSTALLED,
	// USER_REJECTED, NETWORK_MISMATCH, CONNECTION_TIMEOUT.
	Connect(ctx context.Context) (*Connection, error)

	// SignMessage запрашивает отсоединённую подпись над произвольной
	// строкой. Комиссии не требует. USER_REJECTED при отказе.
	SignMessage(ctx context.Context, message string) (*SignatureResult, error)

	// BuildAndSign собирает chain-specific транзакцию и отдаёт её
	// кошельку на подпись.
	BuildAndSign(ctx context.Context, intent TxIntent) (*SignedTx, error)

	// Submit отправляет подписанную транзакцию в сеть.
	Submit(ctx context.Context, tx *SignedTx) (*SubmitResult, error)

	// Read-only запросы. Состояние подключения не меняют.
	GetBalance(ctx context.Context) (*Balance, error)
	GetAssets(ctx context.Context) ([]Asset, error)
	GetTokenInfo(ctx context.Context, policyID, assetName string) (*TokenInfo, error)
	EstimateFee(ctx context.Context, intent TxIntent) (string, error)

	// ValidateAddress проверяет адрес по грамматике своей сети.
	ValidateAddress(address string) bool
}

// TxIntent — намерение: что именно строить и подписывать.
type TxIntentKind string

const (
	IntentMint     TxIntentKind = "mint"
	IntentTransfer TxIntentKind = "transfer"
)

type TxIntent struct {
	Kind     TxIntentKind
	Mint     *MintParams
	Transfer *TransferParams
}

// Registry — реестр провайдеров по id.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.ID()] = p
	}
	return r
}

func (r *Registry) Get(providerID string) (Provider, bool) {
	p, ok := r.providers[providerID]
	return p, ok
}

// ByFamily возвращает провайдеров семейства в стабильном порядке.
func (r *Registry) ByFamily(family ChainFamily) []Provider {
	var out []Provider
	for _, p := range r.providers {
		if p.Family() == family {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
