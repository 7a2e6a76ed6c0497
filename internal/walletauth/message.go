// Package walletauth — канонические сообщения для привязки кошельков и
// проверка подписей разных типов кошельков (ed25519 для нативных
// Hedera/Cardano, secp256k1 personal_sign для MetaMask).
package walletauth

import (
	"fmt"
	"regexp"
	"time"
)

const (
	// MaxLinkAge — максимальный возраст linking-сообщения (защита от replay).
	MaxLinkAge = 5 * time.Minute

	// Допуск на рассинхронизацию часов клиента.
	clockSkew = 1 * time.Minute
)

// Точный формат сообщения: его подписывают оба кошелька, и сервер
// проверяет обе подписи над байт-в-байт тем же текстом.
// "Link wallet <address> to account <userID> at <RFC3339>"
var linkMessageRe = regexp.MustCompile(
	`^Link wallet (\S+) to account (\S+) at (\d{4}-\d{2}-\d{2}T[0-9:.]+(?:Z|[+-]\d{2}:\d{2}))$`)

// BuildLinkMessage собирает каноническое linking-сообщение. Внутри —
// адрес нового кошелька, идентификатор аккаунта и момент запроса: этим
// сообщение привязывает намерение к конкретной паре (кошелёк, аккаунт).
func BuildLinkMessage(newWalletAddress, userID string, at time.Time) string {
	return fmt.Sprintf("Link wallet %s to account %s at %s",
		newWalletAddress, userID, at.UTC().Format(time.RFC3339))
}

// ParsedLinkMessage — разобранные поля linking-сообщения.
type ParsedLinkMessage struct {
	WalletAddress string
	UserID        string
	IssuedAt      time.Time
}

// ParseLinkMessage валидирует формат и свежесть сообщения.
func ParseLinkMessage(message string) (*ParsedLinkMessage, error) {
	m := linkMessageRe.FindStringSubmatch(message)
	if m == nil {
		return nil, fmt.Errorf("malformed link message")
	}

	issuedAt, err := time.Parse(time.RFC3339, m[3])
	if err != nil {
		return nil, fmt.Errorf("invalid link message timestamp: %w", err)
	}

	if time.Since(issuedAt) > MaxLinkAge {
		return nil, fmt.Errorf("link message expired: %s old", time.Since(issuedAt).Round(time.Second))
	}
	if issuedAt.After(time.Now().Add(clockSkew)) {
		return nil, fmt.Errorf("link message timestamp is in the future")
	}

	return &ParsedLinkMessage{
		WalletAddress: m[1],
		UserID:        m[2],
		IssuedAt:      issuedAt,
	}, nil
}

// BuildSignInMessage — сообщение для входа по кошельку. Nonce выдаёт
// сервер и потребляет его ровно один раз.
func BuildSignInMessage(address, nonce string) string {
	return fmt.Sprintf("HarvestLedger sign-in\nAddress: %s\nNonce: %s", address, nonce)
}
