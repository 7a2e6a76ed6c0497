package wallet

import (
	"errors"
	"fmt"
)

// ErrorCode — закрытая таксономия ошибок кошелька и токен-операций.
// Каждый код порождается ровно в одном слое: NOT_INSTALLED/USER_REJECTED/
// NETWORK_MISMATCH/CONNECTION_TIMEOUT — адаптером, INVALID_* — локальной
// валидацией, INSUFFICIENT_BALANCE — проверкой баланса перед подписью,
// NETWORK_ERROR — слоем отправки. Выше по стеку коды не переклассифицируются.
type ErrorCode string

const (
	ErrNotInstalled        ErrorCode = "NOT_INSTALLED"
	ErrUserRejected        ErrorCode = "USER_REJECTED"
	ErrNetworkMismatch     ErrorCode = "NETWORK_MISMATCH"
	ErrConnectionTimeout   ErrorCode = "CONNECTION_TIMEOUT"
	ErrInvalidParams       ErrorCode = "INVALID_PARAMS"
	ErrInvalidMetadata     ErrorCode = "INVALID_METADATA"
	ErrInvalidAddress      ErrorCode = "INVALID_ADDRESS"
	ErrInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	ErrNetworkError        ErrorCode = "NETWORK_ERROR"
	ErrUnknown             ErrorCode = "UNKNOWN"
)

// Error — типизированная ошибка с машинно-читаемым кодом. Никогда не
// ретраится автоматически: решение (повтор, отмена, исправление ввода)
// всегда остаётся за вызывающей стороной.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func NewErrorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// CodeOf возвращает код ошибки или UNKNOWN, если err не из таксономии.
func CodeOf(err error) ErrorCode {
	var we *Error
	if errors.As(err, &we) {
		return we.Code
	}
	return ErrUnknown
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ErrTokenNotFound — «токен не найден» для read-only запросов.
// Отличим от транспортного сбоя: сеть ответила, записи нет.
var ErrTokenNotFound = errors.New("token not found")
