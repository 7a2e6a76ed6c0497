package dto

type AuthResponse struct {
	Token  string `json:"token"`
	User   any    `json:"user"`
	Wallet any    `json:"wallet,omitempty"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"` // машинный код из таксономии кошелька
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type NonceResponse struct {
	Nonce   string `json:"nonce"`
	Message string `json:"message"` // готовый текст для подписи кошельком
}

type TokenLookupResponse struct {
	Found       bool   `json:"found"`
	Token       any    `json:"token,omitempty"`
	ExplorerURL string `json:"explorer_url,omitempty"`
}
