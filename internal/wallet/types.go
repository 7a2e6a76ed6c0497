package wallet

// ChainFamily — семейство блокчейна. Hedera и Cardano подключаются
// независимо: по одному активному кошельку на семейство.
type ChainFamily string

const (
	FamilyHedera  ChainFamily = "hedera"
	FamilyCardano ChainFamily = "cardano"
)

func (f ChainFamily) Valid() bool {
	return f == FamilyHedera || f == FamilyCardano
}

// Connection — активное подключение кошелька. Address и PublicKey
// неизменяемы на всё время жизни объекта: переподключение создаёт
// новый экземпляр, а не мутирует старый.
type Connection struct {
	Family     ChainFamily `json:"family"`
	ProviderID string      `json:"provider_id"` // hashpack/blade/.../nami/eternl/...
	Address    string      `json:"address"`
	PublicKey  string      `json:"public_key"` // hex
	NetworkID  int         `json:"network_id"` // 0 = testnet/preprod, 1 = mainnet
}

// Asset — нативный токен на кошельке. Quantity хранится строкой в
// минимальных единицах, чтобы не терять точность на больших числах.
type Asset struct {
	PolicyID  string            `json:"policy_id"` // policy id (Cardano) или token id (Hedera)
	AssetName string            `json:"asset_name"`
	Quantity  string            `json:"quantity"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Balance — баланс кошелька на момент запроса. Не кешируется:
// каждый вызов GetBalance читает состояние заново.
type Balance struct {
	Native string  `json:"native"` // минимальные единицы: tinybar / lovelace
	Assets []Asset `json:"assets"`
}

type SignatureResult struct {
	Signature string `json:"signature"`  // hex
	PublicKey string `json:"public_key"` // hex
}

// SignedTx — собранная и подписанная, но ещё не отправленная транзакция.
type SignedTx struct {
	Blob     []byte `json:"-"`
	BodyHash string `json:"body_hash"`
}

type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

type SubmitResult struct {
	TxHash string   `json:"tx_hash"`
	Status TxStatus `json:"status"`
	// TokenID заполняется сетью Hedera при чеканке: HTS присваивает
	// идентификатор токена на консенсусе, а не при сборке.
	TokenID string `json:"token_id,omitempty"`
}

// TokenInfo — результат read-only запроса метаданных токена.
type TokenInfo struct {
	PolicyID    string            `json:"policy_id"`
	AssetName   string            `json:"asset_name"`
	TotalSupply string            `json:"total_supply"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	MintTxHash  string            `json:"mint_tx_hash,omitempty"`
}

// MintParams — параметры чеканки crop-токена.
type MintParams struct {
	CropType         string        `json:"crop_type"`
	Quantity         int64         `json:"quantity"`
	Metadata         TokenMetadata `json:"metadata"`
	RecipientAddress string        `json:"recipient_address,omitempty"`

	// PolicyID/AssetName выводятся на этапе building (Cardano) и
	// фиксируются в намерении, чтобы результат ссылался на те же
	// идентификаторы, что и подписанная транзакция.
	PolicyID  string `json:"policy_id,omitempty"`
	AssetName string `json:"asset_name,omitempty"`
}

type TokenMetadata struct {
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Image          string            `json:"image,omitempty"`
	HarvestDate    string            `json:"harvest_date"` // YYYY-MM-DD
	Location       string            `json:"location"`
	Certifications []string          `json:"certifications,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

// TransferParams — параметры перевода токена.
type TransferParams struct {
	RecipientAddress string `json:"recipient_address"`
	PolicyID         string `json:"policy_id"`
	AssetName        string `json:"asset_name"`
	Quantity         string `json:"quantity"`
	Memo             string `json:"memo,omitempty"`
}

type MintResult struct {
	PolicyID  string `json:"policy_id"`
	AssetName string `json:"asset_name"`
	TxHash    string `json:"tx_hash"`
	Quantity  int64  `json:"quantity"`
	Status    TxStatus `json:"status"`
}

type TransferResult struct {
	TxHash string   `json:"tx_hash"`
	Fee    string   `json:"fee"` // минимальные единицы
	Status TxStatus `json:"status"`
}
