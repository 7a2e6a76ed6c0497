// Package chainquery опрашивает публичные REST-индексаторы сетей о
// статусе отправленных транзакций: Hedera mirror node и совместимый с
// Koios API Cardano. Только чтение, ключей не требует.
package chainquery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harvestledger/backend/internal/wallet"
)

type Client struct {
	hederaMirrorURL  string
	cardanoAPIURL    string
	minConfirmations int
	httpClient       *http.Client
	log              *zap.Logger
}

func New(hederaMirrorURL, cardanoAPIURL string, minConfirmations int, log *zap.Logger) *Client {
	if minConfirmations < 1 {
		minConfirmations = 1
	}
	return &Client{
		hederaMirrorURL:  strings.TrimRight(hederaMirrorURL, "/"),
		cardanoAPIURL:    strings.TrimRight(cardanoAPIURL, "/"),
		minConfirmations: minConfirmations,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

// TxStatus возвращает статус транзакции в сети. Отсутствие транзакции в
// индексаторе — это ещё pending: индексаторы отстают от консенсуса.
func (c *Client) TxStatus(ctx context.Context, family wallet.ChainFamily, txHash string) (wallet.TxStatus, error) {
	if family == wallet.FamilyHedera {
		return c.hederaTxStatus(ctx, txHash)
	}
	return c.cardanoTxStatus(ctx, txHash)
}

func (c *Client) hederaTxStatus(ctx context.Context, txHash string) (wallet.TxStatus, error) {
	url := fmt.Sprintf("%s/api/v1/transactions/%s", c.hederaMirrorURL, txHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("mirror node unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return wallet.TxPending, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("mirror node returned %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Transactions []struct {
			Result string `json:"result"`
		} `json:"transactions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if len(payload.Transactions) == 0 {
		return wallet.TxPending, nil
	}
	if payload.Transactions[0].Result == "SUCCESS" {
		return wallet.TxConfirmed, nil
	}
	return wallet.TxFailed, nil
}

func (c *Client) cardanoTxStatus(ctx context.Context, txHash string) (wallet.TxStatus, error) {
	url := fmt.Sprintf("%s/api/v1/tx_status?_tx_hashes=%s", c.cardanoAPIURL, txHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cardano indexer unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("cardano indexer returned %d: %s", resp.StatusCode, string(body))
	}

	var payload []struct {
		TxHash        string `json:"tx_hash"`
		Confirmations int    `json:"num_confirmations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if len(payload) == 0 || payload[0].Confirmations < c.minConfirmations {
		return wallet.TxPending, nil
	}
	return wallet.TxConfirmed, nil
}
