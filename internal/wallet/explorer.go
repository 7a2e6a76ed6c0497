package wallet

import "fmt"

// ExplorerTxURL строит ссылку на публичный обозреватель для ручной
// проверки транзакции. Наружу, человеку; программно не потребляется.
func ExplorerTxURL(family ChainFamily, networkID int, txHash string) string {
	switch family {
	case FamilyHedera:
		net := "testnet"
		if networkID == 1 {
			net = "mainnet"
		}
		return fmt.Sprintf("https://hashscan.io/%s/transaction/%s", net, txHash)
	default:
		if networkID == 1 {
			return fmt.Sprintf("https://cardanoscan.io/transaction/%s", txHash)
		}
		return fmt.Sprintf("https://preprod.cardanoscan.io/transaction/%s", txHash)
	}
}
