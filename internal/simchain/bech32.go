package simchain

import "github.com/btcsuite/btcd/btcutil/bech32"

func encodeBech32(hrp string, payload []byte) (string, error) {
	conv, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(hrp, conv)
}
