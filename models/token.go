package models

// NativeSentinel selects the chain's native asset in place of a token address.
const NativeSentinel = "NATIVE"

type Token struct {
	ChainID  int64  `json:"chainId"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	IsNative bool   `json:"isNative"`
}
