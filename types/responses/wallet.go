package responses

import "github.com/shopspring/decimal"

type WalletValidation struct {
	Address        string          `json:"address"`
	Chain          string          `json:"chain"`
	IsValid        bool            `json:"isValid"`
	IsConnected    bool            `json:"isConnected"`
	HasBalance     bool            `json:"hasBalance"`
	NativeBalance  decimal.Decimal `json:"nativeBalance"`
	NativeSymbol   string          `json:"nativeSymbol,omitempty"`
	Nonce          uint64          `json:"nonce"`
	AuraValueUSD   decimal.Decimal `json:"auraValueUsd"`
	LikelyMockData bool            `json:"likelyMockData"`
	ExplorerURL    string          `json:"explorerUrl,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`
}
