package models

import "github.com/shopspring/decimal"

// AuraPortfolio mirrors the AURA balances payload.
type AuraPortfolio struct {
	Address   string              `json:"address"`
	Portfolio []AuraNetworkAssets `json:"portfolio"`
	Cached    bool                `json:"cached"`
}

type AuraNetworkAssets struct {
	Network AuraNetwork `json:"network"`
	Tokens  []AuraToken `json:"tokens"`
}

type AuraNetwork struct {
	Name        string `json:"name"`
	ChainID     string `json:"chainId"`
	Platform    string `json:"platformId"`
	ExplorerURL string `json:"explorerUrl"`
	IconURLs    []any  `json:"iconUrls,omitempty"`
}

type AuraToken struct {
	Address    string          `json:"address"`
	Symbol     string          `json:"symbol"`
	Network    string          `json:"network"`
	Balance    decimal.Decimal `json:"balance"`
	BalanceUSD decimal.Decimal `json:"balanceUSD"`
}

type NetworkSummary struct {
	Network    string          `json:"network"`
	ChainID    string          `json:"chainId"`
	ValueUSD   decimal.Decimal `json:"valueUsd"`
	TokenCount int             `json:"tokenCount"`
}

type Holding struct {
	Symbol     string          `json:"symbol"`
	Network    string          `json:"network"`
	Address    string          `json:"address"`
	Balance    decimal.Decimal `json:"balance"`
	ValueUSD   decimal.Decimal `json:"valueUsd"`
	Percentage decimal.Decimal `json:"percentage"`
}

type Portfolio struct {
	Address       string           `json:"address"`
	TotalValueUSD decimal.Decimal  `json:"totalValueUsd"`
	Networks      []NetworkSummary `json:"networks"`
	TopHoldings   []Holding        `json:"topHoldings"`
	TokenCount    int              `json:"tokenCount"`
	Cached        bool             `json:"cached"`
}

// AuraStrategies mirrors the AURA strategies payload: one group of recommendations per model run.
type AuraStrategies struct {
	Address    string              `json:"address"`
	Strategies []AuraStrategyGroup `json:"strategies"`
	Cached     bool                `json:"cached"`
}

type AuraStrategyGroup struct {
	LLM      map[string]string `json:"llm,omitempty"`
	Response []AuraStrategy    `json:"response"`
}

type AuraStrategy struct {
	Name    string               `json:"name"`
	Risk    string               `json:"risk"`
	Actions []AuraStrategyAction `json:"actions"`
}

type AuraStrategyAction struct {
	Tokens      string   `json:"tokens"`
	Description string   `json:"description"`
	Networks    []string `json:"networks,omitempty"`
	Operations  []string `json:"operations,omitempty"`
	APY         string   `json:"apy"`
}

type AuraTradeRequest struct {
	Address   string          `json:"address"`
	FromToken string          `json:"fromToken"`
	ToToken   string          `json:"toToken"`
	Amount    string          `json:"amount"`
	Slippage  decimal.Decimal `json:"slippage"`
}

type AuraTradeResult struct {
	Success         bool   `json:"success"`
	TransactionHash string `json:"transactionHash,omitempty"`
	FromAmount      string `json:"fromAmount,omitempty"`
	ToAmount        string `json:"toAmount,omitempty"`
	Message         string `json:"message,omitempty"`
}
