package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeType string

const (
	ExactIn  TradeType = "exactIn"
	ExactOut TradeType = "exactOut"
)

// DefaultFeeTier is the Uniswap V3 0.3% pool fee, in hundredths of a bip.
const DefaultFeeTier uint32 = 3000

type RouteHop struct {
	TokenIn  Token  `json:"tokenIn"`
	TokenOut Token  `json:"tokenOut"`
	FeeTier  uint32 `json:"feeTier"`
}

type SwapQuote struct {
	ChainID         int64           `json:"chainId"`
	TradeType       TradeType       `json:"tradeType"`
	InputAmount     decimal.Decimal `json:"inputAmount"`
	OutputAmount    decimal.Decimal `json:"outputAmount"`
	MinimumReceived decimal.Decimal `json:"minimumReceived"`
	MaximumInput    decimal.Decimal `json:"maximumInput"`
	Slippage        decimal.Decimal `json:"slippage"`
	Route           []RouteHop      `json:"route"`
	EstimatedGas    uint64          `json:"estimatedGas"`
	PriceImpact     decimal.Decimal `json:"priceImpact"`
	Source          string          `json:"source"`
	QuotedAt        time.Time       `json:"quotedAt"`
	ValidFor        string          `json:"validFor"`
}

type SwapResult struct {
	ChainID        int64           `json:"chainId"`
	TxHash         string          `json:"txHash"`
	ApprovalTxHash string          `json:"approvalTxHash,omitempty"`
	AmountIn       decimal.Decimal `json:"amountIn"`
	OutputAmount   decimal.Decimal `json:"outputAmount"`
	GasUsed        uint64          `json:"gasUsed"`
	Route          []RouteHop      `json:"route"`
	ExplorerURL    string          `json:"explorerUrl"`
}
