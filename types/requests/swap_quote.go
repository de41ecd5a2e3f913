package requests

import "github.com/2HgO/aura-go/models"

type SwapQuoteRequest struct {
	WalletAddress string           `json:"walletAddress" validate:"required,eth_addr"`
	TokenIn       string           `json:"tokenIn" validate:"required"`
	TokenOut      string           `json:"tokenOut" validate:"required"`
	AmountIn      string           `json:"amountIn" validate:"required,numeric"`
	Slippage      models.Double    `json:"slippage" default:"0.5" validate:"gte=0,lt=100"`
	TradeType     models.TradeType `json:"tradeType" default:"exactIn" validate:"oneof=exactIn exactOut"`
	Chain         string           `json:"chain"`
}
