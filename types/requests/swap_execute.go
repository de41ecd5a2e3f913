package requests

import "github.com/2HgO/aura-go/models"

type SwapExecuteRequest struct {
	WalletAddress   string        `json:"walletAddress" validate:"required,eth_addr"`
	TokenIn         string        `json:"tokenIn" validate:"required"`
	TokenOut        string        `json:"tokenOut" validate:"required"`
	AmountIn        string        `json:"amountIn" validate:"required,numeric"`
	Slippage        models.Double `json:"slippage" default:"0.5" validate:"gte=0,lt=100"`
	DeadlineMinutes int           `json:"deadlineMinutes" default:"20" validate:"gt=0,lte=180"`
	Chain           string        `json:"chain"`
}
