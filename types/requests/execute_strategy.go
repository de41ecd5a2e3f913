package requests

import "github.com/2HgO/aura-go/models"

type ExecuteStrategyRequest struct {
	WalletAddress string        `json:"walletAddress" validate:"required,eth_addr"`
	StrategyID    string        `json:"strategyId" validate:"required"`
	RiskTolerance string        `json:"riskTolerance" default:"medium" validate:"oneof=low medium high"`
	MaxSlippage   models.Double `json:"maxSlippage" default:"0.5" validate:"gte=0,lt=100"`
	MaxGasPrice   models.Double `json:"maxGasPrice" validate:"gte=0"`
}
