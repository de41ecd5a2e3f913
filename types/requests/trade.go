package requests

import "github.com/2HgO/aura-go/models"

type TradeRequest struct {
	Address         string                        `json:"address" validate:"required,eth_addr"`
	FromToken       string                        `json:"fromToken" validate:"required"`
	ToToken         string                        `json:"toToken" validate:"required"`
	Amount          string                        `json:"amount" validate:"required,numeric"`
	Slippage        models.Double                 `json:"slippage" default:"0.5" validate:"gte=0,lt=100"`
	Chain           string                        `json:"chain"`
	AutomationRules []CreateAutomationRuleRequest `json:"automationRules"`
}
