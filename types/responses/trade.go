package responses

import "github.com/2HgO/aura-go/models"

type TradeResult struct {
	Quote           *models.SwapQuote        `json:"quote"`
	Execution       *models.AuraTradeResult  `json:"execution,omitempty"`
	AutomationRules []*models.AutomationRule `json:"automationRules,omitempty"`
	ManualSwapLinks []string                 `json:"manualSwapLinks,omitempty"`
}
