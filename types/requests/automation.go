package requests

import (
	"encoding/json"

	"github.com/2HgO/aura-go/models"
)

type CreateAutomationRuleRequest struct {
	UserID          string             `json:"userId" validate:"required"`
	StrategyID      string             `json:"strategyId" validate:"required"`
	Type            models.RuleType    `json:"type" validate:"required,oneof=PRICE_TRIGGER TIME_BASED PORTFOLIO_REBALANCE YIELD_OPTIMIZATION"`
	Conditions      json.RawMessage    `json:"conditions" validate:"required"`
	Actions         models.RuleActions `json:"actions"`
	MaxExecutions   int                `json:"maxExecutions" validate:"gte=0"`
	CooldownMinutes int                `json:"cooldownMinutes" default:"60" validate:"gte=0"`
}

type UpdateAutomationRuleRequest struct {
	RuleID          string              `uri:"rule_id" validate:"required"`
	Action          string              `json:"action" validate:"omitempty,oneof=pause resume"`
	StrategyID      *string             `json:"strategyId" validate:"omitempty,min=1"`
	Conditions      json.RawMessage     `json:"conditions"`
	Actions         *models.RuleActions `json:"actions"`
	MaxExecutions   *int                `json:"maxExecutions" validate:"omitempty,gte=0"`
	CooldownMinutes *int                `json:"cooldownMinutes" validate:"omitempty,gte=0"`
}

type AutomationRuleRequest struct {
	RuleID string `uri:"rule_id" validate:"required"`
}

type ListAutomationRulesRequest struct {
	UserID string `query:"userId"`
	Status string `query:"status" validate:"omitempty,oneof=ACTIVE PAUSED COMPLETED"`
}
