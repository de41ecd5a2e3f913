package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/2HgO/aura-go/errors"
)

type RuleType string

const (
	PriceTriggerRule       RuleType = "PRICE_TRIGGER"
	TimeBasedRule          RuleType = "TIME_BASED"
	PortfolioRebalanceRule RuleType = "PORTFOLIO_REBALANCE"
	YieldOptimizationRule  RuleType = "YIELD_OPTIMIZATION"
)

type RuleStatus string

const (
	RuleActive    RuleStatus = "ACTIVE"
	RulePaused    RuleStatus = "PAUSED"
	RuleCompleted RuleStatus = "COMPLETED"
)

// Conditions is implemented by exactly one condition struct per RuleType.
type Conditions interface {
	RuleType() RuleType
	Validate() error
}

type PriceDirection string

const (
	PriceAbove PriceDirection = "above"
	PriceBelow PriceDirection = "below"
)

type PriceTrigger struct {
	Token       string         `json:"token"`
	TargetPrice float64        `json:"targetPrice"`
	Direction   PriceDirection `json:"direction"`
}

func (PriceTrigger) RuleType() RuleType { return PriceTriggerRule }

func (p PriceTrigger) Validate() error {
	if p.Token == "" || p.TargetPrice <= 0 {
		return errors.NewValidationError("price trigger needs a token and a positive targetPrice")
	}
	if p.Direction != PriceAbove && p.Direction != PriceBelow {
		return errors.NewValidationError("price trigger direction must be one of: above, below")
	}
	return nil
}

// TimeBased fires when the minute of the hour matches Minute, or every IntervalMinutes when set.
type TimeBased struct {
	Minute          *int `json:"minute,omitempty"`
	IntervalMinutes int  `json:"intervalMinutes,omitempty"`
}

func (TimeBased) RuleType() RuleType { return TimeBasedRule }

func (t TimeBased) Validate() error {
	if t.Minute == nil && t.IntervalMinutes <= 0 {
		return errors.NewValidationError("time based rule needs a minute or a positive intervalMinutes")
	}
	if t.Minute != nil && (*t.Minute < 0 || *t.Minute > 59) {
		return errors.NewValidationError("minute must be between 0 and 59")
	}
	return nil
}

type Rebalance struct {
	Token               string  `json:"token"`
	VolatilityThreshold float64 `json:"volatilityThreshold"`
}

func (Rebalance) RuleType() RuleType { return PortfolioRebalanceRule }

func (r Rebalance) Validate() error {
	if r.VolatilityThreshold <= 0 {
		return errors.NewValidationError("rebalance rule needs a positive volatilityThreshold")
	}
	return nil
}

type YieldOptimization struct {
	MinAPY float64 `json:"minApy"`
}

func (YieldOptimization) RuleType() RuleType { return YieldOptimizationRule }

func (y YieldOptimization) Validate() error {
	if y.MinAPY <= 0 {
		return errors.NewValidationError("yield rule needs a positive minApy")
	}
	return nil
}

type RuleActions struct {
	RiskTolerance string  `json:"riskTolerance"`
	MaxSlippage   float64 `json:"maxSlippage"`
	MaxGasPrice   float64 `json:"maxGasPrice"`
	Notify        bool    `json:"notify"`
}

type AutomationRule struct {
	ID              string      `json:"id"`
	UserID          string      `json:"userId"`
	StrategyID      string      `json:"strategyId"`
	Type            RuleType    `json:"type"`
	Conditions      Conditions  `json:"conditions"`
	Actions         RuleActions `json:"actions"`
	Status          RuleStatus  `json:"status"`
	ExecutionCount  int         `json:"executionCount"`
	MaxExecutions   int         `json:"maxExecutions"`
	CooldownMinutes int         `json:"cooldownMinutes"`
	LastExecuted    *time.Time  `json:"lastExecuted,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// Exhausted reports whether the rule has run as many times as it is allowed to.
func (r *AutomationRule) Exhausted() bool {
	return r.MaxExecutions > 0 && r.ExecutionCount >= r.MaxExecutions
}

func (r *AutomationRule) CoolingDown(now time.Time) bool {
	if r.LastExecuted == nil || r.CooldownMinutes <= 0 {
		return false
	}
	return now.Sub(*r.LastExecuted) < time.Duration(r.CooldownMinutes)*time.Minute
}

type automationRuleJSON struct {
	*ruleAlias
	Conditions json.RawMessage `json:"conditions"`
}

type ruleAlias AutomationRule

func (r *AutomationRule) UnmarshalJSON(data []byte) error {
	aux := automationRuleJSON{ruleAlias: (*ruleAlias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Conditions) == 0 || string(aux.Conditions) == "null" {
		r.Conditions = nil
		return nil
	}
	conditions, err := DecodeConditions(r.Type, aux.Conditions)
	if err != nil {
		return err
	}
	r.Conditions = conditions
	return nil
}

// DecodeConditions picks the condition struct for the given rule type.
func DecodeConditions(ruleType RuleType, raw json.RawMessage) (Conditions, error) {
	var c Conditions
	switch ruleType {
	case PriceTriggerRule:
		v := PriceTrigger{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		c = v
	case TimeBasedRule:
		v := TimeBased{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		c = v
	case PortfolioRebalanceRule:
		v := Rebalance{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		c = v
	case YieldOptimizationRule:
		v := YieldOptimization{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		c = v
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unknown rule type: %s", ruleType))
	}
	return c, nil
}
