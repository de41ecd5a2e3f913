package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutomationRuleDecodesConditionsByType(t *testing.T) {
	raw := `{
		"id": "rule-1",
		"type": "PRICE_TRIGGER",
		"status": "ACTIVE",
		"conditions": {"token": "ETH", "targetPrice": 3000, "direction": "below"}
	}`

	var rule AutomationRule
	require.NoError(t, json.Unmarshal([]byte(raw), &rule))

	trigger, ok := rule.Conditions.(PriceTrigger)
	require.True(t, ok)
	assert.Equal(t, "ETH", trigger.Token)
	assert.Equal(t, PriceBelow, trigger.Direction)
	assert.NoError(t, trigger.Validate())
}

func TestAutomationRuleRejectsUnknownType(t *testing.T) {
	var rule AutomationRule
	err := json.Unmarshal([]byte(`{"type": "LOTTERY", "conditions": {}}`), &rule)
	assert.Error(t, err)
}

func TestAutomationRuleCooldownAndCap(t *testing.T) {
	now := time.Now()
	last := now.Add(-5 * time.Minute)
	rule := &AutomationRule{CooldownMinutes: 10, LastExecuted: &last, MaxExecutions: 2, ExecutionCount: 1}

	assert.True(t, rule.CoolingDown(now))
	assert.False(t, rule.CoolingDown(now.Add(6*time.Minute)))
	assert.False(t, rule.Exhausted())

	rule.ExecutionCount = 2
	assert.True(t, rule.Exhausted())
}

func TestTimeBasedValidate(t *testing.T) {
	minute := 75
	assert.Error(t, TimeBased{Minute: &minute}.Validate())
	assert.Error(t, TimeBased{}.Validate())
	assert.NoError(t, TimeBased{IntervalMinutes: 30}.Validate())
}

func TestDoubleAcceptsStrings(t *testing.T) {
	var v struct {
		Slippage Double `json:"slippage"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"slippage": "0.5"}`), &v))
	assert.Equal(t, "0.005", v.Slippage.Fraction().String())
}

func TestPaymentRecordValidAt(t *testing.T) {
	paidAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	record := &PaymentRecord{Status: PaymentCompleted, PaidAt: &paidAt}

	assert.True(t, record.ValidAt(paidAt.Add(23*time.Hour), 24*time.Hour))
	assert.False(t, record.ValidAt(paidAt.Add(25*time.Hour), 24*time.Hour))

	record.Status = PaymentPending
	assert.False(t, record.ValidAt(paidAt, 24*time.Hour))
}
