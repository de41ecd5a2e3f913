package models

import (
	"encoding/json"
	"time"
)

type Webhook struct {
	Event     WebhookEvent `json:"event"`
	Data      any          `json:"data"`
	CreatedAt time.Time    `json:"createdAt"`
}

type WebhookEvent uint8

const (
	AutomationTriggered_WebhookEvent WebhookEvent = iota + 1
	AutomationFailed_WebhookEvent
	AutomationCompleted_WebhookEvent

	SwapCompleted_WebhookEvent

	PaymentCompleted_WebhookEvent
)

func (w WebhookEvent) String() string {
	switch w {
	case AutomationTriggered_WebhookEvent:
		return "automation.triggered"
	case AutomationFailed_WebhookEvent:
		return "automation.failed"
	case AutomationCompleted_WebhookEvent:
		return "automation.completed"
	case SwapCompleted_WebhookEvent:
		return "swap.completed"
	case PaymentCompleted_WebhookEvent:
		return "payment.completed"
	default:
		panic("unreachable")
	}
}

func (w WebhookEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.String())
}
