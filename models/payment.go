package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentExpired   PaymentStatus = "expired"
)

type PaymentRecord struct {
	PaymentID       string          `json:"paymentId"`
	Service         string          `json:"service"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	UserAddress     string          `json:"userAddress"`
	Status          PaymentStatus   `json:"status"`
	ExpiresAt       time.Time       `json:"expiresAt"`
	TransactionHash *string         `json:"transactionHash,omitempty"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// ValidAt reports whether a completed payment still covers its service at now.
func (p *PaymentRecord) ValidAt(now time.Time, window time.Duration) bool {
	if p.Status != PaymentCompleted || p.PaidAt == nil {
		return false
	}
	return now.Sub(*p.PaidAt) < window
}

type PaymentRequest struct {
	PaymentID string          `json:"paymentId"`
	Service   string          `json:"service"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Network   string          `json:"network"`
	Asset     string          `json:"asset"`
	PayTo     string          `json:"payTo"`
	URL       string          `json:"url"`
	URI       string          `json:"uri"`
	QRCode    string          `json:"qrCode"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

type PaymentVerification struct {
	PaymentID       string     `json:"paymentId"`
	IsPaid          bool       `json:"isPaid"`
	TransactionHash *string    `json:"transactionHash,omitempty"`
	PaidAt          *time.Time `json:"paidAt,omitempty"`
}

// PaymentRequirements is one entry of the x402 "accepts" list.
type PaymentRequirements struct {
	Scheme            string         `json:"scheme"`
	Network           string         `json:"network"`
	MaxAmountRequired string         `json:"maxAmountRequired"`
	Resource          string         `json:"resource"`
	Description       string         `json:"description"`
	MimeType          string         `json:"mimeType"`
	PayTo             string         `json:"payTo"`
	MaxTimeoutSeconds int            `json:"maxTimeoutSeconds"`
	Asset             string         `json:"asset"`
	Extra             map[string]any `json:"extra,omitempty"`
}

// PaymentChallenge is the body of a 402 response.
type PaymentChallenge struct {
	X402Version int                   `json:"x402Version"`
	Error       string                `json:"error"`
	Payment     *PaymentRequest       `json:"payment"`
	Accepts     []PaymentRequirements `json:"accepts"`
}

type ServicePrice struct {
	Service     string          `json:"service"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

type ServiceAccess struct {
	Service    string     `json:"service"`
	Paid       bool       `json:"paid"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`
}
