package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/lucsky/cuid"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/2HgO/aura-go/config"
	"github.com/2HgO/aura-go/db"
	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/metrics"
	"github.com/2HgO/aura-go/models"
	"github.com/2HgO/aura-go/utils"
)

const (
	x402Version           = 1
	paymentCurrency       = "USDC"
	paymentAssetDecimals  = 6
	facilitatorUpstream   = "x402 payment backend"
	facilitatorCompleted  = "completed"
	paymentTimeoutSeconds = 300
)

// Prices lists what each gated service costs per validity window.
var Prices = map[string]models.ServicePrice{
	"swap-quote":       {Service: "swap-quote", Amount: decimal.RequireFromString("0.01"), Currency: paymentCurrency, Description: "Uniswap swap quote"},
	"swap-execute":     {Service: "swap-execute", Amount: decimal.RequireFromString("0.10"), Currency: paymentCurrency, Description: "Uniswap swap execution"},
	"strategy-execute": {Service: "strategy-execute", Amount: decimal.RequireFromString("0.25"), Currency: paymentCurrency, Description: "Multi-step strategy execution"},
	"chat":             {Service: "chat", Amount: decimal.RequireFromString("0.05"), Currency: paymentCurrency, Description: "AI portfolio assistant"},
}

var networkChainIDs = map[string]int64{
	"base":         8453,
	"base-sepolia": 84532,
	"ethereum":     1,
	"polygon":      137,
	"arbitrum":     42161,
}

type PaymentService interface {
	// HasValidPayment reports whether address paid for service within the validity window.
	HasValidPayment(ctx context.Context, address, service string) (bool, error)
	CreatePayment(ctx context.Context, service, address string) (*models.PaymentRequest, error)
	// VerifyPayment asks the payment backend for the status of paymentID. Any backend failure reads as unpaid.
	VerifyPayment(ctx context.Context, paymentID string) (*models.PaymentVerification, error)
	// Challenge creates a payment request and wraps it in an x402 402 body for resource.
	Challenge(ctx context.Context, service, address, resource string) (*models.PaymentChallenge, error)
	Status(ctx context.Context, address string) ([]models.ServiceAccess, error)
	Prices() []models.ServicePrice
}

// FacilitatorPayment is the payment backend's view of one payment.
type FacilitatorPayment struct {
	Status          string     `json:"status"`
	TransactionHash string     `json:"transactionHash"`
	PaidAt          *time.Time `json:"paidAt"`
}

type PaymentFacilitator interface {
	PaymentStatus(ctx context.Context, paymentID string) (*FacilitatorPayment, error)
}

func NewPaymentFacilitator(cfg *config.Config, log *zap.Logger) PaymentFacilitator {
	if cfg.X402PaymentEndpoint == "" {
		return unconfiguredFacilitator{}
	}
	return &httpFacilitator{client: newUpstreamClient(facilitatorUpstream, cfg.X402PaymentEndpoint, log, withTimeout(10*time.Second))}
}

type httpFacilitator struct {
	client *upstreamClient
}

func (h *httpFacilitator) PaymentStatus(ctx context.Context, paymentID string) (*FacilitatorPayment, error) {
	res := &FacilitatorPayment{}
	if err := h.client.do(ctx, http.MethodGet, "/payments/"+paymentID, nil, nil, res); err != nil {
		return nil, err
	}
	return res, nil
}

type unconfiguredFacilitator struct{}

func (unconfiguredFacilitator) PaymentStatus(context.Context, string) (*FacilitatorPayment, error) {
	return nil, errors.New("X402_PAYMENT_ENDPOINT is not configured")
}

type PaymentOption func(*paymentService)

func WithPaymentClock(now func() time.Time) PaymentOption {
	return func(p *paymentService) {
		p.now = now
	}
}

func NewPaymentService(
	cfg *config.Config,
	payments db.PaymentRepository,
	cache db.PaymentCache,
	facilitator PaymentFacilitator,
	ledger LedgerService,
	scheduler SchedulerService,
	notifier Notifier,
	recorder metrics.Recorder,
	log *zap.Logger,
	opts ...PaymentOption,
) PaymentService {
	p := &paymentService{
		service:     newService(recorder, log),
		payments:    payments,
		cache:       cache,
		facilitator: facilitator,
		ledger:      ledger,
		scheduler:   scheduler,
		notifier:    notifier,
		validity:    cfg.PaymentValidity,
		requestTTL:  cfg.PaymentRequestTTL,
		payTo:       cfg.X402WalletAddress,
		network:     cfg.X402Network,
		asset:       cfg.X402Asset,
		baseURL:     strings.TrimSuffix(cfg.PaymentBaseURL, "/"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type paymentService struct {
	service
	payments    db.PaymentRepository
	cache       db.PaymentCache
	facilitator PaymentFacilitator
	ledger      LedgerService
	scheduler   SchedulerService
	notifier    Notifier

	validity   time.Duration
	requestTTL time.Duration
	payTo      string
	network    string
	asset      string
	baseURL    string
}

func (p *paymentService) HasValidPayment(ctx context.Context, address, service string) (bool, error) {
	if !utils.IsValidAddress(address) {
		return false, nil
	}
	now := p.now()

	if until, ok, err := p.cache.PaidUntil(ctx, address, service); err != nil {
		p.log.Warn("reading payment cache", zap.Error(err))
	} else if ok && now.Before(until) {
		return true, nil
	}

	record, err := p.payments.LatestCompleted(ctx, address, service)
	if err != nil {
		var appErr errors.AppError
		if errors.As(err, &appErr) && appErr.Type == errors.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	if !record.ValidAt(now, p.validity) {
		return false, nil
	}
	if err := p.cache.MarkPaid(ctx, address, service, record.PaidAt.Add(p.validity)); err != nil {
		p.log.Warn("writing payment cache", zap.Error(err))
	}
	return true, nil
}

func (p *paymentService) CreatePayment(ctx context.Context, service, address string) (*models.PaymentRequest, error) {
	price, ok := Prices[service]
	if !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown service: %s", service))
	}
	if !utils.IsValidAddress(address) {
		return nil, errors.NewValidationError("a valid wallet address is required to create a payment")
	}

	now := p.now()
	id := "pay_" + cuid.New()
	units, err := utils.ToBaseUnits(price.Amount, paymentAssetDecimals)
	if err != nil {
		return nil, errors.NewFatalError(err)
	}
	uri := p.paymentURI(units.String())
	qr, err := qrDataURL(uri)
	if err != nil {
		return nil, errors.NewFatalError(err)
	}

	record := &models.PaymentRecord{
		PaymentID:   id,
		Service:     service,
		Amount:      price.Amount,
		Currency:    price.Currency,
		UserAddress: utils.NormalizeAddress(address),
		Status:      models.PaymentPending,
		ExpiresAt:   now.Add(p.requestTTL),
		CreatedAt:   now,
	}
	if err := p.payments.Create(ctx, record); err != nil {
		return nil, err
	}
	p.scheduleExpiry(record)
	p.metrics.IncCounter("payment_created", map[string]string{"outcome": service})

	return &models.PaymentRequest{
		PaymentID: id,
		Service:   service,
		Amount:    price.Amount,
		Currency:  price.Currency,
		Network:   p.network,
		Asset:     p.asset,
		PayTo:     p.payTo,
		URL:       p.baseURL + "/" + id,
		URI:       uri,
		QRCode:    qr,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// paymentURI builds an EIP-681 ERC-20 transfer link for the payment asset.
func (p *paymentService) paymentURI(units string) string {
	target := p.asset
	if chainID, ok := networkChainIDs[p.network]; ok {
		target = fmt.Sprintf("%s@%d", p.asset, chainID)
	}
	return fmt.Sprintf("ethereum:%s/transfer?address=%s&uint256=%s", target, p.payTo, units)
}

func qrDataURL(content string) (string, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}
	png, err := qr.PNG(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate PNG: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func expiryTaskID(paymentID string) string {
	return "payment-expiry-" + paymentID
}

func (p *paymentService) scheduleExpiry(record *models.PaymentRecord) {
	if p.scheduler == nil {
		return
	}
	paymentID := record.PaymentID
	err := p.scheduler.ScheduleAt(expiryTaskID(paymentID), record.ExpiresAt, func(ctx context.Context) error {
		return p.expire(ctx, paymentID)
	})
	if err != nil {
		p.log.Error("scheduling payment expiry", zap.String("payment_id", paymentID), zap.Error(err))
	}
}

func (p *paymentService) expire(ctx context.Context, paymentID string) error {
	record, err := p.payments.Get(ctx, paymentID)
	if err != nil {
		return err
	}
	if record.Status != models.PaymentPending {
		return nil
	}
	record.Status = models.PaymentExpired
	p.log.Info("payment request expired", zap.String("payment_id", paymentID))
	return p.payments.Update(ctx, record)
}

func (p *paymentService) VerifyPayment(ctx context.Context, paymentID string) (*models.PaymentVerification, error) {
	record, err := p.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if record.Status == models.PaymentCompleted {
		return &models.PaymentVerification{PaymentID: paymentID, IsPaid: true, TransactionHash: record.TransactionHash, PaidAt: record.PaidAt}, nil
	}

	notPaid := &models.PaymentVerification{PaymentID: paymentID}
	status, err := p.facilitator.PaymentStatus(ctx, paymentID)
	if err != nil {
		p.log.Warn("verifying payment, treating as unpaid", zap.String("payment_id", paymentID), zap.Error(err))
		p.metrics.IncCounter("payment_verified", map[string]string{"outcome": "unavailable"})
		return notPaid, nil
	}
	if !strings.EqualFold(status.Status, facilitatorCompleted) {
		p.metrics.IncCounter("payment_verified", map[string]string{"outcome": "unpaid"})
		return notPaid, nil
	}

	paidAt := p.now()
	if status.PaidAt != nil {
		paidAt = *status.PaidAt
	}
	record.Status = models.PaymentCompleted
	record.PaidAt = &paidAt
	if status.TransactionHash != "" {
		hash := status.TransactionHash
		record.TransactionHash = &hash
	}
	if err := p.payments.Update(ctx, record); err != nil {
		return nil, err
	}
	if p.scheduler != nil {
		p.scheduler.DropTask(expiryTaskID(paymentID))
	}
	if err := p.cache.MarkPaid(ctx, record.UserAddress, record.Service, paidAt.Add(p.validity)); err != nil {
		p.log.Warn("writing payment cache", zap.Error(err))
	}
	if err := p.ledger.RecordPayment(ctx, record); err != nil {
		p.log.Error("posting payment to ledger", zap.String("payment_id", paymentID), zap.Error(err))
	}
	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, models.PaymentCompleted_WebhookEvent, record.UserAddress, record); err != nil {
			p.log.Warn("notifying payment completion", zap.Error(err))
		}
	}
	p.metrics.IncCounter("payment_verified", map[string]string{"outcome": "paid"})
	p.log.Info("payment completed", zap.String("payment_id", paymentID), zap.String("service", record.Service))

	return &models.PaymentVerification{PaymentID: paymentID, IsPaid: true, TransactionHash: record.TransactionHash, PaidAt: record.PaidAt}, nil
}

func (p *paymentService) Challenge(ctx context.Context, service, address, resource string) (*models.PaymentChallenge, error) {
	payment, err := p.CreatePayment(ctx, service, address)
	if err != nil {
		return nil, err
	}
	units, err := utils.ToBaseUnits(payment.Amount, paymentAssetDecimals)
	if err != nil {
		return nil, errors.NewFatalError(err)
	}
	return &models.PaymentChallenge{
		X402Version: x402Version,
		Error:       fmt.Sprintf("payment required for %s", service),
		Payment:     payment,
		Accepts: []models.PaymentRequirements{{
			Scheme:            "exact",
			Network:           p.network,
			MaxAmountRequired: units.String(),
			Resource:          resource,
			Description:       Prices[service].Description,
			MimeType:          "application/json",
			PayTo:             p.payTo,
			MaxTimeoutSeconds: paymentTimeoutSeconds,
			Asset:             p.asset,
			Extra:             map[string]any{"paymentId": payment.PaymentID},
		}},
	}, nil
}

func (p *paymentService) Status(ctx context.Context, address string) ([]models.ServiceAccess, error) {
	if !utils.IsValidAddress(address) {
		return nil, errors.NewValidationError("a valid wallet address is required")
	}
	now := p.now()
	access := []models.ServiceAccess{}
	for _, price := range p.Prices() {
		entry := models.ServiceAccess{Service: price.Service}
		record, err := p.payments.LatestCompleted(ctx, address, price.Service)
		if err == nil && record.ValidAt(now, p.validity) {
			until := record.PaidAt.Add(p.validity)
			entry.Paid, entry.ValidUntil = true, &until
		}
		access = append(access, entry)
	}
	return access, nil
}

func (p *paymentService) Prices() []models.ServicePrice {
	prices := make([]models.ServicePrice, 0, len(Prices))
	for _, price := range Prices {
		prices = append(prices, price)
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].Service < prices[j].Service })
	return prices
}
