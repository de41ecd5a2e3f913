package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/2HgO/aura-go/config"
	"github.com/2HgO/aura-go/db"
	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/models"
)

type fakeFacilitator struct {
	payment *FacilitatorPayment
	err     error
}

func (f *fakeFacilitator) PaymentStatus(context.Context, string) (*FacilitatorPayment, error) {
	return f.payment, f.err
}

type recordingLedger struct {
	records []*models.PaymentRecord
}

func (r *recordingLedger) RecordPayment(_ context.Context, record *models.PaymentRecord) error {
	r.records = append(r.records, record)
	return nil
}

type paymentFixture struct {
	svc         PaymentService
	clock       *fakeClock
	repo        db.PaymentRepository
	facilitator *fakeFacilitator
	ledger      *recordingLedger
	scheduler   *fakeScheduler
	notifier    *mockNotifier
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		clock:       &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		repo:        db.NewMemoryPaymentRepository(),
		facilitator: &fakeFacilitator{payment: &FacilitatorPayment{Status: "pending"}},
		ledger:      &recordingLedger{},
		scheduler:   newFakeScheduler(),
		notifier:    &mockNotifier{},
	}
	cfg := &config.Config{
		PaymentValidity:   24 * time.Hour,
		PaymentRequestTTL: time.Hour,
		X402WalletAddress: "0x9999999999999999999999999999999999999999",
		X402Network:       "base",
		X402Asset:         "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		PaymentBaseURL:    "https://pay.example.com/",
	}
	f.svc = NewPaymentService(cfg, f.repo, db.NewMemoryPaymentCache(f.clock.Now), f.facilitator, f.ledger,
		f.scheduler, f.notifier, nil, nil, WithPaymentClock(f.clock.Now))
	return f
}

func TestPaymentGateWindow(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	paid, err := f.svc.HasValidPayment(ctx, holder, "swap-quote")
	require.NoError(t, err)
	assert.False(t, paid)

	challenge, err := f.svc.Challenge(ctx, "swap-quote", holder, "/api/swap/quote")
	require.NoError(t, err)
	assert.Equal(t, 1, challenge.X402Version)
	require.NotNil(t, challenge.Payment)
	paymentID := challenge.Payment.PaymentID
	assert.True(t, strings.HasPrefix(paymentID, "pay_"))
	assert.True(t, strings.HasPrefix(challenge.Payment.QRCode, "data:image/png;base64,"))
	assert.Equal(t, "https://pay.example.com/"+paymentID, challenge.Payment.URL)
	assert.Equal(t, "ethereum:0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913@8453/transfer?address=0x9999999999999999999999999999999999999999&uint256=10000", challenge.Payment.URI)
	require.Len(t, challenge.Accepts, 1)
	assert.Equal(t, "10000", challenge.Accepts[0].MaxAmountRequired)
	assert.Equal(t, "/api/swap/quote", challenge.Accepts[0].Resource)
	assert.True(t, f.scheduler.Scheduled(expiryTaskID(paymentID)))

	paidAt := f.clock.now.Add(time.Minute)
	f.facilitator.payment = &FacilitatorPayment{Status: "completed", TransactionHash: "0xfeed", PaidAt: &paidAt}
	f.notifier.On("Notify", mock.Anything, models.PaymentCompleted_WebhookEvent, holder, mock.Anything).Return(nil).Once()

	verification, err := f.svc.VerifyPayment(ctx, paymentID)
	require.NoError(t, err)
	assert.True(t, verification.IsPaid)
	require.NotNil(t, verification.TransactionHash)
	assert.Equal(t, "0xfeed", *verification.TransactionHash)
	assert.False(t, f.scheduler.Scheduled(expiryTaskID(paymentID)))
	require.Len(t, f.ledger.records, 1)
	f.notifier.AssertExpectations(t)

	f.clock.Advance(23 * time.Hour)
	paid, err = f.svc.HasValidPayment(ctx, holder, "swap-quote")
	require.NoError(t, err)
	assert.True(t, paid)

	paid, err = f.svc.HasValidPayment(ctx, holder, "chat")
	require.NoError(t, err)
	assert.False(t, paid, "payment covers only its own service")

	f.clock.Advance(2 * time.Hour)
	paid, err = f.svc.HasValidPayment(ctx, holder, "swap-quote")
	require.NoError(t, err)
	assert.False(t, paid)
}

func TestVerifyPaymentFailsClosed(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	payment, err := f.svc.CreatePayment(ctx, "chat", holder)
	require.NoError(t, err)

	f.facilitator.payment, f.facilitator.err = nil, errors.New("connection refused")
	verification, err := f.svc.VerifyPayment(ctx, payment.PaymentID)
	require.NoError(t, err)
	assert.False(t, verification.IsPaid)

	record, err := f.repo.Get(ctx, payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, record.Status)
	assert.Empty(t, f.ledger.records)

	paid, err := f.svc.HasValidPayment(ctx, holder, "chat")
	require.NoError(t, err)
	assert.False(t, paid)
}

func TestPendingPaymentExpires(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	payment, err := f.svc.CreatePayment(ctx, "strategy-execute", holder)
	require.NoError(t, err)
	assert.Equal(t, f.clock.now.Add(time.Hour), payment.ExpiresAt)

	task, ok := f.scheduler.task(expiryTaskID(payment.PaymentID))
	require.True(t, ok)
	assert.Equal(t, payment.ExpiresAt, task.at)
	require.NoError(t, task.fn(ctx))

	record, err := f.repo.Get(ctx, payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentExpired, record.Status)
}

func TestCreatePaymentValidation(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	_, err := f.svc.CreatePayment(ctx, "teleport", holder)
	assert.Equal(t, errors.ErrValidation, errors.AsAppError(err).Type)

	_, err = f.svc.CreatePayment(ctx, "chat", "not-an-address")
	assert.Equal(t, errors.ErrValidation, errors.AsAppError(err).Type)
}

func TestPaymentStatusListsEveryService(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	paidAt := f.clock.now
	require.NoError(t, f.repo.Create(ctx, &models.PaymentRecord{
		PaymentID: "pay_1", Service: "chat", Currency: "USDC", UserAddress: holder,
		Status: models.PaymentCompleted, PaidAt: &paidAt, CreatedAt: paidAt,
	}))

	access, err := f.svc.Status(ctx, holder)
	require.NoError(t, err)
	require.Len(t, access, len(Prices))
	for _, entry := range access {
		if entry.Service == "chat" {
			assert.True(t, entry.Paid)
			require.NotNil(t, entry.ValidUntil)
			assert.Equal(t, paidAt.Add(24*time.Hour), *entry.ValidUntil)
			continue
		}
		assert.False(t, entry.Paid, entry.Service)
	}
}
