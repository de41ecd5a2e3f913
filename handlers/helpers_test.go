package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/2HgO/aura-go/config"
	"github.com/2HgO/aura-go/models"
)

const payer = "0x1111111111111111111111111111111111111111"

type mockPayments struct {
	mock.Mock
}

func (m *mockPayments) HasValidPayment(ctx context.Context, address, service string) (bool, error) {
	args := m.Called(ctx, address, service)
	return args.Bool(0), args.Error(1)
}

func (m *mockPayments) CreatePayment(ctx context.Context, service, address string) (*models.PaymentRequest, error) {
	args := m.Called(ctx, service, address)
	req, _ := args.Get(0).(*models.PaymentRequest)
	return req, args.Error(1)
}

func (m *mockPayments) VerifyPayment(ctx context.Context, paymentID string) (*models.PaymentVerification, error) {
	args := m.Called(ctx, paymentID)
	v, _ := args.Get(0).(*models.PaymentVerification)
	return v, args.Error(1)
}

func (m *mockPayments) Challenge(ctx context.Context, service, address, resource string) (*models.PaymentChallenge, error) {
	args := m.Called(ctx, service, address, resource)
	c, _ := args.Get(0).(*models.PaymentChallenge)
	return c, args.Error(1)
}

func (m *mockPayments) Status(ctx context.Context, address string) ([]models.ServiceAccess, error) {
	args := m.Called(ctx, address)
	s, _ := args.Get(0).([]models.ServiceAccess)
	return s, args.Error(1)
}

func (m *mockPayments) Prices() []models.ServicePrice {
	return m.Called().Get(0).([]models.ServicePrice)
}

func newMiddlewares(payments *mockPayments, rps float64, burst int) *middlewareHandler {
	cfg := &config.Config{RateLimitRPS: rps, RateLimitBurst: burst}
	return NewMiddlewareHandler(cfg, payments, nil, zap.NewNop()).(*middlewareHandler)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
