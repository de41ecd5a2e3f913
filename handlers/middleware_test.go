package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/models"
)

func echoBody(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func TestRequirePaymentChallengesUnpaidCaller(t *testing.T) {
	payments := new(mockPayments)
	challenge := &models.PaymentChallenge{
		X402Version: 1,
		Error:       "payment required",
		Payment:     &models.PaymentRequest{PaymentID: "pay_abc", Service: "swap-quote"},
	}
	payments.On("HasValidPayment", mock.Anything, payer, "swap-quote").Return(false, nil)
	payments.On("Challenge", mock.Anything, "swap-quote", payer, "/api/swap/quote").Return(challenge, nil)

	m := newMiddlewares(payments, 0, 0)
	h := m.RequirePayment("swap-quote")(echoBody)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/swap/quote", strings.NewReader(`{"walletAddress":"`+payer+`"}`)))

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["x402Version"])
	assert.Equal(t, "pay_abc", body["payment"].(map[string]any)["paymentId"])
	payments.AssertExpectations(t)
}

func TestRequirePaymentPassesPaidCallerWithBodyIntact(t *testing.T) {
	payments := new(mockPayments)
	payments.On("HasValidPayment", mock.Anything, payer, "chat").Return(true, nil)

	m := newMiddlewares(payments, 0, 0)
	h := m.RequirePayment("chat")(echoBody)

	payload := `{"address":"` + payer + `","message":"hi"}`
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(payload)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, rec.Body.String())
	payments.AssertNotCalled(t, "Challenge", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequirePaymentAddressSources(t *testing.T) {
	cases := []struct {
		name    string
		request func() *http.Request
	}{
		{"query", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/x?address="+payer, nil)
		}},
		{"header", func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/api/x", strings.NewReader(`{"other":1}`))
			r.Header.Set(walletHeader, payer)
			return r
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payments := new(mockPayments)
			payments.On("HasValidPayment", mock.Anything, payer, "chat").Return(true, nil)

			rec := httptest.NewRecorder()
			newMiddlewares(payments, 0, 0).RequirePayment("chat")(echoBody)(rec, tc.request())
			assert.Equal(t, http.StatusOK, rec.Code)
			payments.AssertExpectations(t)
		})
	}
}

func TestRequirePaymentRejectsMissingWallet(t *testing.T) {
	payments := new(mockPayments)
	rec := httptest.NewRecorder()
	newMiddlewares(payments, 0, 0).RequirePayment("chat")(echoBody)(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"walletAddress":"0x123"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payments.AssertNotCalled(t, "HasValidPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequirePaymentSurfacesServiceErrors(t *testing.T) {
	payments := new(mockPayments)
	payments.On("HasValidPayment", mock.Anything, payer, "chat").Return(false, errors.NewFatalError(io.ErrUnexpectedEOF))

	rec := httptest.NewRecorder()
	newMiddlewares(payments, 0, 0).RequirePayment("chat")(echoBody)(rec, httptest.NewRequest(http.MethodGet, "/api/chat?address="+payer, nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimitPerClient(t *testing.T) {
	m := newMiddlewares(new(mockPayments), 1, 2)
	h := m.RateLimit(echoBody)

	call := func(ip string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/asset", nil)
		r.RemoteAddr = ip + ":5000"
		rec := httptest.NewRecorder()
		h(rec, r)
		return rec
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, call("10.0.0.1").Code)
	limited := call("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, call("10.0.0.2").Code)
}

func TestRateLimitIgnoresForwardedForFromUntrustedPeers(t *testing.T) {
	m := newMiddlewares(new(mockPayments), 1, 1)
	h := m.RateLimit(echoBody)

	call := func(forwarded string) int {
		r := httptest.NewRequest(http.MethodGet, "/api/asset", nil)
		r.RemoteAddr = "203.0.113.7:5000"
		r.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h(rec, r)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, call("2.2.2.2"))
}

func TestRateLimiterSweepDropsIdleClients(t *testing.T) {
	m := newMiddlewares(new(mockPayments), 1, 1)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.limiter("10.0.0.1")
	now = now.Add(limiterIdleTTL + time.Second)
	m.limiter("10.0.0.2")
	m.sweep()

	_, stale := m.limiters.Load("10.0.0.1")
	_, fresh := m.limiters.Load("10.0.0.2")
	assert.False(t, stale)
	assert.True(t, fresh)
}

func TestRecoverSerializesPanics(t *testing.T) {
	m := newMiddlewares(new(mockPayments), 0, 0)

	rec := httptest.NewRecorder()
	m.Recover(func(http.ResponseWriter, *http.Request) {
		panic(errors.NewValidationError("bad input"))
	})(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, rec)["error"].(map[string]any)["type"])

	rec = httptest.NewRecorder()
	m.Recover(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
