package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/2HgO/aura-go/config"
	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/services"
	"github.com/2HgO/aura-go/utils"
)

const (
	walletHeader         = "X-Wallet-Address"
	limiterSweepTaskID   = "rate-limiter-sweep"
	limiterSweepInterval = 5 * time.Minute
	limiterIdleTTL       = 10 * time.Minute
)

type MiddleWareHandler interface {
	// Recover turns panics, including AppErrors raised while binding, into error responses.
	Recover(http.HandlerFunc) http.HandlerFunc
	RateLimit(http.HandlerFunc) http.HandlerFunc
	// RequirePayment answers 402 with an x402 challenge unless the caller holds a valid payment for service.
	RequirePayment(service string) utils.MW
}

type middlewareHandler struct {
	paymentService services.PaymentService
	log            *zap.Logger

	rps      rate.Limit
	burst    int
	proxies  []netip.Prefix
	now      func() time.Time
	limiters sync.Map
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	mu       sync.Mutex
}

func NewMiddlewareHandler(cfg *config.Config, payments services.PaymentService, scheduler services.SchedulerService, log *zap.Logger) MiddleWareHandler {
	m := &middlewareHandler{
		paymentService: payments,
		log:            log,
		rps:            rate.Limit(cfg.RateLimitRPS),
		burst:          cfg.RateLimitBurst,
		now:            time.Now,
	}
	proxies, err := utils.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Warn("ignoring trusted proxies", zap.Error(err))
	}
	m.proxies = proxies
	if scheduler != nil {
		err := scheduler.ScheduleEvery(limiterSweepTaskID, limiterSweepInterval, func(_ context.Context) error {
			m.sweep()
			return nil
		})
		if err != nil {
			log.Warn("scheduling rate limiter sweep", zap.Error(err))
		}
	}
	return m
}

func (m *middlewareHandler) Recover(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			var appErr errors.AppError
			switch v := rec.(type) {
			case errors.AppError:
				appErr = v
			case error:
				appErr = errors.NewFatalError(v)
			default:
				appErr = errors.NewUnknownError(v)
			}
			if appErr.Code >= http.StatusInternalServerError {
				m.log.Error("request panicked", zap.String("path", r.URL.Path), zap.Any("panic", rec))
			}
			appErr.Serialize(w)
		}()
		h.ServeHTTP(w, r)
	}
}

func (m *middlewareHandler) limiter(key string) *rate.Limiter {
	now := m.now()
	v, _ := m.limiters.LoadOrStore(key, &limiterEntry{limiter: rate.NewLimiter(m.rps, m.burst), lastSeen: now})
	entry := v.(*limiterEntry)
	entry.mu.Lock()
	entry.lastSeen = now
	entry.mu.Unlock()
	return entry.limiter
}

func (m *middlewareHandler) sweep() {
	now := m.now()
	m.limiters.Range(func(key, value any) bool {
		entry := value.(*limiterEntry)
		entry.mu.Lock()
		idle := now.Sub(entry.lastSeen) > limiterIdleTTL
		entry.mu.Unlock()
		if idle {
			m.limiters.Delete(key)
		}
		return true
	})
}

func (m *middlewareHandler) RateLimit(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.rps <= 0 {
			h.ServeHTTP(w, r)
			return
		}
		ip := utils.ClientIP(r, m.proxies)
		if !m.limiter(ip).Allow() {
			m.log.Warn("rate limit exceeded", zap.String("client_ip", ip), zap.String("path", r.URL.Path))
			w.Header().Set("Retry-After", "1")
			w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(float64(m.rps), 'f', -1, 64))
			errors.NewRateLimitError().Serialize(w)
			return
		}
		h.ServeHTTP(w, r)
	}
}

// payerAddress finds the paying wallet in the JSON body, the address query parameter or the X-Wallet-Address header.
// The body is restored for the handler.
func payerAddress(r *http.Request) (string, error) {
	if r.Body != nil && r.Body != http.NoBody {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return "", err
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var payer struct {
			WalletAddress string `json:"walletAddress"`
			Address       string `json:"address"`
		}
		if len(body) > 0 && json.Unmarshal(body, &payer) == nil {
			if payer.WalletAddress != "" {
				return payer.WalletAddress, nil
			}
			if payer.Address != "" {
				return payer.Address, nil
			}
		}
	}
	if address := r.URL.Query().Get("address"); address != "" {
		return address, nil
	}
	return r.Header.Get(walletHeader), nil
}

func (m *middlewareHandler) RequirePayment(service string) utils.MW {
	return func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			address, err := payerAddress(r)
			if err != nil {
				errors.HandleBindError(err).Serialize(w)
				return
			}
			if !utils.IsValidAddress(address) {
				errors.NewValidationError(fmt.Sprintf("a valid walletAddress is required to use %s", service)).
					WithRemediation("send walletAddress in the body, address in the query or the " + walletHeader + " header").
					Serialize(w)
				return
			}

			paid, err := m.paymentService.HasValidPayment(r.Context(), address, service)
			if err != nil {
				errors.AsAppError(err).Serialize(w)
				return
			}
			if paid {
				h.ServeHTTP(w, r)
				return
			}

			challenge, err := m.paymentService.Challenge(r.Context(), service, address, r.URL.Path)
			if err != nil {
				errors.AsAppError(err).Serialize(w)
				return
			}
			m.log.Info("payment required", zap.String("service", service), zap.String("address", address), zap.String("payment_id", challenge.Payment.PaymentID))
			utils.JSON(w, http.StatusPaymentRequired, challenge)
		}
	}
}
