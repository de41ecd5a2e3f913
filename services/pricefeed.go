package services

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/2HgO/aura-go/errors"
)

const priceHistoryLimit = 60

// PriceFeed supplies the market inputs automation conditions are evaluated against.
type PriceFeed interface {
	// Price is the USD price of token (a symbol or address) as seen in owner's portfolio.
	Price(ctx context.Context, owner, token string) (decimal.Decimal, error)
	// Volatility is the coefficient of variation, in percent, of the prices observed so far for token.
	Volatility(ctx context.Context, owner, token string) (float64, error)
	// BestAPY is the highest APY among the strategies available to owner.
	BestAPY(ctx context.Context, owner string) (float64, error)
}

func NewPriceFeed(aura AuraService, log *zap.Logger) PriceFeed {
	return &auraPriceFeed{service: newService(nil, log), aura: aura, history: map[string][]float64{}}
}

type auraPriceFeed struct {
	service
	aura AuraService

	mu      sync.Mutex
	history map[string][]float64
}

func (a *auraPriceFeed) Price(ctx context.Context, owner, token string) (decimal.Decimal, error) {
	balances, err := a.aura.GetBalances(ctx, owner)
	if err != nil {
		return decimal.Zero, err
	}
	key := symbolFold.String(token)
	for _, group := range balances.Portfolio {
		for _, t := range group.Tokens {
			if symbolFold.String(t.Symbol) != key && symbolFold.String(t.Address) != key {
				continue
			}
			if t.Balance.IsZero() {
				continue
			}
			price := t.BalanceUSD.Div(t.Balance)
			a.record(key, price.InexactFloat64())
			return price, nil
		}
	}
	return decimal.Zero, errors.NewNotFoundError(fmt.Sprintf("no price for %s in portfolio of %s", token, owner))
}

func (a *auraPriceFeed) record(key string, price float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	h := append(a.history[key], price)
	if len(h) > priceHistoryLimit {
		h = h[len(h)-priceHistoryLimit:]
	}
	a.history[key] = h
}

func (a *auraPriceFeed) Volatility(ctx context.Context, owner, token string) (float64, error) {
	if _, err := a.Price(ctx, owner, token); err != nil {
		return 0, err
	}
	a.mu.Lock()
	samples := append([]float64{}, a.history[symbolFold.String(token)]...)
	a.mu.Unlock()
	return coefficientOfVariation(samples), nil
}

func coefficientOfVariation(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	mean := sum / float64(len(samples))
	if mean == 0 {
		return 0
	}
	var sq float64
	for _, s := range samples {
		sq += (s - mean) * (s - mean)
	}
	return math.Sqrt(sq/float64(len(samples))) / mean * 100
}

func (a *auraPriceFeed) BestAPY(ctx context.Context, owner string) (float64, error) {
	best := 0.0
	for _, s := range catalogue {
		best = math.Max(best, s.APY)
	}
	raw, err := a.aura.GetStrategies(ctx, owner)
	if err != nil {
		a.log.Warn("fetching AURA strategies for APY, using catalogue only", zap.Error(err))
		return best, nil
	}
	for _, s := range FromAuraStrategies(raw) {
		best = math.Max(best, s.APY)
	}
	return best, nil
}
