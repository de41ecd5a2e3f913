package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/models"
	"github.com/2HgO/aura-go/utils"
)

const topHoldingsLimit = 10

var (
	stablecoins = map[string]bool{"usdc": true, "usdt": true, "dai": true, "busd": true, "frax": true, "lusd": true, "usdc.e": true}
	symbolFold  = cases.Fold()
	apyPattern  = regexp.MustCompile(`\d+(\.\d+)?`)
)

type PortfolioService interface {
	GetPortfolio(ctx context.Context, address string) (*models.Portfolio, error)
	// GetStrategies returns AURA recommendations, falling back to portfolio heuristics when AURA is unavailable.
	GetStrategies(ctx context.Context, address string) ([]models.Strategy, error)
}

func NewPortfolioService(aura AuraService, log *zap.Logger) PortfolioService {
	return &portfolioService{service: newService(nil, log), aura: aura}
}

type portfolioService struct {
	service
	aura AuraService
}

func (p *portfolioService) GetPortfolio(ctx context.Context, address string) (*models.Portfolio, error) {
	if !utils.IsValidAddress(address) {
		return nil, errors.NewValidationError("a valid wallet address is required")
	}
	raw, err := p.aura.GetBalances(ctx, address)
	if err != nil {
		return nil, err
	}
	return AggregatePortfolio(address, raw), nil
}

// AggregatePortfolio sums USD values per network and ranks the largest holdings.
func AggregatePortfolio(address string, raw *models.AuraPortfolio) *models.Portfolio {
	portfolio := &models.Portfolio{
		Address:     address,
		Networks:    []models.NetworkSummary{},
		TopHoldings: []models.Holding{},
		Cached:      raw.Cached,
	}

	holdings := []models.Holding{}
	for _, group := range raw.Portfolio {
		summary := models.NetworkSummary{Network: group.Network.Name, ChainID: group.Network.ChainID, TokenCount: len(group.Tokens)}
		for _, token := range group.Tokens {
			summary.ValueUSD = summary.ValueUSD.Add(token.BalanceUSD)
			if token.BalanceUSD.IsPositive() {
				holdings = append(holdings, models.Holding{
					Symbol:   token.Symbol,
					Network:  group.Network.Name,
					Address:  token.Address,
					Balance:  token.Balance,
					ValueUSD: token.BalanceUSD,
				})
			}
		}
		portfolio.TotalValueUSD = portfolio.TotalValueUSD.Add(summary.ValueUSD)
		portfolio.TokenCount += summary.TokenCount
		portfolio.Networks = append(portfolio.Networks, summary)
	}

	sort.SliceStable(holdings, func(i, j int) bool { return holdings[i].ValueUSD.GreaterThan(holdings[j].ValueUSD) })
	if len(holdings) > topHoldingsLimit {
		holdings = holdings[:topHoldingsLimit]
	}
	for i := range holdings {
		holdings[i].Percentage = utils.Percentage(holdings[i].ValueUSD, portfolio.TotalValueUSD)
	}
	portfolio.TopHoldings = holdings
	return portfolio
}

func (p *portfolioService) GetStrategies(ctx context.Context, address string) ([]models.Strategy, error) {
	if !utils.IsValidAddress(address) {
		return nil, errors.NewValidationError("a valid wallet address is required")
	}
	raw, err := p.aura.GetStrategies(ctx, address)
	if err == nil {
		if strategies := FromAuraStrategies(raw); len(strategies) > 0 {
			return strategies, nil
		}
	} else {
		p.log.Warn("fetching AURA strategies, falling back to heuristics", zap.String("address", address), zap.Error(err))
	}

	balances, err := p.aura.GetBalances(ctx, address)
	if err != nil {
		return nil, err
	}
	return HeuristicStrategies(AggregatePortfolio(address, balances)), nil
}

// FromAuraStrategies flattens AURA recommendation groups into strategies with stable ids.
func FromAuraStrategies(raw *models.AuraStrategies) []models.Strategy {
	strategies := []models.Strategy{}
	if raw == nil {
		return strategies
	}
	for g, group := range raw.Strategies {
		for i, s := range group.Response {
			strategy := models.Strategy{
				ID:     fmt.Sprintf("aura-%d-%d", g, i),
				Name:   s.Name,
				Risk:   strings.ToLower(s.Risk),
				Source: "aura",
			}
			descriptions := make([]string, 0, len(s.Actions))
			for _, action := range s.Actions {
				descriptions = append(descriptions, action.Description)
				strategy.Actions = append(strategy.Actions, action.Description)
				strategy.Steps = append(strategy.Steps, models.StrategyStep{
					Type:        stepTypeFor(action.Operations),
					TokenIn:     action.Tokens,
					Protocol:    strings.Join(action.Networks, ","),
					Description: action.Description,
				})
				if apy := parseAPY(action.APY); apy > strategy.APY {
					strategy.APY = apy
				}
			}
			strategy.Description = strings.Join(descriptions, " ")
			strategies = append(strategies, strategy)
		}
	}
	return strategies
}

func stepTypeFor(operations []string) models.StepType {
	for _, op := range operations {
		op = strings.ToLower(op)
		switch {
		case strings.Contains(op, "liquidity"), strings.Contains(op, "lp"):
			return models.ProvideLiquidityStep
		case strings.Contains(op, "stak"), strings.Contains(op, "lend"), strings.Contains(op, "yield"):
			return models.StakeStep
		}
	}
	return models.SwapStep
}

// parseAPY reads the first number out of strings such as "4.5%" or "5-8%".
func parseAPY(s string) float64 {
	match := apyPattern.FindString(s)
	if match == "" {
		return 0
	}
	v, _ := strconv.ParseFloat(match, 64)
	return v
}

// HeuristicStrategies picks catalogue strategies from the portfolio's stablecoin share and concentration.
func HeuristicStrategies(portfolio *models.Portfolio) []models.Strategy {
	var stableValue decimal.Decimal
	for _, h := range portfolio.TopHoldings {
		if isStablecoin(h.Symbol) {
			stableValue = stableValue.Add(h.ValueUSD)
		}
	}
	stableShare := utils.Percentage(stableValue, portfolio.TotalValueUSD)

	ids := []string{}
	if len(portfolio.TopHoldings) > 0 && portfolio.TopHoldings[0].Percentage.GreaterThan(decimal.NewFromInt(60)) {
		ids = append(ids, "balanced-rebalance")
	}
	if stableShare.LessThan(decimal.NewFromInt(20)) {
		ids = append(ids, "stablecoin-yield")
	}
	ids = append(ids, "eth-staking")

	strategies := make([]models.Strategy, 0, len(ids))
	for _, id := range ids {
		s := catalogue[id]
		s.Source = "heuristic"
		strategies = append(strategies, s)
	}
	return strategies
}

func isStablecoin(symbol string) bool {
	return stablecoins[symbolFold.String(symbol)]
}
