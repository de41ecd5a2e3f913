package services

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/metrics"
	"github.com/2HgO/aura-go/models"
	"github.com/2HgO/aura-go/utils"
)

const (
	usdcMainnet = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	daiMainnet  = "0x6B175474E89094C44Da98b954EedeAC495271d0F"

	stakeGasEstimate     uint64 = 120000
	liquidityGasEstimate uint64 = 250000

	// maxStrategyGas caps the summed gas estimate of every step in one execution.
	maxStrategyGas uint64 = 1_500_000
)

var (
	maxPriceImpact = decimal.NewFromInt(3)
	gwei           = decimal.New(1, 9)
	riskLevels     = map[string]int{"low": 1, "medium": 2, "high": 3}
)

var catalogue = map[string]models.Strategy{
	"stablecoin-yield": {
		ID:          "stablecoin-yield",
		Name:        "Stablecoin Yield",
		Description: "Move a slice of ETH into USDC and supply it to Aave for lending yield.",
		Risk:        "low",
		APY:         4.5,
		Steps: []models.StrategyStep{
			{Type: models.SwapStep, ChainID: 1, TokenIn: models.NativeSentinel, TokenOut: usdcMainnet, Amount: decimal.RequireFromString("0.05"), Description: "Swap ETH for USDC"},
			{Type: models.StakeStep, ChainID: 1, TokenIn: usdcMainnet, Protocol: "aave-v3", EstimatedGas: stakeGasEstimate, Description: "Supply USDC to Aave"},
		},
		Source: "catalogue",
	},
	"eth-staking": {
		ID:          "eth-staking",
		Name:        "ETH Liquid Staking",
		Description: "Stake ETH through Lido and hold stETH.",
		Risk:        "medium",
		APY:         3.8,
		Steps: []models.StrategyStep{
			{Type: models.StakeStep, ChainID: 1, TokenIn: models.NativeSentinel, Amount: decimal.RequireFromString("0.1"), Protocol: "lido", EstimatedGas: stakeGasEstimate, Description: "Stake ETH with Lido"},
		},
		Source: "catalogue",
	},
	"balanced-rebalance": {
		ID:          "balanced-rebalance",
		Name:        "Balanced Rebalance",
		Description: "Reduce concentration by moving part of the largest holding into a DAI/USDC liquidity position.",
		Risk:        "medium",
		APY:         6,
		Steps: []models.StrategyStep{
			{Type: models.SwapStep, ChainID: 1, TokenIn: models.NativeSentinel, TokenOut: daiMainnet, Amount: decimal.RequireFromString("0.02"), Description: "Swap ETH for DAI"},
			{Type: models.ProvideLiquidityStep, ChainID: 1, TokenIn: daiMainnet, TokenOut: usdcMainnet, Protocol: "uniswap-v3", EstimatedGas: liquidityGasEstimate, Description: "Provide DAI/USDC liquidity"},
		},
		Source: "catalogue",
	},
}

type StrategyParams struct {
	Address       string
	StrategyID    string
	RiskTolerance string
	// MaxSlippage is a percentage; zero selects DefaultSlippage.
	MaxSlippage decimal.Decimal
	// MaxGasPrice is in gwei; zero disables the ceiling.
	MaxGasPrice decimal.Decimal
}

type StrategyService interface {
	ExecuteStrategy(ctx context.Context, params StrategyParams) (*models.ExecutionResult, error)
	// FindStrategy looks in the built-in catalogue first, then in AURA's recommendations for address.
	FindStrategy(ctx context.Context, address, strategyID string) (*models.Strategy, error)
	Catalogue() []models.Strategy
}

type StrategyConfig struct {
	SimulationMode bool
	PrivateKey     string
}

func NewStrategyService(cfg StrategyConfig, aura AuraService, quotes QuoteService, swaps SwapService, backends BackendProvider, recorder metrics.Recorder, log *zap.Logger) StrategyService {
	return &strategyService{
		service:  newService(recorder, log),
		cfg:      cfg,
		aura:     aura,
		quotes:   quotes,
		swaps:    swaps,
		backends: backends,
	}
}

type strategyService struct {
	service
	cfg      StrategyConfig
	aura     AuraService
	quotes   QuoteService
	swaps    SwapService
	backends BackendProvider
}

func (s *strategyService) Catalogue() []models.Strategy {
	out := []models.Strategy{}
	for _, id := range []string{"stablecoin-yield", "eth-staking", "balanced-rebalance"} {
		out = append(out, catalogue[id])
	}
	return out
}

func (s *strategyService) FindStrategy(ctx context.Context, address, strategyID string) (*models.Strategy, error) {
	if strategy, ok := catalogue[strategyID]; ok {
		return &strategy, nil
	}
	if strings.HasPrefix(strategyID, "aura-") {
		raw, err := s.aura.GetStrategies(ctx, address)
		if err != nil {
			return nil, err
		}
		for _, strategy := range FromAuraStrategies(raw) {
			if strategy.ID == strategyID {
				return &strategy, nil
			}
		}
	}
	return nil, errors.NewNotFoundError(fmt.Sprintf("strategy %s not found", strategyID))
}

// routable reports whether a swap step names a concrete chain and token pair.
func routable(step models.StrategyStep) bool {
	return step.Type == models.SwapStep && step.ChainID != 0 && step.TokenOut != "" && step.Amount.IsPositive()
}

func (s *strategyService) ExecuteStrategy(ctx context.Context, params StrategyParams) (result *models.ExecutionResult, err error) {
	start := s.now()
	defer func() {
		metrics.Since(s.metrics, "strategy_execute", start, outcome(err))
	}()

	if !utils.IsValidAddress(params.Address) {
		return nil, errors.NewValidationError("a valid wallet address is required")
	}
	strategy, err := s.FindStrategy(ctx, params.Address, params.StrategyID)
	if err != nil {
		return nil, err
	}

	result = &models.ExecutionResult{
		StrategyID:     strategy.ID,
		Address:        params.Address,
		SimulationMode: s.cfg.SimulationMode,
		Steps:          make([]models.StepResult, 0, len(strategy.Steps)),
	}
	log := s.log.With(zap.String("strategy_id", strategy.ID), zap.String("address", params.Address))

	if tolerance, ok := riskLevels[strings.ToLower(params.RiskTolerance)]; ok {
		if level, known := riskLevels[strategy.Risk]; known && level > tolerance {
			return s.abort(result, strategy, fmt.Sprintf("strategy risk %s exceeds tolerance %s", strategy.Risk, params.RiskTolerance)), nil
		}
	}

	if reason, err := s.checkGasPrice(ctx, strategy, params.MaxGasPrice); err != nil {
		return nil, err
	} else if reason != "" {
		return s.abort(result, strategy, reason), nil
	}

	// Quote every routable swap before touching the chain so the ceilings see the whole plan.
	quotes := make([]*models.SwapQuote, len(strategy.Steps))
	for i, step := range strategy.Steps {
		if !routable(step) {
			result.TotalGas += step.EstimatedGas
			continue
		}
		quote, err := s.quotes.GetSwapQuote(ctx, QuoteParams{
			ChainID:   step.ChainID,
			TokenIn:   step.TokenIn,
			TokenOut:  step.TokenOut,
			Amount:    step.Amount.String(),
			TradeType: models.ExactIn,
			Slippage:  params.MaxSlippage,
		})
		if err != nil {
			return s.abort(result, strategy, fmt.Sprintf("quoting step %d: %s", i+1, errors.AsAppError(err).Message)), nil
		}
		if quote.PriceImpact.GreaterThan(maxPriceImpact) {
			return s.abort(result, strategy, fmt.Sprintf("step %d price impact %s%% exceeds %s%%", i+1, quote.PriceImpact, maxPriceImpact)), nil
		}
		quotes[i] = quote
		result.TotalGas += quote.EstimatedGas
	}
	if result.TotalGas > maxStrategyGas {
		return s.abort(result, strategy, fmt.Sprintf("estimated gas %d exceeds ceiling %d", result.TotalGas, maxStrategyGas)), nil
	}

	result.Success = true
	for i, step := range strategy.Steps {
		if !result.Success {
			result.Steps = append(result.Steps, models.StepResult{Step: step, Status: models.StepSkipped})
			continue
		}
		if quotes[i] == nil {
			if step.Type == models.SwapStep {
				result.Warnings = append(result.Warnings, fmt.Sprintf("step %d has no concrete route and was simulated", i+1))
			}
			result.Steps = append(result.Steps, models.StepResult{Step: step, Status: models.StepSimulated})
			continue
		}
		if s.cfg.SimulationMode {
			result.Steps = append(result.Steps, models.StepResult{Step: step, Status: models.StepSimulated, Quote: quotes[i]})
			continue
		}

		swap, err := s.swaps.ExecuteSwap(ctx, SwapParams{
			ChainID:    step.ChainID,
			TokenIn:    step.TokenIn,
			TokenOut:   step.TokenOut,
			Amount:     step.Amount.String(),
			Slippage:   params.MaxSlippage,
			PrivateKey: s.cfg.PrivateKey,
		})
		if err != nil {
			log.Error("executing strategy step", zap.Int("step", i+1), zap.Error(err))
			result.Success = false
			result.Error = fmt.Sprintf("step %d failed: %s", i+1, errors.AsAppError(err).Message)
			result.Steps = append(result.Steps, models.StepResult{Step: step, Status: models.StepFailed, Quote: quotes[i], Error: err.Error()})
			continue
		}
		result.Steps = append(result.Steps, models.StepResult{Step: step, Status: models.StepExecuted, Quote: quotes[i], TxHash: swap.TxHash, ExplorerURL: swap.ExplorerURL})
	}

	log.Info("strategy executed", zap.Bool("success", result.Success), zap.Bool("simulation", result.SimulationMode))
	s.metrics.IncCounter("strategy_execute", map[string]string{"outcome": fmt.Sprint(result.Success)})
	return result, nil
}

// checkGasPrice compares the node gas price on every chain the strategy touches against the ceiling.
func (s *strategyService) checkGasPrice(ctx context.Context, strategy *models.Strategy, ceilingGwei decimal.Decimal) (string, error) {
	if !ceilingGwei.IsPositive() {
		return "", nil
	}
	seen := map[int64]bool{}
	for _, step := range strategy.Steps {
		if step.ChainID == 0 || seen[step.ChainID] {
			continue
		}
		seen[step.ChainID] = true
		backend, err := s.backends.Backend(ctx, step.ChainID)
		if err != nil {
			return "", errors.NewUpstreamError("chain RPC", err)
		}
		price, err := backend.SuggestGasPrice(ctx)
		if err != nil {
			return "", errors.NewUpstreamError("chain RPC", err)
		}
		priceGwei := decimal.NewFromBigInt(new(big.Int).Set(price), 0).Div(gwei)
		if priceGwei.GreaterThan(ceilingGwei) {
			return fmt.Sprintf("gas price %s gwei on chain %d exceeds ceiling %s gwei", priceGwei.Round(2), step.ChainID, ceilingGwei), nil
		}
	}
	return "", nil
}

func (s *strategyService) abort(result *models.ExecutionResult, strategy *models.Strategy, reason string) *models.ExecutionResult {
	s.log.Warn("strategy aborted by safety check", zap.String("strategy_id", strategy.ID), zap.String("reason", reason))
	result.Success = false
	result.Error = reason
	result.Steps = result.Steps[:0]
	for _, step := range strategy.Steps {
		result.Steps = append(result.Steps, models.StepResult{Step: step, Status: models.StepSkipped})
	}
	s.metrics.IncCounter("strategy_execute", map[string]string{"outcome": "aborted"})
	return result
}
