package services

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/2HgO/aura-go/config"
	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/evm"
	"github.com/2HgO/aura-go/metrics"
	"github.com/2HgO/aura-go/models"
	"github.com/2HgO/aura-go/utils"
)

const (
	swapGasEstimate     uint64 = 150000
	approvalGasEstimate uint64 = 46000
	quoteValidity              = 2 * time.Minute
)

// DefaultSlippage is 0.5%, expressed as a percentage.
var DefaultSlippage = decimal.RequireFromString("0.5")

type QuoteParams struct {
	ChainID   int64
	TokenIn   string
	TokenOut  string
	Amount    string
	TradeType models.TradeType
	// Slippage is a percentage; zero selects DefaultSlippage.
	Slippage decimal.Decimal
	// Owner, when set, lets the quote account for a pending ERC-20 approval.
	Owner string
}

type QuoteService interface {
	GetSwapQuote(ctx context.Context, params QuoteParams) (*models.SwapQuote, error)
}

// PriceSource prices a single-hop swap in base units.
type PriceSource interface {
	Name() string
	Quote(ctx context.Context, chain models.ChainConfig, tokenIn, tokenOut *models.Token, amountIn *big.Int) (amountOut *big.Int, gas uint64, err error)
}

func NewPriceSource(cfg *config.Config, backends BackendProvider) PriceSource {
	if cfg.QuoteSource == "onchain" {
		return &onchainPriceSource{backends: backends}
	}
	return parityPriceSource{}
}

// parityPriceSource echoes the input amount at the output token's precision.
type parityPriceSource struct{}

func (parityPriceSource) Name() string { return "parity" }

func (parityPriceSource) Quote(_ context.Context, _ models.ChainConfig, tokenIn, tokenOut *models.Token, amountIn *big.Int) (*big.Int, uint64, error) {
	human := utils.FromBaseUnits(amountIn, tokenIn.Decimals)
	out, err := utils.ToBaseUnits(utils.Rescale(human, tokenOut.Decimals), tokenOut.Decimals)
	return out, swapGasEstimate, err
}

type onchainPriceSource struct {
	backends BackendProvider
}

func (onchainPriceSource) Name() string { return "uniswap-v3-quoter" }

func (o *onchainPriceSource) Quote(ctx context.Context, chain models.ChainConfig, tokenIn, tokenOut *models.Token, amountIn *big.Int) (*big.Int, uint64, error) {
	backend, err := o.backends.Backend(ctx, chain.ChainID)
	if err != nil {
		return nil, 0, err
	}
	res, err := evm.QuoteExactInputSingle(ctx, backend,
		common.HexToAddress(chain.QuoterAddress),
		common.HexToAddress(tokenIn.Address),
		common.HexToAddress(tokenOut.Address),
		amountIn, models.DefaultFeeTier)
	if err != nil {
		return nil, 0, err
	}
	gas := res.GasEstimate
	if gas == 0 {
		gas = swapGasEstimate
	}
	return res.AmountOut, gas, nil
}

func NewQuoteService(registry *evm.Registry, backends BackendProvider, tokens TokenService, source PriceSource, recorder metrics.Recorder, log *zap.Logger) QuoteService {
	return &quoteService{
		service:  newService(recorder, log),
		registry: registry,
		backends: backends,
		tokens:   tokens,
		source:   source,
	}
}

type quoteService struct {
	service
	registry *evm.Registry
	backends BackendProvider
	tokens   TokenService
	source   PriceSource
}

func (q *quoteService) GetSwapQuote(ctx context.Context, params QuoteParams) (quote *models.SwapQuote, err error) {
	start := q.now()
	defer func() { metrics.Since(q.metrics, "swap_quote", start, outcome(err)) }()

	chain, err := q.registry.Get(params.ChainID)
	if err != nil {
		return nil, err
	}
	if params.TradeType == "" {
		params.TradeType = models.ExactIn
	}
	if params.TradeType == models.ExactOut && q.source.Name() != "parity" {
		return nil, errors.NewValidationError("exactOut quotes are only available from the parity price source")
	}
	slippage := params.Slippage
	if slippage.IsZero() {
		slippage = DefaultSlippage
	}
	if slippage.IsNegative() || slippage.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return nil, errors.NewValidationError("slippage must be between 0 and 100 percent")
	}

	amount, err := decimal.NewFromString(params.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, errors.NewValidationError(fmt.Sprintf("amount must be a positive number, value received: %s", params.Amount))
	}

	tokenIn, err := q.tokens.Resolve(ctx, params.ChainID, params.TokenIn)
	if err != nil {
		return nil, err
	}
	tokenOut, err := q.tokens.Resolve(ctx, params.ChainID, params.TokenOut)
	if err != nil {
		return nil, err
	}
	if tokenIn.Address == tokenOut.Address {
		return nil, errors.NewValidationError("tokenIn and tokenOut must differ")
	}

	// For exactOut on the 1:1 source the requested output is priced back to the input token.
	quoteToken := tokenIn
	if params.TradeType == models.ExactOut {
		quoteToken = tokenOut
	}
	amountUnits, err := utils.ToBaseUnits(amount, quoteToken.Decimals)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if amountUnits.Sign() == 0 {
		return nil, errors.NewValidationError(fmt.Sprintf("amount %s is below the smallest unit of %s", amount, quoteToken.Symbol))
	}

	var inputAmount, outputAmount decimal.Decimal
	var gas uint64
	if params.TradeType == models.ExactOut {
		inUnits, g, err := q.source.Quote(ctx, chain, tokenOut, tokenIn, amountUnits)
		if err != nil {
			return nil, errors.NewUpstreamError("quote source", err)
		}
		inputAmount, outputAmount, gas = utils.FromBaseUnits(inUnits, tokenIn.Decimals), amount, g
	} else {
		outUnits, g, err := q.source.Quote(ctx, chain, tokenIn, tokenOut, amountUnits)
		if err != nil {
			return nil, errors.NewUpstreamError("quote source", err)
		}
		inputAmount, outputAmount, gas = utils.FromBaseUnits(amountUnits, tokenIn.Decimals), utils.FromBaseUnits(outUnits, tokenOut.Decimals), g
	}

	fraction := slippage.Div(decimal.NewFromInt(100))
	minimumReceived, _ := utils.ApplySlippage(outputAmount, fraction)
	_, maximumInput := utils.ApplySlippage(inputAmount, fraction)

	if q.needsApproval(ctx, chain, tokenIn, params.Owner, inputAmount) {
		gas += approvalGasEstimate
	}

	return &models.SwapQuote{
		ChainID:         params.ChainID,
		TradeType:       params.TradeType,
		InputAmount:     inputAmount,
		OutputAmount:    outputAmount,
		MinimumReceived: minimumReceived.Truncate(int32(tokenOut.Decimals)),
		MaximumInput:    maximumInput.RoundUp(int32(tokenIn.Decimals)),
		Slippage:        slippage,
		Route:           []models.RouteHop{{TokenIn: *tokenIn, TokenOut: *tokenOut, FeeTier: models.DefaultFeeTier}},
		EstimatedGas:    gas,
		PriceImpact:     decimal.Zero,
		Source:          q.source.Name(),
		QuotedAt:        q.now(),
		ValidFor:        quoteValidity.String(),
	}, nil
}

// needsApproval checks the router allowance of owner. Unknown allowances count as needing approval.
func (q *quoteService) needsApproval(ctx context.Context, chain models.ChainConfig, token *models.Token, owner string, amount decimal.Decimal) bool {
	if token.IsNative || owner == "" || !utils.IsValidAddress(owner) {
		return false
	}
	backend, err := q.backends.Backend(ctx, chain.ChainID)
	if err != nil {
		return true
	}
	allowance, err := evm.NewERC20(backend, common.HexToAddress(token.Address)).
		Allowance(ctx, common.HexToAddress(owner), common.HexToAddress(chain.RouterAddress))
	if err != nil {
		return true
	}
	units, err := utils.ToBaseUnits(amount, token.Decimals)
	if err != nil {
		return true
	}
	return allowance.Cmp(units) < 0
}
