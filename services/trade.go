package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/evm"
	"github.com/2HgO/aura-go/metrics"
	"github.com/2HgO/aura-go/models"
	"github.com/2HgO/aura-go/types/requests"
	"github.com/2HgO/aura-go/types/responses"
	"github.com/2HgO/aura-go/utils"
)

var uniswapChainNames = map[int64]string{
	1:     "mainnet",
	137:   "polygon",
	42161: "arbitrum",
}

// ManualSwapLinks points the user at swap UIs preloaded with the pair.
func ManualSwapLinks(chain models.ChainConfig, tokenIn, tokenOut string) []string {
	uniswap := url.Values{}
	if name, ok := uniswapChainNames[chain.ChainID]; ok {
		uniswap.Set("chain", name)
	}
	uniswap.Set("inputCurrency", manualToken(chain, tokenIn))
	uniswap.Set("outputCurrency", manualToken(chain, tokenOut))
	return []string{
		"https://app.uniswap.org/swap?" + uniswap.Encode(),
		fmt.Sprintf("https://app.1inch.io/#/%d/simple/swap/%s/%s", chain.ChainID, manualToken(chain, tokenIn), manualToken(chain, tokenOut)),
	}
}

func manualToken(chain models.ChainConfig, token string) string {
	if IsNative(token) {
		return chain.NativeSymbol
	}
	return token
}

type TradeService interface {
	// Trade quotes the pair, executes through AURA and registers any automation rules for the address.
	Trade(ctx context.Context, req *requests.TradeRequest) (*responses.TradeResult, error)
}

func NewTradeService(registry *evm.Registry, quotes QuoteService, aura AuraService, automation AutomationService, recorder metrics.Recorder, log *zap.Logger) TradeService {
	return &tradeService{
		service:    newService(recorder, log),
		registry:   registry,
		quotes:     quotes,
		aura:       aura,
		automation: automation,
	}
}

type tradeService struct {
	service
	registry   *evm.Registry
	quotes     QuoteService
	aura       AuraService
	automation AutomationService
}

func (t *tradeService) Trade(ctx context.Context, req *requests.TradeRequest) (result *responses.TradeResult, err error) {
	start := t.now()
	defer func() { metrics.Since(t.metrics, "trade", start, outcome(err)) }()

	chain, err := t.registry.Lookup(req.Chain)
	if err != nil {
		return nil, err
	}
	log := t.log.With(zap.String("address", req.Address), zap.String("from", req.FromToken), zap.String("to", req.ToToken))

	result = &responses.TradeResult{}
	tokenIn, tokenOut := tradeToken(chain, req.FromToken), tradeToken(chain, req.ToToken)
	if tokenIn != "" && tokenOut != "" {
		result.Quote, err = t.quotes.GetSwapQuote(ctx, QuoteParams{
			ChainID:   chain.ChainID,
			TokenIn:   tokenIn,
			TokenOut:  tokenOut,
			Amount:    req.Amount,
			TradeType: models.ExactIn,
			Slippage:  req.Slippage.Decimal(),
			Owner:     req.Address,
		})
		if err != nil {
			return nil, err
		}
	} else {
		log.Debug("trade tokens are symbols, skipping local quote")
	}

	execution, err := t.aura.Trade(ctx, &models.AuraTradeRequest{
		Address:   req.Address,
		FromToken: req.FromToken,
		ToToken:   req.ToToken,
		Amount:    req.Amount,
		Slippage:  req.Slippage.Decimal(),
	})
	if err == nil && !execution.Success {
		err = errors.NewFailedDependencyError(fmt.Sprintf("AURA could not execute the trade: %s", execution.Message))
	}
	if err != nil {
		log.Error("executing trade", zap.Error(err))
		result.ManualSwapLinks = ManualSwapLinks(chain, orSymbol(tokenIn, req.FromToken), orSymbol(tokenOut, req.ToToken))
		return nil, errors.AsAppError(err).
			WithRemediation("swap manually using one of the links in data.manualSwapLinks").
			WithData(result)
	}
	result.Execution = execution

	for i := range req.AutomationRules {
		ruleReq := req.AutomationRules[i]
		if ruleReq.UserID == "" {
			ruleReq.UserID = req.Address
		}
		rule, err := t.automation.CreateRule(ctx, &ruleReq)
		if err != nil {
			log.Warn("creating automation rule for trade", zap.Int("index", i), zap.Error(err))
			continue
		}
		result.AutomationRules = append(result.AutomationRules, rule)
	}

	log.Info("trade executed", zap.String("tx_hash", execution.TransactionHash))
	return result, nil
}

// tradeToken maps a trade token to something the quote engine can resolve, or "" when it cannot.
func tradeToken(chain models.ChainConfig, token string) string {
	switch {
	case IsNative(token), strings.EqualFold(token, chain.NativeSymbol):
		return "NATIVE"
	case utils.IsValidAddress(token):
		return token
	}
	return ""
}

func orSymbol(resolved, symbol string) string {
	if resolved != "" {
		return resolved
	}
	return symbol
}
