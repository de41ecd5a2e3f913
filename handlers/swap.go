package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/2HgO/aura-go/config"
	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/evm"
	"github.com/2HgO/aura-go/services"
	"github.com/2HgO/aura-go/types/requests"
	"github.com/2HgO/aura-go/types/responses"
	"github.com/2HgO/aura-go/utils"
)

type SwapHandler interface {
	GetSwapQuote(w http.ResponseWriter, r *http.Request)
	ExecuteSwap(w http.ResponseWriter, r *http.Request)

	ServeHttp(*http.ServeMux)
}

func NewSwapHandler(cfg *config.Config, registry *evm.Registry, quoteService services.QuoteService, swapService services.SwapService, middlewares MiddleWareHandler, log *zap.Logger) SwapHandler {
	return &swapHandler{
		handler:      handler{middlewares: middlewares, log: log},
		registry:     registry,
		quoteService: quoteService,
		swapService:  swapService,
		privateKey:   cfg.WalletPrivateKey,
	}
}

type swapHandler struct {
	handler
	registry     *evm.Registry
	quoteService services.QuoteService
	swapService  services.SwapService
	privateKey   string
}

func (s *swapHandler) ServeHttp(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/swap/quote", s.paid("swap-quote", s.GetSwapQuote))
	mux.HandleFunc("POST /api/swap/execute", s.paid("swap-execute", s.ExecuteSwap))
}

func (s *swapHandler) GetSwapQuote(w http.ResponseWriter, r *http.Request) {
	req := utils.Bind[requests.SwapQuoteRequest](r)

	chain, err := s.registry.Lookup(req.Chain)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	res, err := s.quoteService.GetSwapQuote(r.Context(), services.QuoteParams{
		ChainID:   chain.ChainID,
		TokenIn:   req.TokenIn,
		TokenOut:  req.TokenOut,
		Amount:    req.AmountIn,
		TradeType: req.TradeType,
		Slippage:  req.Slippage.Decimal(),
		Owner:     req.WalletAddress,
	})
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 200, responses.Success(res))
}

func (s *swapHandler) ExecuteSwap(w http.ResponseWriter, r *http.Request) {
	req := utils.Bind[requests.SwapExecuteRequest](r)

	chain, err := s.registry.Lookup(req.Chain)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	res, err := s.swapService.ExecuteSwap(r.Context(), services.SwapParams{
		ChainID:         chain.ChainID,
		TokenIn:         req.TokenIn,
		TokenOut:        req.TokenOut,
		Amount:          req.AmountIn,
		Slippage:        req.Slippage.Decimal(),
		DeadlineMinutes: req.DeadlineMinutes,
		PrivateKey:      s.privateKey,
	})
	if err != nil {
		s.log.Warn("swap failed", zap.String("wallet", req.WalletAddress), zap.Int64("chain_id", chain.ChainID), zap.Error(err))
		errors.AsAppError(err).
			WithData(map[string]any{"manualSwapLinks": services.ManualSwapLinks(chain, req.TokenIn, req.TokenOut)}).
			Serialize(w)
		return
	}

	utils.JSON(w, 200, responses.Success(res))
}
