package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/services"
	"github.com/2HgO/aura-go/types/requests"
	"github.com/2HgO/aura-go/types/responses"
	"github.com/2HgO/aura-go/utils"
)

type TradeHandler interface {
	Trade(w http.ResponseWriter, r *http.Request)
	ExecuteStrategy(w http.ResponseWriter, r *http.Request)
	ValidateWallet(w http.ResponseWriter, r *http.Request)

	ServeHttp(*http.ServeMux)
}

func NewTradeHandler(tradeService services.TradeService, strategyService services.StrategyService, walletService services.WalletService, middlewares MiddleWareHandler, log *zap.Logger) TradeHandler {
	return &tradeHandler{
		handler:         handler{middlewares: middlewares, log: log},
		tradeService:    tradeService,
		strategyService: strategyService,
		walletService:   walletService,
	}
}

type tradeHandler struct {
	handler
	tradeService    services.TradeService
	strategyService services.StrategyService
	walletService   services.WalletService
}

func (t *tradeHandler) ServeHttp(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/trade", t.open(t.Trade))
	mux.HandleFunc("POST /api/execute-strategy", t.paid("strategy-execute", t.ExecuteStrategy))
	mux.HandleFunc("POST /api/validate-wallet", t.open(t.ValidateWallet))
}

func (t *tradeHandler) Trade(w http.ResponseWriter, r *http.Request) {
	req := utils.Bind[requests.TradeRequest](r)

	res, err := t.tradeService.Trade(r.Context(), req)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 200, responses.Success(res))
}

func (t *tradeHandler) ExecuteStrategy(w http.ResponseWriter, r *http.Request) {
	req := utils.Bind[requests.ExecuteStrategyRequest](r)

	res, err := t.strategyService.ExecuteStrategy(r.Context(), services.StrategyParams{
		Address:       req.WalletAddress,
		StrategyID:    req.StrategyID,
		RiskTolerance: req.RiskTolerance,
		MaxSlippage:   req.MaxSlippage.Decimal(),
		MaxGasPrice:   req.MaxGasPrice.Decimal(),
	})
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 200, responses.Success(res))
}

func (t *tradeHandler) ValidateWallet(w http.ResponseWriter, r *http.Request) {
	req := utils.Bind[requests.ValidateWalletRequest](r)

	res, err := t.walletService.ValidateWallet(r.Context(), req)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 200, responses.Success(res))
}
