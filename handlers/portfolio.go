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

type PortfolioHandler interface {
	GetPortfolio(w http.ResponseWriter, r *http.Request)
	GetStrategies(w http.ResponseWriter, r *http.Request)
	ChatWithPortfolio(w http.ResponseWriter, r *http.Request)

	ServeHttp(*http.ServeMux)
}

func NewPortfolioHandler(portfolioService services.PortfolioService, chatService services.ChatService, middlewares MiddleWareHandler, log *zap.Logger) PortfolioHandler {
	return &portfolioHandler{
		handler:          handler{middlewares: middlewares, log: log},
		portfolioService: portfolioService,
		chatService:      chatService,
	}
}

type portfolioHandler struct {
	handler
	portfolioService services.PortfolioService
	chatService      services.ChatService
}

func (p *portfolioHandler) ServeHttp(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/asset", p.open(p.GetPortfolio))
	mux.HandleFunc("GET /api/strategies", p.open(p.GetStrategies))
	mux.HandleFunc("POST /api/chat", p.paid("chat", p.ChatWithPortfolio))
}

func (p *portfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	req := utils.Bind[requests.AddressRequest](r)

	res, err := p.portfolioService.GetPortfolio(r.Context(), req.Address)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 200, responses.Success(res))
}

func (p *portfolioHandler) GetStrategies(w http.ResponseWriter, r *http.Request) {
	req := utils.Bind[requests.AddressRequest](r)

	res, err := p.portfolioService.GetStrategies(r.Context(), req.Address)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 200, responses.Success(res))
}

func (p *portfolioHandler) ChatWithPortfolio(w http.ResponseWriter, r *http.Request) {
	req := utils.Bind[requests.ChatRequest](r)

	res, err := p.chatService.Chat(r.Context(), req)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 200, responses.Success(res))
}
