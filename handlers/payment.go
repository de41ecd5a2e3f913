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

type PaymentHandler interface {
	CreatePayment(w http.ResponseWriter, r *http.Request)
	VerifyPayment(w http.ResponseWriter, r *http.Request)
	PaymentStatus(w http.ResponseWriter, r *http.Request)
	Prices(w http.ResponseWriter, r *http.Request)

	ServeHttp(*http.ServeMux)
}

func NewPaymentHandler(paymentService services.PaymentService, middlewares MiddleWareHandler, log *zap.Logger) PaymentHandler {
	return &paymentHandler{
		handler:        handler{middlewares: middlewares, log: log},
		paymentService: paymentService,
	}
}

type paymentHandler struct {
	handler
	paymentService services.PaymentService
}

func (p *paymentHandler) ServeHttp(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/payments", p.open(p.CreatePayment))
	mux.HandleFunc("GET /api/payments/prices", p.open(p.Prices))
	mux.HandleFunc("GET /api/payments/status", p.open(p.PaymentStatus))
	mux.HandleFunc("GET /api/payments/{payment_id}", p.open(p.VerifyPayment))
}

func (p *paymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	req := utils.Bind[requests.CreatePaymentRequest](r)

	res, err := p.paymentService.CreatePayment(r.Context(), req.Service, req.WalletAddress)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 201, responses.Success(res))
}

func (p *paymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	req := utils.Bind[requests.VerifyPaymentRequest](r)

	res, err := p.paymentService.VerifyPayment(r.Context(), req.PaymentID)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 200, responses.Success(res))
}

func (p *paymentHandler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	req := utils.Bind[requests.PaymentStatusRequest](r)

	res, err := p.paymentService.Status(r.Context(), req.Address)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 200, responses.Success(&responses.PaymentStatus{
		Address:  utils.NormalizeAddress(req.Address),
		Services: res,
		Prices:   p.paymentService.Prices(),
	}))
}

func (p *paymentHandler) Prices(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, 200, responses.Success(p.paymentService.Prices()))
}
