package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/2HgO/aura-go/utils"
)

type handler struct {
	middlewares MiddleWareHandler

	log *zap.Logger
}

// open wraps h with the middleware every route gets.
func (h handler) open(final http.HandlerFunc) http.HandlerFunc {
	return utils.Middleware(final, h.middlewares.Recover, h.middlewares.RateLimit)
}

// paid is open plus the x402 gate for service.
func (h handler) paid(service string, final http.HandlerFunc) http.HandlerFunc {
	return utils.Middleware(final, h.middlewares.Recover, h.middlewares.RateLimit, h.middlewares.RequirePayment(service))
}

type Handler interface {
	ServeHttp(*http.ServeMux)
}
