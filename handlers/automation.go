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

type AutomationHandler interface {
	ListRules(w http.ResponseWriter, r *http.Request)
	CreateRule(w http.ResponseWriter, r *http.Request)
	GetRule(w http.ResponseWriter, r *http.Request)
	UpdateRule(w http.ResponseWriter, r *http.Request)
	DeleteRule(w http.ResponseWriter, r *http.Request)

	ServeHttp(*http.ServeMux)
}

func NewAutomationHandler(automationService services.AutomationService, middlewares MiddleWareHandler, log *zap.Logger) AutomationHandler {
	return &automationHandler{
		handler:           handler{middlewares: middlewares, log: log},
		automationService: automationService,
	}
}

type automationHandler struct {
	handler
	automationService services.AutomationService
}

func (a *automationHandler) ServeHttp(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/automation", a.open(a.ListRules))
	mux.HandleFunc("POST /api/automation", a.open(a.CreateRule))
	mux.HandleFunc("GET /api/automation/{rule_id}", a.open(a.GetRule))
	mux.HandleFunc("PUT /api/automation/{rule_id}", a.open(a.UpdateRule))
	mux.HandleFunc("DELETE /api/automation/{rule_id}", a.open(a.DeleteRule))
}

func (a *automationHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	req := utils.Bind[requests.ListAutomationRulesRequest](r)

	res, err := a.automationService.ListRules(r.Context(), req)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 200, responses.Success(res))
}

func (a *automationHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	req := utils.Bind[requests.CreateAutomationRuleRequest](r)

	res, err := a.automationService.CreateRule(r.Context(), req)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 201, responses.Success(res))
}

func (a *automationHandler) GetRule(w http.ResponseWriter, r *http.Request) {
	req := utils.Bind[requests.AutomationRuleRequest](r)

	res, err := a.automationService.GetRule(r.Context(), req)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 200, responses.Success(res))
}

func (a *automationHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	req := utils.Bind[requests.UpdateAutomationRuleRequest](r)

	res, err := a.automationService.UpdateRule(r.Context(), req)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 200, responses.Success(res))
}

func (a *automationHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	req := utils.Bind[requests.AutomationRuleRequest](r)

	if err := a.automationService.DeleteRule(r.Context(), req); err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 200, responses.Success(map[string]string{"id": req.RuleID}))
}
