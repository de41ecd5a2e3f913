package services

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/2HgO/aura-go/config"
	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/models"
)

const auraUpstream = "AURA API"

type AuraService interface {
	GetBalances(ctx context.Context, address string) (*models.AuraPortfolio, error)
	GetStrategies(ctx context.Context, address string) (*models.AuraStrategies, error)
	Trade(ctx context.Context, req *models.AuraTradeRequest) (*models.AuraTradeResult, error)
}

func NewAuraService(cfg *config.Config, log *zap.Logger) AuraService {
	a := &auraService{service: newService(nil, log)}
	a.client = newUpstreamClient(auraUpstream, cfg.AuraAPIURL, a.log)
	return a
}

type auraService struct {
	service
	client *upstreamClient
}

func (a *auraService) GetBalances(ctx context.Context, address string) (*models.AuraPortfolio, error) {
	res := &models.AuraPortfolio{}
	err := a.client.do(ctx, http.MethodGet, "/api/portfolio/balances", url.Values{"address": {address}}, nil, res)
	if err != nil {
		return nil, errors.NewUpstreamError(auraUpstream, err)
	}
	return res, nil
}

func (a *auraService) GetStrategies(ctx context.Context, address string) (*models.AuraStrategies, error) {
	res := &models.AuraStrategies{}
	err := a.client.do(ctx, http.MethodGet, "/api/portfolio/strategies", url.Values{"address": {address}}, nil, res)
	if err != nil {
		return nil, errors.NewUpstreamError(auraUpstream, err)
	}
	return res, nil
}

func (a *auraService) Trade(ctx context.Context, req *models.AuraTradeRequest) (*models.AuraTradeResult, error) {
	res := &models.AuraTradeResult{}
	if err := a.client.do(ctx, http.MethodPost, "/api/trade", nil, req, res); err != nil {
		return nil, errors.NewUpstreamError(auraUpstream, err)
	}
	return res, nil
}
