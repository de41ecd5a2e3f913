package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/evm"
	"github.com/2HgO/aura-go/models"
	"github.com/2HgO/aura-go/utils"
)

const (
	unknownSymbol = "UNKNOWN"
	unknownName   = "Unknown Token"
)

type TokenService interface {
	// Resolve turns a token address, or the NATIVE sentinel, into token metadata for chainID.
	Resolve(ctx context.Context, chainID int64, address string) (*models.Token, error)
}

func NewTokenService(registry *evm.Registry, backends BackendProvider, log *zap.Logger) TokenService {
	return &tokenService{
		service:  newService(nil, log),
		registry: registry,
		backends: backends,
	}
}

type tokenService struct {
	service
	registry *evm.Registry
	backends BackendProvider

	cache sync.Map
}

func IsNative(address string) bool {
	address = strings.TrimSpace(address)
	return address == "" || strings.EqualFold(address, models.NativeSentinel)
}

func (t *tokenService) Resolve(ctx context.Context, chainID int64, address string) (*models.Token, error) {
	chain, err := t.registry.Get(chainID)
	if err != nil {
		return nil, err
	}

	if IsNative(address) {
		return &models.Token{
			ChainID:  chainID,
			Address:  chain.WrappedNativeAddress,
			Decimals: 18,
			Symbol:   chain.NativeSymbol,
			Name:     chain.NativeSymbol,
			IsNative: true,
		}, nil
	}

	if !utils.IsValidAddress(address) {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid token address: %s", address))
	}
	key := fmt.Sprintf("%d:%s", chainID, utils.NormalizeAddress(address))
	if cached, ok := t.cache.Load(key); ok {
		token := *cached.(*models.Token)
		return &token, nil
	}

	backend, err := t.backends.Backend(ctx, chainID)
	if err != nil {
		return nil, errors.NewUpstreamError(chain.DisplayName+" RPC", err)
	}

	erc20 := evm.NewERC20(backend, common.HexToAddress(address))
	decimals, err := erc20.Decimals(ctx)
	if err != nil {
		t.log.Warn("reading token decimals", zap.String("token", address), zap.Int64("chain_id", chainID), zap.Error(err))
		return nil, errors.NewOnChainError(fmt.Sprintf("could not read decimals for token %s on %s", address, chain.DisplayName), err).
			WithRemediation("check that the address is an ERC-20 contract on " + chain.DisplayName)
	}

	symbol, err := erc20.Symbol(ctx)
	if err != nil {
		symbol = unknownSymbol
	}
	name, err := erc20.Name(ctx)
	if err != nil {
		name = unknownName
	}

	token := &models.Token{
		ChainID:  chainID,
		Address:  common.HexToAddress(address).Hex(),
		Decimals: decimals,
		Symbol:   symbol,
		Name:     name,
	}
	stored := *token
	t.cache.Store(key, &stored)
	return token, nil
}
