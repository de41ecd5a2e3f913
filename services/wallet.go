package services

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/2HgO/aura-go/evm"
	"github.com/2HgO/aura-go/types/requests"
	"github.com/2HgO/aura-go/types/responses"
	"github.com/2HgO/aura-go/utils"
)

type WalletService interface {
	// ValidateWallet cross-checks what AURA reports for an address against the chain itself.
	ValidateWallet(ctx context.Context, req *requests.ValidateWalletRequest) (*responses.WalletValidation, error)
}

func NewWalletService(registry *evm.Registry, backends BackendProvider, aura AuraService, log *zap.Logger) WalletService {
	return &walletService{
		service:  newService(nil, log),
		registry: registry,
		backends: backends,
		aura:     aura,
	}
}

type walletService struct {
	service
	registry *evm.Registry
	backends BackendProvider
	aura     AuraService
}

func (w *walletService) ValidateWallet(ctx context.Context, req *requests.ValidateWalletRequest) (*responses.WalletValidation, error) {
	chain, err := w.registry.Lookup(req.Chain)
	if err != nil {
		return nil, err
	}

	res := &responses.WalletValidation{
		Address:      req.Address,
		Chain:        chain.Name,
		IsValid:      utils.IsValidAddress(req.Address),
		NativeSymbol: chain.NativeSymbol,
	}
	if !res.IsValid {
		res.Warnings = append(res.Warnings, "address must be 0x followed by 40 hex characters")
		return res, nil
	}
	res.ExplorerURL = chain.AddressURL(req.Address)
	log := w.log.With(zap.String("address", req.Address), zap.String("chain", chain.Name))

	onChain := false
	if backend, err := w.backends.Backend(ctx, chain.ChainID); err != nil {
		log.Warn("connecting to chain for wallet validation", zap.Error(err))
		res.Warnings = append(res.Warnings, "could not reach "+chain.DisplayName+" rpc")
	} else {
		account := common.HexToAddress(req.Address)
		balance, balErr := backend.BalanceAt(ctx, account, nil)
		nonce, nonceErr := backend.NonceAt(ctx, account, nil)
		if balErr != nil || nonceErr != nil {
			log.Warn("reading wallet state", zap.NamedError("balance_error", balErr), zap.NamedError("nonce_error", nonceErr))
			res.Warnings = append(res.Warnings, "could not read on-chain balance or nonce")
		} else {
			onChain = true
			res.NativeBalance = decimal.NewFromBigInt(balance, -18)
			res.Nonce = nonce
			res.HasBalance = balance.Sign() > 0
			res.IsConnected = nonce > 0 || res.HasBalance
		}
	}

	if portfolio, err := w.aura.GetBalances(ctx, req.Address); err != nil {
		log.Warn("fetching aura balances for wallet validation", zap.Error(err))
		res.Warnings = append(res.Warnings, "AURA balances unavailable")
	} else {
		res.AuraValueUSD = AggregatePortfolio(req.Address, portfolio).TotalValueUSD
	}

	res.LikelyMockData = onChain && res.AuraValueUSD.IsPositive() && !res.IsConnected
	if res.LikelyMockData {
		res.Warnings = append(res.Warnings, "AURA reports holdings but the wallet has no on-chain activity; the data is likely mocked")
	}
	return res, nil
}
