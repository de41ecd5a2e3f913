package services

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/evm"
	"github.com/2HgO/aura-go/metrics"
	"github.com/2HgO/aura-go/models"
	"github.com/2HgO/aura-go/utils"
)

const defaultDeadlineMinutes = 20

type SwapParams struct {
	ChainID  int64
	TokenIn  string
	TokenOut string
	Amount   string
	// Slippage is a percentage; zero selects DefaultSlippage.
	Slippage        decimal.Decimal
	DeadlineMinutes int
	PrivateKey      string
}

type SwapService interface {
	ExecuteSwap(ctx context.Context, params SwapParams) (*models.SwapResult, error)
}

type SwapOption func(*swapService)

// WithReceiptPolling overrides how often and for how long receipts are polled.
func WithReceiptPolling(interval, timeout time.Duration) SwapOption {
	return func(s *swapService) {
		s.receiptInterval = interval
		s.receiptTimeout = timeout
	}
}

func NewSwapService(registry *evm.Registry, backends BackendProvider, tokens TokenService, quotes QuoteService, notifier Notifier, recorder metrics.Recorder, log *zap.Logger, opts ...SwapOption) SwapService {
	s := &swapService{
		service:         newService(recorder, log),
		registry:        registry,
		backends:        backends,
		tokens:          tokens,
		quotes:          quotes,
		notifier:        notifier,
		receiptInterval: 2 * time.Second,
		receiptTimeout:  3 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type swapService struct {
	service
	registry *evm.Registry
	backends BackendProvider
	tokens   TokenService
	quotes   QuoteService
	notifier Notifier

	receiptInterval time.Duration
	receiptTimeout  time.Duration

	// signer address -> *sync.Mutex
	locks sync.Map
}

func (s *swapService) lock(address common.Address) func() {
	mu, _ := s.locks.LoadOrStore(address, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	return mu.(*sync.Mutex).Unlock
}

func (s *swapService) ExecuteSwap(ctx context.Context, params SwapParams) (result *models.SwapResult, err error) {
	start := s.now()
	defer func() {
		metrics.Since(s.metrics, "swap_execute", start, outcome(err))
		s.metrics.IncCounter("swap_execute", outcome(err))
	}()

	chain, err := s.registry.Get(params.ChainID)
	if err != nil {
		return nil, err
	}
	if params.PrivateKey == "" {
		return nil, errors.NewImplementationError().
			WithRemediation("set WALLET_PRIVATE_KEY to enable server-side swaps", "or swap manually at https://app.uniswap.org")
	}
	signer, err := evm.NewSigner(params.PrivateKey)
	if err != nil {
		return nil, errors.NewValidationError("configured wallet private key is invalid")
	}
	if params.DeadlineMinutes <= 0 {
		params.DeadlineMinutes = defaultDeadlineMinutes
	}

	quote, err := s.quotes.GetSwapQuote(ctx, QuoteParams{
		ChainID:   params.ChainID,
		TokenIn:   params.TokenIn,
		TokenOut:  params.TokenOut,
		Amount:    params.Amount,
		TradeType: models.ExactIn,
		Slippage:  params.Slippage,
	})
	if err != nil {
		return nil, err
	}
	tokenIn, tokenOut := quote.Route[0].TokenIn, quote.Route[0].TokenOut

	backend, err := s.backends.Backend(ctx, params.ChainID)
	if err != nil {
		return nil, errors.NewUpstreamError(chain.DisplayName+" RPC", err)
	}

	amountIn, err := utils.ToBaseUnits(quote.InputAmount, tokenIn.Decimals)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	minOut, err := utils.ToBaseUnits(quote.MinimumReceived, tokenOut.Decimals)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	unlock := s.lock(signer.Address())
	defer unlock()

	log := s.log.With(
		zap.Int64("chain_id", params.ChainID),
		zap.String("wallet", signer.Address().Hex()),
		zap.String("token_in", tokenIn.Symbol),
		zap.String("token_out", tokenOut.Symbol),
	)

	if err := s.checkBalance(ctx, backend, chain, &tokenIn, signer.Address(), amountIn); err != nil {
		return nil, err
	}

	router := common.HexToAddress(chain.RouterAddress)
	result = &models.SwapResult{
		ChainID:      params.ChainID,
		AmountIn:     quote.InputAmount,
		OutputAmount: quote.OutputAmount,
		Route:        quote.Route,
	}

	if !tokenIn.IsNative {
		approvalHash, err := s.approve(ctx, backend, signer, &tokenIn, router, amountIn)
		if err != nil {
			log.Error("approving router", zap.Error(err))
			return nil, err
		}
		result.ApprovalTxHash = approvalHash
	}

	data, err := evm.PackExactInputSingle(evm.ExactInputSingleParams{
		TokenIn:           common.HexToAddress(tokenIn.Address),
		TokenOut:          common.HexToAddress(tokenOut.Address),
		Fee:               new(big.Int).SetUint64(uint64(models.DefaultFeeTier)),
		Recipient:         signer.Address(),
		Deadline:          big.NewInt(s.now().Add(time.Duration(params.DeadlineMinutes) * time.Minute).Unix()),
		AmountIn:          amountIn,
		AmountOutMinimum:  minOut,
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, errors.NewFatalError(err)
	}

	var value *big.Int
	if tokenIn.IsNative {
		value = amountIn
	}
	tx, err := signer.Send(ctx, backend, router, value, data)
	if err != nil {
		log.Error("submitting swap", zap.Error(err))
		return nil, errors.NewOnChainError("swap transaction could not be submitted", err)
	}
	log.Info("swap submitted", zap.String("tx_hash", tx.Hash().Hex()))

	receipt, err := s.awaitReceipt(ctx, backend, tx)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, errors.NewOnChainError("swap transaction reverted", fmt.Errorf("tx %s reverted", tx.Hash().Hex())).
			WithRemediation("inspect the transaction at "+chain.TxURL(tx.Hash().Hex()), "retry with a higher slippage tolerance")
	}

	result.TxHash = tx.Hash().Hex()
	result.GasUsed = receipt.GasUsed
	result.ExplorerURL = chain.TxURL(result.TxHash)
	log.Info("swap confirmed", zap.String("tx_hash", result.TxHash), zap.Uint64("gas_used", receipt.GasUsed))

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, models.SwapCompleted_WebhookEvent, signer.Address().Hex(), result); err != nil {
			log.Warn("notifying swap completion", zap.Error(err))
		}
	}
	return result, nil
}

func (s *swapService) checkBalance(ctx context.Context, backend evm.Backend, chain models.ChainConfig, token *models.Token, owner common.Address, amount *big.Int) error {
	var (
		balance *big.Int
		err     error
	)
	if token.IsNative {
		balance, err = backend.BalanceAt(ctx, owner, nil)
	} else {
		balance, err = evm.NewERC20(backend, common.HexToAddress(token.Address)).BalanceOf(ctx, owner)
	}
	if err != nil {
		return errors.NewUpstreamError(chain.DisplayName+" RPC", err)
	}
	if balance.Cmp(amount) >= 0 {
		return nil
	}

	have, need := utils.FromBaseUnits(balance, token.Decimals), utils.FromBaseUnits(amount, token.Decimals)
	msg := fmt.Sprintf("insufficient %s balance: have %s, need %s", token.Symbol, have, need)
	if balance.Sign() == 0 {
		msg = fmt.Sprintf("wallet holds no %s", token.Symbol)
	}
	return errors.NewOnChainError(msg, nil).
		WithRemediation(fmt.Sprintf("fund %s with at least %s %s on %s", owner.Hex(), need, token.Symbol, chain.DisplayName)).
		WithData(map[string]string{"wallet": owner.Hex(), "explorer": chain.AddressURL(owner.Hex())})
}

// approve grants the router an unlimited allowance when the current one cannot cover amount.
func (s *swapService) approve(ctx context.Context, backend evm.Backend, signer *evm.Signer, token *models.Token, router common.Address, amount *big.Int) (string, error) {
	erc20 := evm.NewERC20(backend, common.HexToAddress(token.Address))
	allowance, err := erc20.Allowance(ctx, signer.Address(), router)
	if err != nil {
		return "", errors.NewOnChainError("could not read "+token.Symbol+" allowance", err)
	}
	if allowance.Cmp(amount) >= 0 {
		return "", nil
	}

	data, err := evm.PackApprove(router, math.MaxBig256)
	if err != nil {
		return "", errors.NewFatalError(err)
	}
	tx, err := signer.Send(ctx, backend, erc20.Address(), nil, data)
	if err != nil {
		return "", errors.NewOnChainError("approval transaction could not be submitted", err)
	}
	receipt, err := s.awaitReceipt(ctx, backend, tx)
	if err != nil {
		return "", err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", errors.NewOnChainError("approval transaction reverted", fmt.Errorf("tx %s reverted", tx.Hash().Hex()))
	}
	return tx.Hash().Hex(), nil
}

func (s *swapService) awaitReceipt(ctx context.Context, backend evm.Backend, tx *types.Transaction) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.receiptTimeout)
	defer cancel()
	receipt, err := evm.WaitMined(ctx, backend, tx.Hash(), s.receiptInterval)
	if err != nil {
		return nil, errors.NewOnChainError("transaction was not mined in time", err).
			WithRemediation("track " + tx.Hash().Hex() + " on a block explorer before retrying")
	}
	return receipt, nil
}
