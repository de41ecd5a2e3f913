// Package evmtest provides an in-memory evm.Backend that answers ERC-20, router and quoter calls.
package evmtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/2HgO/aura-go/evm"
)

type Token struct {
	Decimals   uint8
	Symbol     string
	Name       string
	FailSymbol bool
	FailName   bool
	Balances   map[common.Address]*big.Int
	Allowances map[common.Address]map[common.Address]*big.Int
}

type Backend struct {
	mu sync.Mutex

	ChainIDValue *big.Int
	GasPrice     *big.Int
	GasUsed      uint64
	Tokens       map[common.Address]*Token
	Native       map[common.Address]*big.Int
	Nonces       map[common.Address]uint64

	// QuoteOut, when set, answers QuoterV2 calls.
	QuoteOut func(tokenIn, tokenOut common.Address, amountIn *big.Int) *big.Int
	Quoter   common.Address

	RevertSwaps  bool
	SendErr      error
	ReceiptDelay int

	Sent     []*types.Transaction
	receipts map[common.Hash]int
}

func NewBackend(chainID int64) *Backend {
	return &Backend{
		ChainIDValue: big.NewInt(chainID),
		GasPrice:     big.NewInt(30_000_000_000),
		GasUsed:      120000,
		Tokens:       map[common.Address]*Token{},
		Native:       map[common.Address]*big.Int{},
		Nonces:       map[common.Address]uint64{},
		receipts:     map[common.Hash]int{},
	}
}

func (b *Backend) AddToken(address common.Address, decimals uint8, symbol, name string) *Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := &Token{
		Decimals:   decimals,
		Symbol:     symbol,
		Name:       name,
		Balances:   map[common.Address]*big.Int{},
		Allowances: map[common.Address]map[common.Address]*big.Int{},
	}
	b.Tokens[address] = t
	return t
}

func (b *Backend) SentTransactions() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*types.Transaction{}, b.Sent...)
}

func (b *Backend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, errors.New("invalid call")
	}

	if b.QuoteOut != nil && *msg.To == b.Quoter {
		return b.quote(msg.Data)
	}

	token, ok := b.Tokens[*msg.To]
	if !ok {
		return nil, nil
	}
	method, err := evm.ERC20ABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "decimals":
		return method.Outputs.Pack(token.Decimals)
	case "symbol":
		if token.FailSymbol {
			return nil, errors.New("execution reverted")
		}
		return method.Outputs.Pack(token.Symbol)
	case "name":
		if token.FailName {
			return nil, errors.New("execution reverted")
		}
		return method.Outputs.Pack(token.Name)
	case "balanceOf":
		return method.Outputs.Pack(valueOrZero(token.Balances[args[0].(common.Address)]))
	case "allowance":
		owner, spender := args[0].(common.Address), args[1].(common.Address)
		return method.Outputs.Pack(valueOrZero(token.Allowances[owner][spender]))
	}
	return nil, fmt.Errorf("unsupported method %s", method.Name)
}

func (b *Backend) quote(data []byte) ([]byte, error) {
	method, err := evm.QuoterV2ABI.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	var params struct {
		TokenIn           common.Address
		TokenOut          common.Address
		AmountIn          *big.Int
		Fee               *big.Int
		SqrtPriceLimitX96 *big.Int
	}
	if err := method.Inputs.Copy(&params, args); err != nil {
		return nil, err
	}
	out := b.QuoteOut(params.TokenIn, params.TokenOut, params.AmountIn)
	return method.Outputs.Pack(out, big.NewInt(0), uint32(1), big.NewInt(90000))
}

func (b *Backend) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return valueOrZero(b.Native[account]), nil
}

func (b *Backend) NonceAt(_ context.Context, account common.Address, _ *big.Int) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Nonces[account], nil
}

func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return b.NonceAt(ctx, account, nil)
}

func (b *Backend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.GasPrice), nil
}

func (b *Backend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 100000, nil
}

func (b *Backend) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.ChainIDValue), nil
}

func (b *Backend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SendErr != nil {
		return b.SendErr
	}

	from, err := types.Sender(types.LatestSignerForChainID(b.ChainIDValue), tx)
	if err != nil {
		return err
	}
	b.Nonces[from]++
	b.Sent = append(b.Sent, tx)
	b.receipts[tx.Hash()] = b.ReceiptDelay

	if token, ok := b.Tokens[*tx.To()]; ok && bytes.HasPrefix(tx.Data(), evm.ERC20ABI.Methods["approve"].ID) {
		args, err := evm.ERC20ABI.Methods["approve"].Inputs.Unpack(tx.Data()[4:])
		if err != nil {
			return err
		}
		if token.Allowances[from] == nil {
			token.Allowances[from] = map[common.Address]*big.Int{}
		}
		token.Allowances[from][args[0].(common.Address)] = args[1].(*big.Int)
	}
	return nil
}

func (b *Backend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	remaining, ok := b.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	if remaining > 0 {
		b.receipts[hash] = remaining - 1
		return nil, ethereum.NotFound
	}

	status := types.ReceiptStatusSuccessful
	for _, tx := range b.Sent {
		if tx.Hash() == hash && b.RevertSwaps && isSwap(tx.Data()) {
			status = types.ReceiptStatusFailed
		}
	}
	return &types.Receipt{
		Status:      status,
		TxHash:      hash,
		GasUsed:     b.GasUsed,
		BlockNumber: big.NewInt(1),
	}, nil
}

func isSwap(data []byte) bool {
	return bytes.HasPrefix(data, evm.SwapRouterABI.Methods["exactInputSingle"].ID)
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

var _ evm.Backend = (*Backend)(nil)
