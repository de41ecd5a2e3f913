package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Backend is the slice of the JSON-RPC surface the gateway needs. *ethclient.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type Dialer func(ctx context.Context, rpcURL string) (Backend, error)

func DialEthClient(ctx context.Context, rpcURL string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Pool hands out one lazily dialled backend per chain.
type Pool struct {
	registry *Registry
	dial     Dialer
	log      *zap.Logger

	mu      sync.Mutex
	clients map[int64]Backend
}

func NewPool(registry *Registry, log *zap.Logger) *Pool {
	return NewPoolWithDialer(registry, DialEthClient, log)
}

func NewPoolWithDialer(registry *Registry, dial Dialer, log *zap.Logger) *Pool {
	return &Pool{
		registry: registry,
		dial:     dial,
		log:      log,
		clients:  map[int64]Backend{},
	}
}

func (p *Pool) Backend(ctx context.Context, chainID int64) (Backend, error) {
	chain, err := p.registry.Get(chainID)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if client, ok := p.clients[chainID]; ok {
		return client, nil
	}

	if chain.RPCURL == "" {
		return nil, fmt.Errorf("no rpc url configured for %s", chain.DisplayName)
	}
	client, err := p.dial(ctx, chain.RPCURL)
	if err != nil {
		p.log.Error("dialing chain rpc", zap.Int64("chain_id", chainID), zap.Error(err))
		return nil, fmt.Errorf("dial %s rpc: %w", chain.DisplayName, err)
	}
	p.log.Info("connected to chain rpc", zap.Int64("chain_id", chainID), zap.String("chain", chain.Name))
	p.clients[chainID] = client
	return client, nil
}

func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, client := range p.clients {
		if c, ok := client.(interface{ Close() }); ok {
			c.Close()
		}
		delete(p.clients, id)
	}
}
