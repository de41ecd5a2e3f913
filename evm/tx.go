package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	fallbackGasLimit uint64 = 300000
	gasHeadroomPct   uint64 = 20
)

// Signer signs and submits transactions for one private key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewSigner(privateKeyHex string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func (s *Signer) Address() common.Address {
	return s.address
}

// Send builds a legacy transaction with node-suggested gas, signs it and broadcasts it.
func (s *Signer) Send(ctx context.Context, backend Backend, to common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	if value == nil {
		value = big.NewInt(0)
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	nonce, err := backend.PendingNonceAt(ctx, s.address)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}

	gasLimit := fallbackGasLimit
	estimate, err := backend.EstimateGas(ctx, ethereum.CallMsg{From: s.address, To: &to, Value: value, Data: data})
	if err == nil && estimate > 0 {
		gasLimit = estimate + estimate*gasHeadroomPct/100
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	if err := backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	return signed, nil
}

// WaitMined polls for the receipt until it exists or ctx is done.
func WaitMined(ctx context.Context, backend Backend, hash common.Hash, interval time.Duration) (*types.Receipt, error) {
	var receipt *types.Receipt
	operation := func() error {
		r, err := backend.TransactionReceipt(ctx, hash)
		if err != nil {
			if err == ethereum.NotFound {
				return err
			}
			return backoff.Permanent(err)
		}
		receipt = r
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(backoff.NewConstantBackOff(interval), ctx)); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("waiting for %s: %w", hash.Hex(), ctx.Err())
		}
		return nil, fmt.Errorf("receipt for %s: %w", hash.Hex(), err)
	}
	return receipt, nil
}
