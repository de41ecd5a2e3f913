package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ERC20 wraps read calls and calldata packing for a single token contract.
type ERC20 struct {
	backend Backend
	address common.Address
}

func NewERC20(backend Backend, address common.Address) *ERC20 {
	return &ERC20{backend: backend, address: address}
}

func (e *ERC20) Address() common.Address {
	return e.address
}

func (e *ERC20) Decimals(ctx context.Context) (uint8, error) {
	var out uint8
	if err := call(ctx, e.backend, ERC20ABI, e.address, "decimals", &out); err != nil {
		return 0, err
	}
	return out, nil
}

func (e *ERC20) Symbol(ctx context.Context) (string, error) {
	var out string
	if err := call(ctx, e.backend, ERC20ABI, e.address, "symbol", &out); err != nil {
		return "", err
	}
	return out, nil
}

func (e *ERC20) Name(ctx context.Context) (string, error) {
	var out string
	if err := call(ctx, e.backend, ERC20ABI, e.address, "name", &out); err != nil {
		return "", err
	}
	return out, nil
}

func (e *ERC20) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	out := new(big.Int)
	if err := call(ctx, e.backend, ERC20ABI, e.address, "balanceOf", &out, owner); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *ERC20) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	out := new(big.Int)
	if err := call(ctx, e.backend, ERC20ABI, e.address, "allowance", &out, owner, spender); err != nil {
		return nil, err
	}
	return out, nil
}

func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return ERC20ABI.Pack("approve", spender, amount)
}

// call performs an eth_call against contract and unpacks the single return value into out.
func call(ctx context.Context, backend Backend, contract abi.ABI, to common.Address, method string, out any, args ...any) error {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	res, err := backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("call %s on %s: %w", method, to.Hex(), err)
	}
	if len(res) == 0 {
		return fmt.Errorf("call %s on %s: empty response", method, to.Hex())
	}
	if err := contract.UnpackIntoInterface(out, method, res); err != nil {
		return fmt.Errorf("unpack %s: %w", method, err)
	}
	return nil
}
