package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// ExactInputSingleParams matches ISwapRouter.ExactInputSingleParams field for field.
type ExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

func PackExactInputSingle(params ExactInputSingleParams) ([]byte, error) {
	return SwapRouterABI.Pack("exactInputSingle", params)
}

type quoteExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

type QuoterResult struct {
	AmountOut   *big.Int
	GasEstimate uint64
}

// QuoteExactInputSingle simulates a single-pool swap through Uniswap's QuoterV2 with eth_call.
func QuoteExactInputSingle(ctx context.Context, backend Backend, quoter, tokenIn, tokenOut common.Address, amountIn *big.Int, fee uint32) (*QuoterResult, error) {
	data, err := QuoterV2ABI.Pack("quoteExactInputSingle", quoteExactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               new(big.Int).SetUint64(uint64(fee)),
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, fmt.Errorf("pack quoteExactInputSingle: %w", err)
	}
	res, err := backend.CallContract(ctx, ethereum.CallMsg{To: &quoter, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("quoter call: %w", err)
	}
	values, err := QuoterV2ABI.Unpack("quoteExactInputSingle", res)
	if err != nil {
		return nil, fmt.Errorf("unpack quoteExactInputSingle: %w", err)
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("unexpected quoter response length %d", len(values))
	}
	amountOut, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected quoter amountOut type %T", values[0])
	}
	gas, _ := values[3].(*big.Int)
	result := &QuoterResult{AmountOut: amountOut}
	if gas != nil {
		result.GasEstimate = gas.Uint64()
	}
	return result, nil
}
