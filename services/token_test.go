package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2HgO/aura-go/errors"
)

func TestResolveNativeToken(t *testing.T) {
	tokens := NewTokenService(testRegistry(), staticBackends{}, nil)

	for _, sentinel := range []string{"", "NATIVE", "native"} {
		token, err := tokens.Resolve(context.Background(), 137, sentinel)
		require.NoError(t, err)
		assert.True(t, token.IsNative)
		assert.Equal(t, uint8(18), token.Decimals)
		assert.Equal(t, "MATIC", token.Symbol)
		assert.Equal(t, "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270", token.Address)
	}
}

func TestResolveERC20Token(t *testing.T) {
	backend := newChain()
	backend.Tokens[usdcAddress].FailName = true
	tokens := NewTokenService(testRegistry(), staticBackends{backend: backend}, nil)

	token, err := tokens.Resolve(context.Background(), 1, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	require.NoError(t, err)
	assert.Equal(t, usdcAddress.Hex(), token.Address)
	assert.Equal(t, uint8(6), token.Decimals)
	assert.Equal(t, "USDC", token.Symbol)
	assert.Equal(t, "Unknown Token", token.Name)
}

func TestResolveSymbolFailureFallsBack(t *testing.T) {
	backend := newChain()
	backend.Tokens[daiAddress].FailSymbol = true
	tokens := NewTokenService(testRegistry(), staticBackends{backend: backend}, nil)

	token, err := tokens.Resolve(context.Background(), 1, daiAddress.Hex())
	require.NoError(t, err)
	assert.Equal(t, "UNKNOWN", token.Symbol)
	assert.Equal(t, "Dai Stablecoin", token.Name)
}

func TestResolveFailures(t *testing.T) {
	tokens := NewTokenService(testRegistry(), staticBackends{backend: newChain()}, nil)
	ctx := context.Background()

	_, err := tokens.Resolve(ctx, 56, daiAddress.Hex())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1, 137, 42161")

	_, err = tokens.Resolve(ctx, 1, "0x1234")
	assert.Equal(t, errors.ErrValidation, errors.AsAppError(err).Type)

	// nothing deployed at this address, so decimals() has no answer
	_, err = tokens.Resolve(ctx, 1, "0x2222222222222222222222222222222222222222")
	appErr := errors.AsAppError(err)
	assert.Equal(t, errors.ErrOnChain, appErr.Type)
	assert.NotEmpty(t, appErr.Remediation)
}
