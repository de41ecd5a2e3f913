package services

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/2HgO/aura-go/models"
	"github.com/2HgO/aura-go/types/requests"
)

func auraWorth(usd int64) *models.AuraPortfolio {
	return &models.AuraPortfolio{Portfolio: []models.AuraNetworkAssets{{
		Network: models.AuraNetwork{Name: "Ethereum", ChainID: "1"},
		Tokens:  []models.AuraToken{{Symbol: "ETH", Balance: decimal.NewFromInt(1), BalanceUSD: decimal.NewFromInt(usd)}},
	}}}
}

func TestValidateFreshWalletFlagsMockData(t *testing.T) {
	aura := &mockAura{}
	aura.On("GetBalances", mock.Anything, holder).Return(auraWorth(1200), nil)
	wallets := NewWalletService(testRegistry(), staticBackends{backend: newChain()}, aura, nil)

	res, err := wallets.ValidateWallet(context.Background(), &requests.ValidateWalletRequest{Address: holder})
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.False(t, res.IsConnected)
	assert.False(t, res.HasBalance)
	assert.True(t, res.LikelyMockData)
	assert.Equal(t, "ethereum", res.Chain)
	assert.True(t, res.AuraValueUSD.Equal(decimal.NewFromInt(1200)))
	assert.Equal(t, "https://etherscan.io/address/"+holder, res.ExplorerURL)
}

func TestValidateActiveWallet(t *testing.T) {
	backend := newChain()
	backend.Native[common.HexToAddress(holder)] = units(2, 18)
	backend.Nonces[common.HexToAddress(holder)] = 7
	aura := &mockAura{}
	aura.On("GetBalances", mock.Anything, holder).Return(auraWorth(6000), nil)

	res, err := NewWalletService(testRegistry(), staticBackends{backend: backend}, aura, nil).
		ValidateWallet(context.Background(), &requests.ValidateWalletRequest{Address: holder, Chain: "1"})
	require.NoError(t, err)
	assert.True(t, res.IsConnected)
	assert.True(t, res.HasBalance)
	assert.False(t, res.LikelyMockData)
	assert.Equal(t, uint64(7), res.Nonce)
	assert.True(t, res.NativeBalance.Equal(decimal.NewFromInt(2)))
}

func TestValidateMalformedAddress(t *testing.T) {
	wallets := NewWalletService(testRegistry(), staticBackends{}, &mockAura{}, nil)

	for _, address := range []string{"", "0x123", "1111111111111111111111111111111111111111ab", "0xZZ11111111111111111111111111111111111111"} {
		res, err := wallets.ValidateWallet(context.Background(), &requests.ValidateWalletRequest{Address: address})
		require.NoError(t, err)
		assert.False(t, res.IsValid, address)
		assert.NotEmpty(t, res.Warnings)
	}
}

func TestValidateWalletWithoutRPC(t *testing.T) {
	aura := &mockAura{}
	aura.On("GetBalances", mock.Anything, holder).Return(auraWorth(10), nil)
	wallets := NewWalletService(testRegistry(), staticBackends{err: assert.AnError}, aura, nil)

	res, err := wallets.ValidateWallet(context.Background(), &requests.ValidateWalletRequest{Address: holder})
	require.NoError(t, err)
	assert.False(t, res.LikelyMockData, "no verdict without chain data")
	assert.NotEmpty(t, res.Warnings)
}
