package evm

import (
	"testing"

	"github.com/2HgO/aura-go/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGet(t *testing.T) {
	registry := NewRegistry(&config.Config{PolygonRPCURL: "https://polygon.example"})

	chain, err := registry.Get(137)
	require.NoError(t, err)
	assert.Equal(t, "polygon", chain.Name)
	assert.Equal(t, "https://polygon.example", chain.RPCURL)
	assert.Equal(t, []int64{1, 137, 42161}, registry.SupportedChainIDs())

	_, err = registry.Get(56)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported chain id 56 (supported: 1, 137, 42161)")
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry(&config.Config{})

	tests := []struct {
		input string
		want  int64
	}{
		{"", 1},
		{"Ethereum", 1},
		{"polygon", 137},
		{"42161", 42161},
	}
	for _, tt := range tests {
		chain, err := registry.Lookup(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, chain.ChainID)
	}

	_, err := registry.Lookup("solana")
	assert.Error(t, err)
}
