package evm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/2HgO/aura-go/config"
	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/models"
)

const (
	uniswapV3Router  = "0xE592427A0AEce92De3Edaec1404f8ec3E0e3Be64"
	uniswapV3Factory = "0x1F98431c8aD98523631AE4a59f267346ea31F984"
	uniswapQuoterV2  = "0x61fFE014bA17989E743c5F6cB21bF9697530B21e"
)

type Registry struct {
	chains map[int64]models.ChainConfig
}

func NewRegistry(cfg *config.Config) *Registry {
	return NewRegistryFromChains(
		models.ChainConfig{
			ChainID:              1,
			Name:                 "ethereum",
			DisplayName:          "Ethereum Mainnet",
			RPCURL:               cfg.EthereumRPCURL,
			RouterAddress:        uniswapV3Router,
			FactoryAddress:       uniswapV3Factory,
			QuoterAddress:        uniswapQuoterV2,
			WrappedNativeAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
			NativeSymbol:         "ETH",
			ExplorerURL:          "https://etherscan.io",
		},
		models.ChainConfig{
			ChainID:              137,
			Name:                 "polygon",
			DisplayName:          "Polygon",
			RPCURL:               cfg.PolygonRPCURL,
			RouterAddress:        uniswapV3Router,
			FactoryAddress:       uniswapV3Factory,
			QuoterAddress:        uniswapQuoterV2,
			WrappedNativeAddress: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270",
			NativeSymbol:         "MATIC",
			ExplorerURL:          "https://polygonscan.com",
		},
		models.ChainConfig{
			ChainID:              42161,
			Name:                 "arbitrum",
			DisplayName:          "Arbitrum One",
			RPCURL:               cfg.ArbitrumRPCURL,
			RouterAddress:        uniswapV3Router,
			FactoryAddress:       uniswapV3Factory,
			QuoterAddress:        uniswapQuoterV2,
			WrappedNativeAddress: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
			NativeSymbol:         "ETH",
			ExplorerURL:          "https://arbiscan.io",
		},
	)
}

func NewRegistryFromChains(chains ...models.ChainConfig) *Registry {
	r := &Registry{chains: make(map[int64]models.ChainConfig, len(chains))}
	for _, c := range chains {
		r.chains[c.ChainID] = c
	}
	return r
}

func (r *Registry) SupportedChainIDs() []int64 {
	ids := make([]int64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *Registry) Get(chainID int64) (models.ChainConfig, error) {
	c, ok := r.chains[chainID]
	if !ok {
		ids := make([]string, 0, len(r.chains))
		for _, id := range r.SupportedChainIDs() {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		return models.ChainConfig{}, errors.NewValidationError(
			fmt.Sprintf("unsupported chain id %d (supported: %s)", chainID, strings.Join(ids, ", ")),
		)
	}
	return c, nil
}

// Lookup accepts a chain name ("polygon") or a numeric chain id ("137"). Empty means Ethereum.
func (r *Registry) Lookup(chain string) (models.ChainConfig, error) {
	chain = strings.ToLower(strings.TrimSpace(chain))
	if chain == "" {
		chain = "ethereum"
	}
	if id, err := strconv.ParseInt(chain, 10, 64); err == nil {
		return r.Get(id)
	}
	for _, c := range r.chains {
		if c.Name == chain {
			return c, nil
		}
	}
	names := make([]string, 0, len(r.chains))
	for _, id := range r.SupportedChainIDs() {
		names = append(names, r.chains[id].Name)
	}
	return models.ChainConfig{}, errors.NewValidationError(
		fmt.Sprintf("unsupported chain %q (supported: %s)", chain, strings.Join(names, ", ")),
	)
}
