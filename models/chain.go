package models

type ChainConfig struct {
	ChainID              int64  `json:"chainId"`
	Name                 string `json:"name"`
	DisplayName          string `json:"displayName"`
	RPCURL               string `json:"-"`
	RouterAddress        string `json:"routerAddress"`
	FactoryAddress       string `json:"factoryAddress"`
	QuoterAddress        string `json:"quoterAddress"`
	WrappedNativeAddress string `json:"wrappedNativeAddress"`
	NativeSymbol         string `json:"nativeSymbol"`
	ExplorerURL          string `json:"explorerUrl"`
}

func (c ChainConfig) TxURL(hash string) string {
	return c.ExplorerURL + "/tx/" + hash
}

func (c ChainConfig) AddressURL(address string) string {
	return c.ExplorerURL + "/address/" + address
}
