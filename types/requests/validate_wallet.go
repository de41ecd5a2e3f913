package requests

type ValidateWalletRequest struct {
	Address string `json:"address"`
	Chain   string `json:"chain"`
}
