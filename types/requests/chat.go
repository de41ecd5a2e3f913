package requests

type ChatRequest struct {
	Address string `json:"address" validate:"required,eth_addr"`
	Message string `json:"message" validate:"required,max=4000"`
	// WalletAddress is the paying wallet; it defaults to Address.
	WalletAddress string `json:"walletAddress" validate:"omitempty,eth_addr"`
}
