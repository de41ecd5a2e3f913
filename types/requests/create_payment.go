package requests

type CreatePaymentRequest struct {
	Service       string `json:"service" validate:"required,oneof=swap-quote swap-execute strategy-execute chat"`
	WalletAddress string `json:"walletAddress" validate:"required,eth_addr"`
}

type VerifyPaymentRequest struct {
	PaymentID string `uri:"payment_id" validate:"required"`
}

type PaymentStatusRequest struct {
	Address string `query:"address" validate:"required,eth_addr"`
}
