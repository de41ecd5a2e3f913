package requests

type AddressRequest struct {
	Address string `query:"address" validate:"required"`
}
