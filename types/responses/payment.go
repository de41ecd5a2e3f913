package responses

import "github.com/2HgO/aura-go/models"

type PaymentStatus struct {
	Address  string                 `json:"address"`
	Services []models.ServiceAccess `json:"services"`
	Prices   []models.ServicePrice  `json:"prices"`
}
