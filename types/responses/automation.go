package responses

import "github.com/2HgO/aura-go/models"

type AutomationStatus struct {
	Running   bool                     `json:"running"`
	Total     int                      `json:"total"`
	Active    int                      `json:"active"`
	Paused    int                      `json:"paused"`
	Completed int                      `json:"completed"`
	Rules     []*models.AutomationRule `json:"rules"`
}

type TickReport struct {
	Skipped   bool `json:"skipped,omitempty"`
	Evaluated int  `json:"evaluated"`
	Triggered int  `json:"triggered"`
	Failed    int  `json:"failed"`
	Completed int  `json:"completed"`
}
