package models

import "time"

// Trader is an access-gate account. Approval is granted out of band.
type Trader struct {
	TraderID   string    `json:"trader_id"`
	Email      string    `json:"email"`
	Approved   bool      `json:"approved"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}
