package model

import "time"

// Transfer records money moved from one donation into one project during an
// allocation pass.
type Transfer struct {
	ID         int64     `json:"id"`
	PassID     string    `json:"pass_id"`
	ProjectID  int64     `json:"project_id"`
	DonationID int64     `json:"donation_id"`
	Amount     int64     `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}
