package model

import "time"

// Fundable is the funding shape shared by charity projects and donations.
type Fundable struct {
	ID             int64      `json:"id"`
	FullAmount     int64      `json:"full_amount"`
	InvestedAmount int64      `json:"invested_amount"`
	FullyInvested  bool       `json:"fully_invested"`
	CreateDate     time.Time  `json:"create_date"`
	CloseDate      *time.Time `json:"close_date,omitempty"`
}

// NewFundable returns an open Fundable with nothing invested.
func NewFundable(fullAmount int64, createdAt time.Time) Fundable {
	return Fundable{FullAmount: fullAmount, CreateDate: createdAt}
}

// Remaining is the amount still needed (or still available) to close f.
func (f *Fundable) Remaining() int64 {
	return f.FullAmount - f.InvestedAmount
}

// IsOpen reports whether f can still take part in allocation.
func (f *Fundable) IsOpen() bool {
	return !f.FullyInvested
}

// Close marks f as fully invested at t.
func (f *Fundable) Close(t time.Time) {
	f.InvestedAmount = f.FullAmount
	f.FullyInvested = true
	f.CloseDate = &t
}
