package model

// Kind names an entity family taking part in allocation.
type Kind string

const (
	KindProject  Kind = "charity_project"
	KindDonation Kind = "donation"
)

// Counterpart returns the family that kind k is allocated against.
func (k Kind) Counterpart() Kind {
	if k == KindProject {
		return KindDonation
	}
	return KindProject
}

// Project is a funding target.
type Project struct {
	Fundable
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Donation is a funding source.
type Donation struct {
	Fundable
	Comment string `json:"comment,omitempty"`
	UserID  string `json:"user_id,omitempty"`
}

// DonationView is what a donor sees about their own donation.
type DonationView struct {
	ID         int64  `json:"id"`
	FullAmount int64  `json:"full_amount"`
	Comment    string `json:"comment,omitempty"`
	CreateDate string `json:"create_date"`
}

// View strips allocation details from d.
func (d *Donation) View() DonationView {
	return DonationView{
		ID:         d.ID,
		FullAmount: d.FullAmount,
		Comment:    d.Comment,
		CreateDate: d.CreateDate.Format("2006-01-02T15:04:05Z07:00"),
	}
}
