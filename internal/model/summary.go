package model

import "time"

// Summary aggregates funding totals across all projects and donations.
type Summary struct {
	ProjectsTotal     int       `json:"projects_total"`
	ProjectsOpen      int       `json:"projects_open"`
	RequestedAmount   int64     `json:"requested_amount"`
	RaisedAmount      int64     `json:"raised_amount"`
	DonationsTotal    int       `json:"donations_total"`
	DonatedAmount     int64     `json:"donated_amount"`
	UnallocatedAmount int64     `json:"unallocated_amount"`
	TakenAt           time.Time `json:"taken_at"`
}

// ProjectsClosed returns the number of fully funded projects.
func (s *Summary) ProjectsClosed() int {
	return s.ProjectsTotal - s.ProjectsOpen
}
