package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"CharityFund/internal/model"
)

// FormatFunded announces projects that reached their goal.
func FormatFunded(projects []model.Project) string {
	var b strings.Builder
	if len(projects) == 1 {
		b.WriteString("🎉 <b>Project fully funded</b>\n\n")
	} else {
		b.WriteString(fmt.Sprintf("🎉 <b>%d projects fully funded</b>\n\n", len(projects)))
	}
	for _, p := range projects {
		b.WriteString(fmt.Sprintf("• %s: %d raised", html.EscapeString(p.Name), p.FullAmount))
		if p.CloseDate != nil {
			days := p.CloseDate.Sub(p.CreateDate).Hours() / 24
			b.WriteString(fmt.Sprintf(" in %.1f days", days))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatSummary formats funding totals for display.
func FormatSummary(sum *model.Summary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>Funding summary</b> | %s\n\n", sum.TakenAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Projects: %d (%d open, %d funded)\n", sum.ProjectsTotal, sum.ProjectsOpen, sum.ProjectsClosed()))
	b.WriteString(fmt.Sprintf("Requested: %d\n", sum.RequestedAmount))
	b.WriteString(fmt.Sprintf("Raised: %d", sum.RaisedAmount))
	if sum.RequestedAmount > 0 {
		b.WriteString(fmt.Sprintf(" (%.1f%%)", float64(sum.RaisedAmount)/float64(sum.RequestedAmount)*100))
	}
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Donations: %d, total %d\n", sum.DonationsTotal, sum.DonatedAmount))
	b.WriteString(fmt.Sprintf("Waiting for a project: %d\n", sum.UnallocatedAmount))
	return b.String()
}

// FormatOpenProjects lists projects that still need money, oldest first.
func FormatOpenProjects(projects []*model.Project, now time.Time) string {
	var b strings.Builder
	b.WriteString("📋 <b>Open projects</b>\n\n")
	n := 0
	for _, p := range projects {
		if !p.IsOpen() {
			continue
		}
		n++
		age := int(now.Sub(p.CreateDate).Hours() / 24)
		b.WriteString(fmt.Sprintf("%d. %s: %d/%d (needs %d, %dd old)\n",
			n, html.EscapeString(p.Name), p.InvestedAmount, p.FullAmount, p.Remaining(), age))
	}
	if n == 0 {
		b.WriteString("All projects are funded ✅")
	}
	return b.String()
}
