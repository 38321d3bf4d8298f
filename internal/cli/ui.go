package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AngelCh415/agentic-analyst/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Padding(0, 1)

	stageStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3B82F6")).
		Width(14)

	workingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	insightBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#3B82F6")).
		Padding(0, 1).
		Width(80)

	recBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#10B981")).
		Padding(0, 1).
		Width(80)
)

var severityStyles = map[models.Severity]lipgloss.Style{
	models.SeverityHigh:   errorStyle,
	models.SeverityMedium: workingStyle,
	models.SeverityLow:    mutedStyle,
}

func statusMark(s models.Status) string {
	switch s {
	case models.StatusWorking:
		return workingStyle.Render("…")
	case models.StatusCompleted:
		return completedStyle.Render("✓")
	case models.StatusError:
		return errorStyle.Render("✗")
	default:
		return mutedStyle.Render("·")
	}
}

func renderEntry(e models.AgentLogEntry) string {
	return fmt.Sprintf("%s %s %s %s",
		mutedStyle.Render(e.Timestamp.Format("15:04:05")),
		statusMark(e.Status),
		stageStyle.Render(strings.ToUpper(string(e.Stage))),
		e.Message)
}

func renderSession(s models.Session) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Insights (%d)", len(s.Insights))))
	b.WriteString("\n")
	if len(s.Insights) == 0 {
		b.WriteString(mutedStyle.Render("  none"))
		b.WriteString("\n")
	}
	for _, in := range s.Insights {
		sev, ok := severityStyles[in.Severity]
		if !ok {
			sev = mutedStyle
		}
		body := fmt.Sprintf("%s  %s\n%s\n%s",
			sev.Render(strings.ToUpper(string(in.Severity))),
			in.Title,
			in.Description,
			mutedStyle.Render(fmt.Sprintf("%s %s", in.Metric, in.Change)))
		b.WriteString(insightBox.Render(body))
		b.WriteString("\n")
	}

	b.WriteString(titleStyle.Render(fmt.Sprintf("Creative recommendations (%d)", len(s.Recommendations))))
	b.WriteString("\n")
	if len(s.Recommendations) == 0 {
		b.WriteString(mutedStyle.Render("  none"))
		b.WriteString("\n")
	}
	for _, r := range s.Recommendations {
		body := fmt.Sprintf("%s [%s]\n- %s\n+ %s\n%s",
			r.CampaignName, r.Type,
			r.OriginalMessage,
			completedStyle.Render(r.SuggestedMessage),
			mutedStyle.Render(r.Reasoning))
		b.WriteString(recBox.Render(body))
		b.WriteString("\n")
	}

	if s.Error != "" {
		b.WriteString(errorStyle.Render("run failed: " + s.Error))
		b.WriteString("\n")
	}
	return b.String()
}

func renderTotals(t models.Totals) string {
	return mutedStyle.Render(fmt.Sprintf("spend %.2f · revenue %.2f · purchases %d · ROAS %s · CTR %s",
		t.Spend, t.Revenue, t.Purchases, t.ROAS, t.CTR))
}
