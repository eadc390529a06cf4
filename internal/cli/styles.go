package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/pacewise/internal/models"
	"github.com/julianstephens/pacewise/internal/pace"
)

var (
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))
)

var dayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func severityStyle(sev models.Severity) lipgloss.Style {
	switch sev {
	case models.SeverityError:
		return errorStyle
	case models.SeverityWarning:
		return warningStyle
	default:
		return infoStyle
	}
}

// Header renders a section title.
func Header(title string) string {
	return headerStyle.Render(title)
}

// OK renders a success line.
func OK(msg string) string {
	return okStyle.Render("✓ " + msg)
}

// RenderViolations lists violations with their severity colour, errors first.
func RenderViolations(violations []models.ViolationReport) string {
	if len(violations) == 0 {
		return OK("No guardrail violations.")
	}

	var b strings.Builder
	for _, sev := range []models.Severity{models.SeverityError, models.SeverityWarning, models.SeverityInfo} {
		for _, v := range violations {
			if v.Severity != sev {
				continue
			}
			tag := severityStyle(sev).Render(fmt.Sprintf("[%s]", sev))
			fmt.Fprintf(&b, "%s %s: %s\n", tag, v.RuleID, v.Message)
			if v.Recommendation != "" {
				fmt.Fprintf(&b, "    %s\n", infoStyle.Render(v.Recommendation))
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderPlan renders the sessions of a week, one line per day.
func RenderPlan(plan models.WeekPlan) string {
	var b strings.Builder
	title := fmt.Sprintf("Week of %s (revision %d)", plan.WeekStart, plan.Revision)
	if plan.Target.IsRecoveryWeek {
		title += " - recovery week"
	}
	b.WriteString(Header(title))
	b.WriteString("\n")

	for _, s := range plan.Sessions {
		day := "?"
		if s.Day >= 0 && s.Day < len(dayNames) {
			day = dayNames[s.Day]
		}
		fmt.Fprintf(&b, "  %s  %-7s %5.1f km  %s-%s /km  %3.0f min",
			day, s.Category, s.Distance, pace.FormatPace(s.Pace.MinPace), pace.FormatPace(s.Pace.MaxPace), s.DurationMinutes)
		if s.Intensity != "" && s.WorkDistance > 0 {
			fmt.Fprintf(&b, "  (%.1f km %s)", s.WorkDistance, s.Intensity)
		}
		if s.Reduced {
			b.WriteString(warningStyle.Render("  reduced"))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "  Total %.1f km", plan.Volume())
	if plan.AcceptedAt != nil {
		fmt.Fprintf(&b, "  accepted %s", *plan.AcceptedAt)
	}
	return b.String()
}

// RenderZones renders a zone set slowest first.
func RenderZones(set models.PaceZoneSet) string {
	var b strings.Builder
	for _, z := range set.Zones {
		fmt.Fprintf(&b, "  %-10s %s-%s /km\n", z.Zone, pace.FormatPace(z.Pace.MinPace), pace.FormatPace(z.Pace.MaxPace))
	}
	return strings.TrimRight(b.String(), "\n")
}
