// Package dashboard renders the team coordination status as styled text.
package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"

	"github.com/willibrandon/cohere/internal/coherence"
)

// Score bands for display styling.
const (
	scoreHealthy  = 75.0
	scoreDegraded = 50.0
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	headerStyle   = lipgloss.NewStyle().Faint(true)
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	graphStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// Render formats a full status report. Compact mode collapses the per-agent
// table to one line per agent and drops alerts and trend.
func Render(report coherence.StatusReport, compact bool) string {
	var b strings.Builder
	rule := strings.Repeat("=", 70)

	b.WriteString(rule + "\n")
	b.WriteString(titleStyle.Render(fmt.Sprintf("TEAM COHERENCE  %s %s",
		formatScore(report.Score, report.HasAgents), scoreBadge(report.Score, report.HasAgents))))
	b.WriteString("\n" + rule + "\n")

	if compact {
		b.WriteString(fmt.Sprintf("\nAgents: %d | Active: %d | Alerts: %d\n\n",
			report.TotalAgents, report.ActiveAgents, len(report.Alerts)))
		for _, row := range report.Agents {
			b.WriteString(fmt.Sprintf("  %-12s %5.1f %s  ACK:%5.1f%%  LAT:%5.1fs\n",
				row.Name, row.Score, scoreBadge(row.Score, true), row.AckRate, row.AvgLatency))
		}
		b.WriteString(rule + "\n")
		return b.String()
	}

	b.WriteString("\n" + titleStyle.Render("AGENT STATUS") + "\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-12s %6s %6s %8s %9s %9s  %s",
		"Agent", "Score", "ACK%", "Latency", "Fidelity", "Status", "Last seen")) + "\n")
	if len(report.Agents) == 0 {
		b.WriteString("No agents registered\n")
	}
	for _, row := range report.Agents {
		status := "Inactive"
		if row.IsActive {
			status = "Active"
		}
		lastSeen := "never"
		if !row.LastActivityAt.IsZero() {
			lastSeen = humanize.Time(row.LastActivityAt)
		}
		b.WriteString(fmt.Sprintf("%-12s %6.1f %5.1f%% %7.1fs %8.1f%% %9s  %s\n",
			row.Name, row.Score, row.AckRate, row.AvgLatency, row.Fidelity, status, lastSeen))
	}

	b.WriteString("\n" + titleStyle.Render("ALERTS") + "\n")
	if len(report.Alerts) == 0 {
		b.WriteString(okStyle.Render("No active alerts") + "\n")
	}
	for _, alert := range report.Alerts {
		style := warnStyle
		if alert.Severity == coherence.SeverityCritical {
			style = criticalStyle
		}
		b.WriteString(style.Render(alert.Format()) + "\n")
	}

	b.WriteString("\n" + titleStyle.Render(fmt.Sprintf("TREND (%s)", report.TrendWindow)) + "\n")
	b.WriteString(fmt.Sprintf("%s (%+.1f over %d samples)\n",
		report.Trend.Direction, report.Trend.Change, report.Trend.Samples))
	if graph := renderHistory(report.ScoreHistory); graph != "" {
		b.WriteString(graph + "\n")
	}

	b.WriteString(rule + "\n")
	return b.String()
}

// renderHistory plots the snapshot score history. Returns "" when there is
// not enough data to plot.
func renderHistory(scores []float64) string {
	if len(scores) < 2 {
		return ""
	}

	if len(scores) > 60 {
		scores = scores[len(scores)-60:]
	}

	graph := asciigraph.Plot(scores,
		asciigraph.Height(6),
		asciigraph.Width(60),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(100),
	)

	lines := strings.Split(graph, "\n")
	for i, line := range lines {
		lines[i] = graphStyle.Render(line)
	}
	return strings.Join(lines, "\n")
}

func formatScore(score float64, hasAgents bool) string {
	if !hasAgents {
		return "--/100"
	}
	return fmt.Sprintf("%.1f/100", score)
}

// scoreBadge returns a colored marker for the score band.
func scoreBadge(score float64, hasAgents bool) string {
	switch {
	case !hasAgents:
		return headerStyle.Render("[--]")
	case score >= scoreHealthy:
		return okStyle.Render("[OK]")
	case score >= scoreDegraded:
		return warnStyle.Render("[!]")
	default:
		return criticalStyle.Render("[X]")
	}
}
