package summary

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"cukereport/pkg/listener"
)

// TextOptions configures terminal rendering.
type TextOptions struct {
	NoColor bool
	// FailuresOnly hides passed and skipped cases from the table.
	FailuresOnly bool
}

// RenderText writes the counts line and a case table.
func RenderText(w io.Writer, report Report, opts TextOptions) error {
	var b strings.Builder
	header := fmt.Sprintf("%d scenarios in %s | pass rate %s%%", report.Total, report.Dir, formatPassRate(report.PassRate()))
	if report.Duration > 0 {
		header += " | " + report.Duration.Round(time.Millisecond).String()
	}
	b.WriteString(stylize(header, opts.NoColor, lipgloss.NewStyle().Bold(true)))
	b.WriteString("\n")
	b.WriteString(countsLine(report, opts.NoColor))
	b.WriteString("\n")

	rows := make([][]string, 0, len(report.Cases))
	for _, line := range report.Cases {
		if opts.FailuresOnly && !isFailing(line.Status) {
			continue
		}
		rows = append(rows, []string{
			line.Feature,
			line.Name,
			stylize(string(line.Status), opts.NoColor, statusStyle(line.Status)),
			formatCaseDuration(line.Duration),
			firstLine(line.Message),
		})
	}
	if len(rows) > 0 {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("Feature", "Scenario", "Status", "Time", "Message").
			Rows(rows...).
			StyleFunc(func(_, _ int) lipgloss.Style {
				return lipgloss.NewStyle().Padding(0, 1)
			})
		if opts.NoColor {
			t = t.BorderStyle(lipgloss.NewStyle())
		} else {
			t = t.BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240")))
		}
		b.WriteString(t.Render())
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func countsLine(report Report, noColor bool) string {
	parts := make([]string, 0, len(statusOrder))
	for _, status := range statusOrder {
		count := report.Counts[status]
		if count == 0 && status == "unknown" {
			continue
		}
		parts = append(parts, stylize(fmt.Sprintf("%s: %d", status, count), noColor, statusStyle(status)))
	}
	return strings.Join(parts, "  ")
}

func isFailing(status listener.Status) bool {
	return status == listener.StatusFailed || status == listener.StatusBroken
}

func formatCaseDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return d.Round(time.Millisecond).String()
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	const limit = 60
	if len(text) > limit {
		return text[:limit-3] + "..."
	}
	return text
}

// statusStyle selects a style for a given status.
func statusStyle(status listener.Status) lipgloss.Style {
	color := lipgloss.Color("244")
	switch status {
	case listener.StatusPassed:
		color = lipgloss.Color("42")
	case listener.StatusFailed:
		color = lipgloss.Color("196")
	case listener.StatusBroken:
		color = lipgloss.Color("208")
	case listener.StatusSkipped:
		color = lipgloss.Color("246")
	}
	return lipgloss.NewStyle().Foreground(color)
}

func stylize(text string, noColor bool, style lipgloss.Style) string {
	if noColor {
		return text
	}
	return style.Render(text)
}
