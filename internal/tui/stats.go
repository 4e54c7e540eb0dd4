package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/leonardotrapani/voxscribe/internal/stats"
)

// StatsTable renders r as a two column table. source names where the
// numbers came from, e.g. "daemon" or the stats file path.
func StatsTable(r stats.Record, source string) string {
	rows := [][]string{
		{"Recordings", fmt.Sprintf("%d", r.TimesRecorded)},
		{"Time recorded", formatSeconds(r.SecondsRecorded)},
		{"Files transcribed", fmt.Sprintf("%d", r.FilesTranscribed)},
		{"Time transcribed", formatSeconds(r.SecondsTranscribed)},
		{"Words received", fmt.Sprintf("%d", r.WordsReceived)},
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorSubtle)).
		Headers("Statistic", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return style.Foreground(ColorPrimary).Bold(true)
			case col == 1:
				return style.Foreground(ColorSecondary).Align(lipgloss.Right)
			default:
				return style.Foreground(ColorText)
			}
		})

	return t.Render() + "\n" + StyleMuted.Render("source: "+source)
}

// formatSeconds renders a duration such as 1h02m05s, rounded to the second.
func formatSeconds(s float64) string {
	if s <= 0 {
		return "0s"
	}
	d := time.Duration(s * float64(time.Second)).Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	sec := int(d % time.Minute / time.Second)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, sec)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, sec)
	default:
		return fmt.Sprintf("%ds", sec)
	}
}
