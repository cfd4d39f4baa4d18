package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/dailystrip/internal/fetch"
)

const timeLayout = "2006-01-02 15:04"

// renderMain renders the header, strip panel, status line and footer.
func (m Model) renderMain() string {
	styles := m.theme.Styles()
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(styles),
		m.renderStrip(styles),
		m.renderStatus(styles),
		styles.Footer.Render(m.help.View(m.keys)),
	)
}

func (m Model) renderHeader(styles Styles) string {
	schedule := "manual only"
	if m.status.Scheduled {
		schedule = m.status.Schedule.String()
	}
	parts := []string{
		styles.Logo.Render("dailystrip"),
		styles.MutedText.Render(schedule),
	}
	if m.status.Busy {
		parts = append(parts, styles.InfoText.Render("fetching"))
	}
	if m.snapshot.IsOffline() {
		parts = append(parts, styles.DangerText.Render("offline"))
	}
	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) renderStrip(styles Styles) string {
	s := m.snapshot.Strip
	width := m.width - 2
	if width < 20 {
		width = 20
	}
	panel := styles.Panel.Width(width)

	if s.IsMissing() {
		lines := []string{styles.WarningText.Render("No strip available")}
		if m.sourceURL != "" {
			lines = append(lines, row(styles, "Source", m.sourceURL))
		}
		return panel.Render(strings.Join(lines, "\n"))
	}

	title := s.Title()
	if title == "" {
		title = "Untitled"
	}
	lines := []string{
		styles.AccentText.Render(title),
		"",
		row(styles, "Checksum", s.Checksum().Short()),
		row(styles, "Size", fmt.Sprintf("%d bytes", s.Size())),
		row(styles, "Type", s.ContentType()),
		row(styles, "Fetched", formatTime(s.FetchedAt())),
		row(styles, "Image", s.SourceURL()),
	}
	if m.archiveDir != "" {
		lines = append(lines, row(styles, "Archive", m.archiveDir))
	}
	return panel.Render(strings.Join(lines, "\n"))
}

func (m Model) renderStatus(styles Styles) string {
	var lines []string

	if !m.isAcknowledged() {
		lines = append(lines, styles.WarningText.Render("Downloads are off until the disclaimer is accepted (press a)"))
	}

	if ev := m.lastEvent; ev != nil {
		switch ev.Outcome {
		case fetch.Updated:
			lines = append(lines, styles.SuccessText.Render("New strip")+" "+styles.MutedText.Render(formatTime(ev.At)))
		case fetch.Failed:
			msg := "Fetch failed"
			if ev.Err != nil {
				msg += ": " + ev.Err.Error()
			}
			lines = append(lines, styles.DangerText.Render(msg))
		}
	}

	if n := m.snapshot.ConsecutiveFailures; n > 0 {
		lines = append(lines, styles.MutedText.Render(fmt.Sprintf("%d failed fetch(es) in a row", n)))
	}
	if !m.snapshot.LastUpdated.IsZero() {
		lines = append(lines, styles.FaintText.Render("Last change "+formatTime(m.snapshot.LastUpdated)))
	}
	if m.flash != "" {
		lines = append(lines, styles.InfoText.Render(m.flash))
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
}

func row(styles Styles, label, value string) string {
	if value == "" {
		value = "-"
	}
	return styles.Label.Render(label) + styles.Text.Render(value)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
