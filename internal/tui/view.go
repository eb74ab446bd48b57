package tui

import (
	"fmt"
	"strings"
	"time"
)

// View renders the monitor: header with the executing command, the event
// log tail, aggregate statistics, and the key hint footer.
func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(styles.Title.Render("debugq monitor"))
	b.WriteString("\n\n")

	if m.current != nil {
		elapsed := time.Since(m.current.Started).Round(time.Second)
		b.WriteString(fmt.Sprintf("%s %s %s",
			m.spin.View(),
			styles.Current.Render(fmt.Sprintf("[%s] %s", m.current.SessionID, m.current.Text)),
			styles.Detail.Render(fmt.Sprintf("(%s)", elapsed)),
		))
		if m.current.Detail != "" {
			b.WriteString(styles.Detail.Render(" " + m.current.Detail))
		}
	} else {
		b.WriteString(styles.Detail.Render("idle"))
	}
	b.WriteString("\n\n")

	for _, line := range m.visibleLines() {
		b.WriteString(fmt.Sprintf("%s %s\n",
			styles.Detail.Render(line.Time.Format("15:04:05")),
			line.Style.Render(line.Text),
		))
	}

	if len(m.stats) > 0 {
		b.WriteString("\n")
		for session, s := range m.stats {
			b.WriteString(styles.Stats.Render(fmt.Sprintf(
				"%s: %d tracked, %d processed, %d failed, %d cancelled",
				session, s.Tracked, s.Processed, s.Failed, s.Cancelled,
			)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.Footer.Render("q: quit"))
	return b.String()
}

// visibleLines returns the tail of the event log that fits the window.
func (m model) visibleLines() []eventLine {
	limit := m.height - 8
	if limit < 5 {
		limit = 5
	}
	if len(m.lines) <= limit {
		return m.lines
	}
	return m.lines[len(m.lines)-limit:]
}
