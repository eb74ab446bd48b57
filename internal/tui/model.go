// Package tui renders a live monitor for the command queues: the
// executing command with its latest heartbeat, recent lifecycle events,
// and periodic queue statistics.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/debugq/internal/events"
)

// maxEventLines bounds the in-memory event log.
const maxEventLines = 200

// eventMsg wraps a router event for the bubbletea loop.
type eventMsg struct {
	event events.Event
}

// eventsClosedMsg signals that the router subscription ended.
type eventsClosedMsg struct{}

// currentCommand tracks the command in flight for the header line.
type currentCommand struct {
	SessionID string
	CommandID string
	Text      string
	Started   time.Time
	Detail    string
}

// queueStats holds the latest statistics payload per session.
type queueStats struct {
	Tracked   int
	Processed int64
	Failed    int64
	Cancelled int64
}

// eventLine is one formatted row of the event log.
type eventLine struct {
	Time  time.Time
	Text  string
	Style lipgloss.Style
}

// model is the bubbletea model for the monitor.
type model struct {
	eventChan <-chan events.Event
	spin      spinner.Model

	width    int
	height   int
	quitting bool

	current *currentCommand
	stats   map[string]queueStats
	lines   []eventLine
}

// newModel creates the monitor model reading from the given channel.
func newModel(eventChan <-chan events.Event) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner
	return model{
		eventChan: eventChan,
		spin:      s,
		stats:     make(map[string]queueStats),
	}
}

// New creates a monitor program over a router subscription.
func New(eventChan <-chan events.Event) *tea.Program {
	return tea.NewProgram(newModel(eventChan), tea.WithAltScreen())
}

// waitForEvent creates a command that waits for the next router event.
func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: event}
	}
}

// Init starts the spinner and the event pump.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitForEvent(m.eventChan))
}

// Update handles keys, window sizing, spinner ticks, and router events.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case eventMsg:
		m = m.apply(msg.event)
		return m, waitForEvent(m.eventChan)

	case eventsClosedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// apply folds one router event into the display state.
func (m model) apply(event events.Event) model {
	switch e := event.(type) {
	case *events.StatusEvent:
		switch e.State {
		case events.StateExecuting:
			m.current = &currentCommand{
				SessionID: e.SessionID,
				CommandID: e.CommandID,
				Text:      e.Text,
				Started:   e.Timestamp(),
			}
		case events.StateCompleted, events.StateCancelled, events.StateFailed:
			if m.current != nil && m.current.CommandID == e.CommandID {
				m.current = nil
			}
		}
		m = m.appendLine(e.Timestamp(), formatStatus(e), statusStyle(e.State))

	case *events.HeartbeatEvent:
		if m.current != nil && m.current.CommandID == e.CommandID {
			m.current.Detail = e.Detail
		}

	case *events.QueueEvent:
		if e.Kind == "stats" {
			m.stats[e.SessionID] = statsFromPayload(e.Payload)
			return m
		}
		m = m.appendLine(e.Timestamp(),
			fmt.Sprintf("[%s] %s", e.SessionID, e.Message),
			styles.Queue)
	}

	return m
}

func (m model) appendLine(at time.Time, text string, style lipgloss.Style) model {
	m.lines = append(m.lines, eventLine{Time: at, Text: text, Style: style})
	if len(m.lines) > maxEventLines {
		m.lines = m.lines[len(m.lines)-maxEventLines:]
	}
	return m
}

// formatStatus renders a status event as one event-log row.
func formatStatus(e *events.StatusEvent) string {
	switch e.State {
	case events.StateQueued:
		return fmt.Sprintf("[%s] %s queued: %s", e.SessionID, e.CommandID, e.Message)
	case events.StateExecuting:
		return fmt.Sprintf("[%s] %s executing: %s", e.SessionID, e.CommandID, e.Text)
	case events.StateCompleted:
		return fmt.Sprintf("[%s] %s completed", e.SessionID, e.CommandID)
	case events.StateCancelled:
		return fmt.Sprintf("[%s] %s cancelled: %s", e.SessionID, e.CommandID, e.Error)
	case events.StateFailed:
		return fmt.Sprintf("[%s] %s failed: %s", e.SessionID, e.CommandID, e.Error)
	default:
		return fmt.Sprintf("[%s] %s %s", e.SessionID, e.CommandID, e.State)
	}
}

func statusStyle(state string) lipgloss.Style {
	switch state {
	case events.StateCompleted:
		return styles.Completed
	case events.StateCancelled:
		return styles.Cancelled
	case events.StateFailed:
		return styles.Failed
	case events.StateExecuting:
		return styles.Executing
	default:
		return styles.Queued
	}
}

func statsFromPayload(payload map[string]any) queueStats {
	var s queueStats
	if v, ok := payload["tracked"].(int); ok {
		s.Tracked = v
	}
	if v, ok := payload["processed"].(int64); ok {
		s.Processed = v
	}
	if v, ok := payload["failed"].(int64); ok {
		s.Failed = v
	}
	if v, ok := payload["cancelled"].(int64); ok {
		s.Cancelled = v
	}
	return s
}
