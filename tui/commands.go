package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/LaChance971123/NewAutoContent/pipeline"
)

// EventMsg carries the next pipeline event off the stream.
type EventMsg struct {
	Event pipeline.Event
}

// StreamClosedMsg is sent when the run finalizes and the stream closes.
type StreamClosedMsg struct{}

// TickMsg drives the elapsed-time display.
type TickMsg struct {
	Time time.Time
}

// waitForEvent blocks on the subscription until the next event arrives.
func waitForEvent(events <-chan pipeline.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return StreamClosedMsg{}
		}
		return EventMsg{Event: event}
	}
}

// tickCmd ticks every 500ms while the run is live.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
