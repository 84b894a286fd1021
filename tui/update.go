package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case EventMsg:
		m.Events = append(m.Events, msg.Event)
		if len(m.Events) > maxVisibleEvents {
			m.Events = m.Events[len(m.Events)-maxVisibleEvents:]
		}
		return m, waitForEvent(m.events)
	case StreamClosedMsg:
		m.Done = true
		m.unwatch()
		return m, nil
	case TickMsg:
		if m.Done {
			return m, nil
		}
		m.Elapsed = msg.Time.Sub(m.StartedAt)
		return m, tickCmd()
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.unwatch()
		return m, tea.Quit
	}
	return m, nil
}
