// Package tui renders a live terminal view of a pipeline run.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/LaChance971123/NewAutoContent/pipeline"
)

const maxVisibleEvents = 12

// Model watches one in-process run through its event stream.
type Model struct {
	Run    *pipeline.Run
	Events []pipeline.Event

	events    <-chan pipeline.Event
	unwatch   func()
	StartedAt time.Time
	Elapsed   time.Duration
	Done      bool
}

// NewModel attaches a viewer to a started run. History and subscription are
// taken in one step so no event shows up twice in the view.
func NewModel(run *pipeline.Run) Model {
	history, ch, cancel := run.Events.SubscribeWithSnapshot()
	return Model{
		Run:       run,
		Events:    history,
		events:    ch,
		unwatch:   cancel,
		StartedAt: time.Now(),
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), tickCmd())
}

func (m Model) stateText() string {
	state := m.Run.State()
	switch state {
	case pipeline.StateCompleted:
		return HighlightStyle.Render("✅ COMPLETE") + "\n" +
			InfoStyle.Render("Artifacts: "+m.Run.Dir)
	case pipeline.StateFailed:
		return ErrorStyle.Render("❌ FAILED") + "\n" +
			InfoStyle.Render("See "+m.Run.LogPath())
	default:
		return StatusStyle.Render("⏳ " + string(state))
	}
}
