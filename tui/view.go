package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/LaChance971123/NewAutoContent/pipeline"
)

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("🎬 " + m.Run.ID))
	b.WriteString("\n\n")

	b.WriteString(m.stateText())
	b.WriteString("\n\n")

	if !m.Done {
		b.WriteString(InfoStyle.Render(fmt.Sprintf("⏱  Elapsed: %s", m.Elapsed.Round(100*time.Millisecond))))
		b.WriteString("\n\n")
	}

	if len(m.Events) > 0 {
		b.WriteString(InfoStyle.Render("📝 Recent Activity:"))
		b.WriteString("\n")
		for _, event := range m.Events {
			b.WriteString(renderEvent(event))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.Done {
		b.WriteString(BoxStyle.Render(m.summary()))
		b.WriteString("\n\n")
		b.WriteString(HighlightStyle.Render("Press 'q' or Ctrl+C to exit"))
	} else {
		b.WriteString(InfoStyle.Render("Press 'q' or Ctrl+C to quit"))
	}

	return b.String()
}

func renderEvent(event pipeline.Event) string {
	line := fmt.Sprintf("   [%s] %s %s", event.Time.Format("15:04:05"), event.Step, event.Status)
	if event.Message != "" {
		line += ": " + event.Message
	}
	switch event.Status {
	case pipeline.StatusFailed:
		return ErrorStyle.Render(line)
	case pipeline.StatusDegraded:
		return WarnStyle.Render(line)
	default:
		return InfoStyle.Render(line)
	}
}

func (m Model) summary() string {
	md := m.Run.Metadata()
	var b strings.Builder
	b.WriteString(HighlightStyle.Render("Run Result"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Status: %s\n", md.Status))
	b.WriteString(fmt.Sprintf("Voice engine: %s\n", md.VoiceEngineUsed))
	b.WriteString(fmt.Sprintf("Background: %s\n", md.BackgroundStyleResolved))
	b.WriteString(fmt.Sprintf("Duration: %.1fs\n", md.DurationSeconds))
	if md.SubtitleFallbackUsed {
		b.WriteString(WarnStyle.Render("Subtitles fabricated without transcription\n"))
	}
	if len(md.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		for _, stepErr := range md.Errors {
			b.WriteString(ErrorStyle.Render(fmt.Sprintf("  %s: %s\n", stepErr.Step, stepErr.Message)))
		}
	}
	if len(md.StepTimings) > 0 {
		b.WriteString("\nTimings:\n")
		for step, ms := range md.StepTimings {
			b.WriteString(fmt.Sprintf("  %s: %.2fs\n", step, float64(ms)/1000))
		}
	}
	return b.String()
}
