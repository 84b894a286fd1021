package pipeline

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Metadata is the persisted record of a run: inputs, resolved choices,
// timings, and every error encountered. Written once at finalization and
// never mutated after.
type Metadata struct {
	RunID                   string           `json:"runId"`
	ScriptName              string           `json:"scriptName"`
	Status                  string           `json:"status"`
	Style                   string           `json:"style"`
	BackgroundStyleResolved string           `json:"backgroundStyleResolved"`
	Resolution              string           `json:"resolution"`
	Watermark               bool             `json:"watermark"`
	DryRun                  bool             `json:"dryRun"`
	VoiceEngineUsed         string           `json:"voiceEngineUsed"`
	DeveloperModeTriggered  bool             `json:"developerModeTriggered"`
	SubtitleFallbackUsed    bool             `json:"subtitleFallbackUsed"`
	DurationSeconds         float64          `json:"durationSeconds"`
	StepTimings             map[string]int64 `json:"stepTimings"`
	Errors                  []StepError      `json:"errors"`
	Timestamp               string           `json:"timestamp"`
}

// Metadata builds the metadata record from the run's current state.
func (r *Run) Metadata() Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	timings := make(map[string]int64, len(r.stepTimings))
	for step, d := range r.stepTimings {
		timings[step] = d.Milliseconds()
	}
	errs := make([]StepError, len(r.errors))
	copy(errs, r.errors)

	return Metadata{
		RunID:                   r.ID,
		ScriptName:              r.ScriptName,
		Status:                  string(r.state),
		Style:                   r.Options.Style,
		BackgroundStyleResolved: r.backgroundStyleResolved,
		Resolution:              r.Options.Resolution,
		Watermark:               r.Options.WatermarkEnabled(),
		DryRun:                  r.Options.DryRun,
		VoiceEngineUsed:         r.voiceEngineUsed,
		DeveloperModeTriggered:  r.developerModeTriggered,
		SubtitleFallbackUsed:    r.subtitleFallbackUsed,
		DurationSeconds:         r.durationSeconds,
		StepTimings:             timings,
		Errors:                  errs,
		Timestamp:               r.StartedAt.Format(time.RFC3339),
	}
}

// writeMetadata persists metadata.json.
func (r *Run) writeMetadata() error {
	data, err := json.MarshalIndent(r.Metadata(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	return os.WriteFile(r.MetadataPath(), data, 0o644)
}

// writeSummary persists the human-readable summary.txt.
func (r *Run) writeSummary() error {
	md := r.Metadata()
	summary := fmt.Sprintf(
		"Title: %s\nStatus: %s\nSubtitle style: %s\nBackground style: %s\nResolution: %s\nVoice engine: %s\nDuration: %.1fs\nTimestamp: %s\n",
		md.ScriptName, md.Status, md.Style, md.BackgroundStyleResolved,
		md.Resolution, md.VoiceEngineUsed, md.DurationSeconds, md.Timestamp,
	)
	return os.WriteFile(r.SummaryPath(), []byte(summary), 0o644)
}

// archive zips the run folder's contents into the folder's archive file,
// skipping the archive itself.
func (r *Run) archive() error {
	out, err := os.Create(r.ArchivePath())
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	defer zw.Close()

	return filepath.WalkDir(r.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path == r.ArchivePath() {
			return nil
		}
		rel, err := filepath.Rel(r.Dir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
}
