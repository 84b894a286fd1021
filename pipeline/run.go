// Package pipeline sequences voiceover, subtitles, background resolution,
// and rendering as timeout-bounded steps with fallback policies, and
// guarantees every run finalizes a consistent artifact folder.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State enumerates the orchestrator's run states.
type State string

const (
	StateInitializing      State = "initializing"
	StateResolvingAssets   State = "resolving_assets"
	StateSynthesizingVoice State = "synthesizing_voice"
	StateBuildingSubtitles State = "building_subtitles"
	StateRendering         State = "rendering"
	StateFinalizing        State = "finalizing"
	StateCompleted         State = "completed"
	StateFailed            State = "failed"
)

// transitions is the explicit state machine table. Finalizing is reachable
// from every working state, which keeps the finalize-on-all-paths guarantee
// visible in one place.
var transitions = map[State][]State{
	StateInitializing:      {StateResolvingAssets, StateFinalizing},
	StateResolvingAssets:   {StateSynthesizingVoice, StateFinalizing},
	StateSynthesizingVoice: {StateBuildingSubtitles, StateFinalizing},
	StateBuildingSubtitles: {StateRendering, StateFinalizing},
	StateRendering:         {StateFinalizing},
	StateFinalizing:        {StateCompleted, StateFailed},
	StateCompleted:         {},
	StateFailed:            {},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StepError is one recorded failure, absorbed or fatal.
type StepError struct {
	Step    string `json:"step"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Run is one pipeline invocation and its accumulating results. Mutation goes
// through methods so front-ends can snapshot concurrently while the run is
// in flight.
type Run struct {
	ID         string
	ScriptName string
	Script     string
	Options    Options
	Dir        string
	StartedAt  time.Time
	Events     *Stream

	mu                      sync.RWMutex
	state                   State
	stepTimings             map[string]time.Duration
	errors                  []StepError
	voiceEngineUsed         string
	developerModeTriggered  bool
	subtitleFallbackUsed    bool
	backgroundStyleResolved string
	durationSeconds         float64
}

// Artifact paths inside the run directory.
func (r *Run) ScriptPath() string    { return filepath.Join(r.Dir, r.ScriptName+".txt") }
func (r *Run) VoicePath() string     { return filepath.Join(r.Dir, "voice.wav") }
func (r *Run) SubtitlesPath() string { return filepath.Join(r.Dir, "subtitles.ass") }
func (r *Run) VideoPath() string     { return filepath.Join(r.Dir, "final_video.mp4") }
func (r *Run) LogPath() string       { return filepath.Join(r.Dir, "pipeline.log") }
func (r *Run) MetadataPath() string  { return filepath.Join(r.Dir, "metadata.json") }
func (r *Run) SummaryPath() string   { return filepath.Join(r.Dir, "summary.txt") }
func (r *Run) ArchivePath() string   { return filepath.Join(r.Dir, r.ID+".zip") }

func (r *Run) setState(next State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !CanTransition(r.state, next) {
		return fmt.Errorf("illegal transition %s -> %s", r.state, next)
	}
	r.state = next
	return nil
}

// State returns the current run state.
func (r *Run) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Run) recordTiming(step string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stepTimings[step] = d
}

func (r *Run) recordError(step, kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, StepError{Step: step, Kind: kind, Message: message})
}

func (r *Run) setVoiceResult(engine string, placeholder bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voiceEngineUsed = engine
	if placeholder {
		r.developerModeTriggered = true
	}
}

func (r *Run) setSubtitleFallback() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subtitleFallbackUsed = true
	r.developerModeTriggered = true
}

func (r *Run) setBackgroundResolved(style string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backgroundStyleResolved = style
}

func (r *Run) setDuration(seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durationSeconds = seconds
}

// Failed reports whether the run ended in the failed state.
func (r *Run) Failed() bool { return r.State() == StateFailed }

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeName returns a filesystem-safe version of name.
func SanitizeName(name string) string {
	cleaned := unsafeNameChars.ReplaceAllString(strings.TrimSpace(name), "_")
	if cleaned == "" {
		return "session"
	}
	return cleaned
}

// newRun allocates the run identity and its output directory, and copies the
// script text into the folder so the inputs stay inspectable.
func newRun(outputRoot, script, scriptName string, opts Options) (*Run, error) {
	name := SanitizeName(scriptName)
	if name == "cli" || name == "stdin" {
		name = "session"
	}
	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create output root: %w", err)
	}
	stamp := fmt.Sprintf("%s_%s", name, time.Now().Format("20060102_150405"))
	id := stamp
	dir := filepath.Join(outputRoot, id)
	// Mkdir doubles as the claim on the id, so concurrent runs started within
	// the same second cannot end up sharing a folder.
	if err := os.Mkdir(dir, 0o755); err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create run directory: %w", err)
		}
		id = fmt.Sprintf("%s_%s", stamp, uuid.NewString()[:8])
		dir = filepath.Join(outputRoot, id)
		if err := os.Mkdir(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create run directory: %w", err)
		}
	}

	run := &Run{
		ID:          id,
		ScriptName:  name,
		Script:      script,
		Options:     opts,
		Dir:         dir,
		StartedAt:   time.Now(),
		state:       StateInitializing,
		stepTimings: make(map[string]time.Duration),
	}
	if err := os.WriteFile(run.ScriptPath(), []byte(script), 0o644); err != nil {
		return nil, fmt.Errorf("write script copy: %w", err)
	}
	return run, nil
}
