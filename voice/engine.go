// Package voice synthesizes voiceover audio behind a single engine contract,
// with a remote primary, a local fallback, and a developer-mode placeholder.
package voice

import (
	"context"
	"errors"
)

// Engine names recorded in run metadata.
const (
	EngineElevenLabs  = "elevenlabs"
	EnginePiper       = "piper"
	EnginePlaceholder = "placeholder"
)

// ErrSynthesisFailed reports that an engine could not produce audio.
var ErrSynthesisFailed = errors.New("voice synthesis failed")

// Engine turns text into an audio file at outPath.
type Engine interface {
	Name() string
	Synthesize(ctx context.Context, text string, outPath string) error
}

// Result describes the audio asset the adapter produced.
type Result struct {
	Path        string
	Engine      string
	Placeholder bool
	Warnings    []string
}
