package subtitles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Seconds allotted to each word in a fabricated fallback track.
const fallbackSecondsPerWord = 0.4

// Builder produces a caption track for a voice asset. On transcription
// failure in developer mode it fabricates a track from the script text with
// uniform timing instead of aborting.
type Builder struct {
	transcriber   *Transcriber
	maxWordsLine  int
	developerMode bool
	logger        *slog.Logger
}

// NewBuilder constructs a builder around the given transcriber.
func NewBuilder(transcriber *Transcriber, maxWordsLine int, developerMode bool, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		transcriber:   transcriber,
		maxWordsLine:  maxWordsLine,
		developerMode: developerMode,
		logger:        logger,
	}
}

// Build transcribes audioPath and groups the words into a track of the given
// style. script is the original text, used only for the fallback track.
func (b *Builder) Build(ctx context.Context, audioPath, script, style string) (Track, error) {
	words, err := b.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		if !b.developerMode {
			return Track{}, err
		}
		if ctx.Err() != nil {
			return Track{}, fmt.Errorf("%w: %v", ErrGenerationFailed, ctx.Err())
		}
		b.logger.Warn("transcription failed, fabricating subtitles from script", "error", err)
		track := FabricateTrack(script, style, b.maxWordsLine)
		if len(track.Units) == 0 {
			return Track{}, fmt.Errorf("%w: script is empty, nothing to fabricate", ErrGenerationFailed)
		}
		return track, nil
	}

	return Track{Style: style, Units: groupIntoUnits(words, b.maxWordsLine)}, nil
}

// FabricateTrack builds a track straight from script text with uniform word
// timing and no alignment. Used when developer mode absorbs a transcription
// failure.
func FabricateTrack(script, style string, maxWordsLine int) Track {
	fields := strings.Fields(script)
	words := make([]Word, 0, len(fields))
	for i, text := range fields {
		words = append(words, Word{
			Text:  text,
			Start: float64(i) * fallbackSecondsPerWord,
			End:   float64(i+1) * fallbackSecondsPerWord,
		})
	}
	return Track{
		Style:    style,
		Units:    groupIntoUnits(words, maxWordsLine),
		Fallback: true,
	}
}
