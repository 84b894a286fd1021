package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/LaChance971123/NewAutoContent/assets"
	"github.com/LaChance971123/NewAutoContent/render"
	"github.com/LaChance971123/NewAutoContent/subtitles"
	"github.com/LaChance971123/NewAutoContent/voice"
)

// Error kinds recorded in metadata.json.errors.
const (
	KindAssetUnavailable         = "asset_unavailable"
	KindVoiceSynthesisFailed     = "voice_synthesis_failed"
	KindSubtitleGenerationFailed = "subtitle_generation_failed"
	KindRenderFailed             = "render_failed"
	KindInternal                 = "internal"
)

// classifyError maps a component error to its metadata kind. A step timeout
// is reported as the owning step's failure kind, with the timeout noted in
// the message.
func classifyError(err error) string {
	switch {
	case errors.Is(err, assets.ErrUnavailable):
		return KindAssetUnavailable
	case errors.Is(err, voice.ErrSynthesisFailed):
		return KindVoiceSynthesisFailed
	case errors.Is(err, subtitles.ErrGenerationFailed):
		return KindSubtitleGenerationFailed
	case errors.Is(err, render.ErrRenderFailed):
		return KindRenderFailed
	default:
		return KindInternal
	}
}

// stepKinds maps each step to the kind its timeout is reported as.
var stepKinds = map[State]string{
	StateResolvingAssets:   KindAssetUnavailable,
	StateSynthesizingVoice: KindVoiceSynthesisFailed,
	StateBuildingSubtitles: KindSubtitleGenerationFailed,
	StateRendering:         KindRenderFailed,
}

// describeStepError renders the kind and message for a failed step.
func describeStepError(state State, err error) (kind, message string) {
	kind = classifyError(err)
	message = err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		if k, ok := stepKinds[state]; ok {
			kind = k
		}
		message = fmt.Sprintf("step timed out: %v", err)
	}
	return kind, message
}
