// Package render composes background, voiceover, subtitles, and watermark
// into the final vertical video via ffmpeg.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/LaChance971123/NewAutoContent/assets"
	"github.com/LaChance971123/NewAutoContent/config"
)

// ErrRenderFailed reports an encoder failure or timeout. Rendering has no
// fallback; this error always aborts the run.
var ErrRenderFailed = errors.New("render failed")

// Options controls one render invocation.
type Options struct {
	Width            int
	Height           int
	Watermark        bool
	WatermarkPath    string
	WatermarkOpacity float64
	// DurationSeconds trims the background loop; 0 means use the audio length.
	DurationSeconds float64
}

// Renderer drives the external ffmpeg process.
type Renderer struct {
	ffmpegPath string
	logger     *slog.Logger
	pick       func(n int) int
}

// NewRenderer builds a renderer using the given ffmpeg binary.
func NewRenderer(ffmpegPath string, logger *slog.Logger) *Renderer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{ffmpegPath: ffmpegPath, logger: logger, pick: rand.Intn}
}

// Render selects a random background from the set, builds the filter graph
// (center crop to the target aspect, scale, burn subtitles, optional
// watermark overlay), muxes the voice audio, and encodes to outPath. The
// ffmpeg process is force-terminated when ctx ends, so no orphan survives a
// step timeout.
func (r *Renderer) Render(ctx context.Context, set assets.BackgroundSet, audioPath, subtitlesPath string, opts Options, outPath string) error {
	if len(set.Videos) == 0 {
		return fmt.Errorf("%w: background set is empty", ErrRenderFailed)
	}
	background := set.Videos[r.pick(len(set.Videos))]
	r.logger.Info("rendering video", "background", filepath.Base(background), "resolution", fmt.Sprintf("%dx%d", opts.Width, opts.Height))

	cmd := r.buildCommand(background, audioPath, subtitlesPath, opts, outPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// Own process group so a timeout kill reaches any helpers the encoder
	// forked; WaitDelay bounds Wait when a descendant holds the stderr pipe.
	setProcessGroup(cmd)
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start ffmpeg: %v", ErrRenderFailed, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		killProcessGroup(cmd)
		<-done // reap; never leave the encoder orphaned
		return fmt.Errorf("%w: %v", ErrRenderFailed, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: ffmpeg: %v: %s", ErrRenderFailed, err, tail(stderr.String(), 500))
		}
	}

	if info, err := os.Stat(outPath); err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: ffmpeg completed but %s is missing or empty", ErrRenderFailed, outPath)
	}
	return nil
}

func (r *Renderer) buildCommand(background, audioPath, subtitlesPath string, opts Options, outPath string) *exec.Cmd {
	inputArgs := ffmpeg.KwArgs{"stream_loop": "-1"}
	if opts.DurationSeconds > 0 {
		inputArgs["t"] = fmt.Sprintf("%.2f", opts.DurationSeconds)
	}
	video := ffmpeg.Input(background, inputArgs)
	audio := ffmpeg.Input(audioPath)

	// Center crop to the target aspect ratio, then scale. Horizontal
	// backgrounds come out vertical instead of squashed.
	graph := video.
		Filter("crop", ffmpeg.Args{fmt.Sprintf("ih*%d/%d:ih", opts.Width, opts.Height)}).
		Filter("scale", ffmpeg.Args{fmt.Sprintf("%d:%d", opts.Width, opts.Height)}).
		Filter("ass", ffmpeg.Args{escapeFilterPath(subtitlesPath)})

	if opts.Watermark && opts.WatermarkPath != "" {
		wm := ffmpeg.Input(opts.WatermarkPath).
			Filter("format", ffmpeg.Args{"rgba"}).
			Filter("colorchannelmixer", ffmpeg.Args{fmt.Sprintf("aa=%.2f", clampOpacity(opts.WatermarkOpacity))})
		graph = ffmpeg.Filter([]*ffmpeg.Stream{graph, wm}, "overlay", ffmpeg.Args{"W-w-20:H-h-20"})
	}

	outputArgs := ffmpeg.KwArgs{
		"c:v":      config.VideoCodec,
		"c:a":      config.AudioCodec,
		"b:a":      config.AudioBitrate,
		"preset":   config.VideoPreset,
		"pix_fmt":  "yuv420p",
		"shortest": "",
	}
	return ffmpeg.Output([]*ffmpeg.Stream{graph, audio}, outPath, outputArgs).
		OverWriteOutput().
		SetFfmpegPath(r.ffmpegPath).
		Compile()
}

// escapeFilterPath converts a path for use inside an ffmpeg filter argument.
func escapeFilterPath(path string) string {
	p := filepath.ToSlash(path)
	return strings.ReplaceAll(p, ":", "\\:")
}

func clampOpacity(v float64) float64 {
	if v <= 0 || v > 1 {
		return 1
	}
	return v
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
