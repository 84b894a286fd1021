package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/LaChance971123/NewAutoContent/assets"
	"github.com/LaChance971123/NewAutoContent/config"
	"github.com/LaChance971123/NewAutoContent/render"
	"github.com/LaChance971123/NewAutoContent/subtitles"
	"github.com/LaChance971123/NewAutoContent/voice"
)

// BackgroundResolver resolves a requested style into a usable BackgroundSet.
type BackgroundResolver interface {
	Resolve(style string) (assets.BackgroundSet, error)
}

// VoiceSynthesizer produces the voiceover audio file.
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, text, outPath string) (voice.Result, error)
}

// SubtitleBuilder produces the caption track for a voice asset.
type SubtitleBuilder interface {
	Build(ctx context.Context, audioPath, script, style string) (subtitles.Track, error)
}

// VideoRenderer encodes the final video.
type VideoRenderer interface {
	Render(ctx context.Context, set assets.BackgroundSet, audioPath, subtitlesPath string, opts render.Options, outPath string) error
}

// Pipeline coordinates the steps of a run. Components are built per run so
// per-invocation options (developer mode, debug) take effect; the factories
// exist so tests can substitute fakes.
type Pipeline struct {
	cfg    config.Config
	logger *slog.Logger

	newResolver  func(cfg config.Config) BackgroundResolver
	newVoice     func(cfg config.Config, opts Options, logger *slog.Logger) VoiceSynthesizer
	newSubtitles func(cfg config.Config, opts Options, logger *slog.Logger) SubtitleBuilder
	newRenderer  func(cfg config.Config, logger *slog.Logger) VideoRenderer
}

// New builds a pipeline over the loaded configuration.
func New(cfg config.Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:    cfg,
		logger: logger,
		newResolver: func(cfg config.Config) BackgroundResolver {
			return assets.NewResolver(cfg.BackgroundsPath, cfg.VideoExtensions)
		},
		newVoice: func(cfg config.Config, opts Options, logger *slog.Logger) VoiceSynthesizer {
			var primary voice.Engine
			if eng, err := voice.NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.VoiceID); err == nil {
				primary = eng
			} else {
				logger.Warn("remote voice engine unavailable", "error", err)
			}
			fallback := voice.NewPiper(cfg.PiperPath, cfg.LocalModelName, cfg.ModelCacheDir)
			return voice.NewAdapter(primary, fallback, opts.DeveloperModeEnabled(), config.PlaceholderVoiceDuration, logger)
		},
		newSubtitles: func(cfg config.Config, opts Options, logger *slog.Logger) SubtitleBuilder {
			tr := subtitles.NewTranscriber(cfg.WhisperPath, cfg.WhisperModel)
			return subtitles.NewBuilder(tr, config.SubtitleMaxWordsLine, opts.DeveloperModeEnabled(), logger)
		},
		newRenderer: func(cfg config.Config, logger *slog.Logger) VideoRenderer {
			return render.NewRenderer(cfg.FFmpegPath, logger)
		},
	}
}

// Run executes one pipeline invocation to completion. Whatever happens
// mid-run, the run folder is finalized with metadata.json, summary.txt,
// pipeline.log, and the zip archive before Run returns; on failure the
// returned *Run still points at the inspectable artifact.
func (p *Pipeline) Run(ctx context.Context, script, scriptName string, opts Options) (*Run, error) {
	run, logFile, runLogger, width, height, err := p.prepare(script, scriptName, opts)
	if err != nil {
		return nil, err
	}
	runErr := p.execute(ctx, run, runLogger, width, height)
	p.finalize(run, logFile, runErr)
	if runErr != nil {
		return run, runErr
	}
	return run, nil
}

// Start creates the run folder and returns immediately; the steps execute in
// a background goroutine. Callers watch progress via run.Events or poll
// run.State.
func (p *Pipeline) Start(ctx context.Context, script, scriptName string, opts Options) (*Run, error) {
	run, logFile, runLogger, width, height, err := p.prepare(script, scriptName, opts)
	if err != nil {
		return nil, err
	}
	go func() {
		runErr := p.execute(ctx, run, runLogger, width, height)
		p.finalize(run, logFile, runErr)
	}()
	return run, nil
}

// prepare validates the invocation and materializes the run folder, its log,
// and its event stream.
func (p *Pipeline) prepare(script, scriptName string, opts Options) (*Run, *os.File, *slog.Logger, int, int, error) {
	if strings.TrimSpace(script) == "" {
		return nil, nil, nil, 0, 0, fmt.Errorf("script text is empty")
	}
	opts = opts.merged(p.cfg)
	width, height, err := config.ParseResolution(opts.Resolution)
	if err != nil {
		return nil, nil, nil, 0, 0, err
	}

	run, err := newRun(p.cfg.OutputDir, script, scriptName, opts)
	if err != nil {
		return nil, nil, nil, 0, 0, err
	}

	logFile, err := os.OpenFile(run.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, nil, 0, 0, fmt.Errorf("open run log: %w", err)
	}
	run.Events = NewStream(logFile)

	var logWriter io.Writer = logFile
	level := slog.LevelInfo
	if opts.Debug {
		logWriter = io.MultiWriter(logFile, os.Stderr)
		level = slog.LevelDebug
	}
	runLogger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{Level: level})).With("run", run.ID)
	runLogger.Info("starting pipeline", "style", opts.Style, "background", opts.BackgroundStyle, "dry_run", opts.DryRun)
	return run, logFile, runLogger, width, height, nil
}

// execute walks the state machine up to (but not including) finalization.
func (p *Pipeline) execute(ctx context.Context, run *Run, logger *slog.Logger, width, height int) error {
	opts := run.Options
	resolver := p.newResolver(p.cfg)
	synthesizer := p.newVoice(p.cfg, opts, logger)
	builder := p.newSubtitles(p.cfg, opts, logger)
	renderer := p.newRenderer(p.cfg, logger)

	var set assets.BackgroundSet
	err := p.step(ctx, run, StateResolvingAssets, func(sctx context.Context) error {
		resolved, err := resolver.Resolve(opts.BackgroundStyle)
		if err != nil {
			return err
		}
		set = resolved
		run.setBackgroundResolved(resolved.Style)
		if !strings.EqualFold(resolved.Style, opts.BackgroundStyle) {
			msg := fmt.Sprintf("style %q unavailable, fell back to %q", opts.BackgroundStyle, resolved.Style)
			run.Events.Emit(string(StateResolvingAssets), StatusDegraded, msg)
			logger.Warn("background style fallback", "requested", opts.BackgroundStyle, "resolved", resolved.Style)
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = p.step(ctx, run, StateSynthesizingVoice, func(sctx context.Context) error {
		res, synthErr := synthesizer.Synthesize(sctx, run.Script, run.VoicePath())
		for _, warning := range res.Warnings {
			run.recordError(string(StateSynthesizingVoice), KindVoiceSynthesisFailed, warning)
			run.Events.Emit(string(StateSynthesizingVoice), StatusDegraded, warning)
		}
		if synthErr != nil {
			return synthErr
		}
		run.setVoiceResult(res.Engine, res.Placeholder)
		return nil
	})
	if err != nil {
		return err
	}

	var track subtitles.Track
	err = p.step(ctx, run, StateBuildingSubtitles, func(sctx context.Context) error {
		built, buildErr := builder.Build(sctx, run.VoicePath(), run.Script, opts.Style)
		if buildErr != nil {
			return buildErr
		}
		if built.Fallback {
			run.setSubtitleFallback()
			msg := "transcription failed; fabricated uniform-timing captions from script"
			run.recordError(string(StateBuildingSubtitles), KindSubtitleGenerationFailed, msg)
			run.Events.Emit(string(StateBuildingSubtitles), StatusDegraded, msg)
		}
		track = built
		run.setDuration(built.Duration())
		return subtitles.WriteASS(built, width, height, run.SubtitlesPath())
	})
	if err != nil {
		return err
	}

	if opts.DryRun {
		run.Events.Emit(string(StateBuildingSubtitles), StatusInfo, "dry run: skipping render")
		logger.Info("dry run, skipping render")
		return nil
	}

	return p.step(ctx, run, StateRendering, func(sctx context.Context) error {
		duration := track.Duration() + config.VideoEndPadding
		if duration > config.MaxVideoDuration {
			duration = config.MaxVideoDuration
		}
		ropts := render.Options{
			Width:            width,
			Height:           height,
			Watermark:        opts.WatermarkEnabled() && p.cfg.WatermarkPath != "",
			WatermarkPath:    p.cfg.WatermarkPath,
			WatermarkOpacity: p.cfg.WatermarkOpacity,
			DurationSeconds:  duration,
		}
		return renderer.Render(sctx, set, run.VoicePath(), run.SubtitlesPath(), ropts, run.VideoPath())
	})
}

// step runs fn under the per-step timeout, records its timing, and converts
// failures into recorded step errors.
func (p *Pipeline) step(ctx context.Context, run *Run, state State, fn func(context.Context) error) error {
	if err := run.setState(state); err != nil {
		return err
	}
	run.Events.Emit(string(state), StatusStarted, "")

	sctx, cancel := context.WithTimeout(ctx, run.Options.StepTimeout)
	defer cancel()

	start := time.Now()
	err := fn(sctx)
	run.recordTiming(string(state), time.Since(start))
	if err != nil {
		kind, message := describeStepError(state, err)
		run.recordError(string(state), kind, message)
		run.Events.Emit(string(state), StatusFailed, message)
		return err
	}
	run.Events.Emit(string(state), StatusCompleted, "")
	return nil
}

// finalize always runs: it persists metadata and summary, flushes the log,
// and archives the folder, no matter which state reached it.
func (p *Pipeline) finalize(run *Run, logFile *os.File, runErr error) {
	_ = run.setState(StateFinalizing)
	run.Events.Emit(string(StateFinalizing), StatusStarted, "")

	final := StateCompleted
	if runErr != nil {
		final = StateFailed
	}
	_ = run.setState(final)

	if err := run.writeMetadata(); err != nil {
		p.logger.Error("write metadata failed", "run", run.ID, "error", err)
	}
	if err := run.writeSummary(); err != nil {
		p.logger.Error("write summary failed", "run", run.ID, "error", err)
	}

	run.Events.Emit(string(final), StatusInfo, "run finalized")
	run.Events.Close()
	_ = logFile.Sync()
	_ = logFile.Close()

	if err := run.archive(); err != nil {
		p.logger.Error("archive run folder failed", "run", run.ID, "error", err)
	}
}

// RunDirectory executes one run per *.txt script in dir, bounded by
// MaxConcurrentRuns. Runs never share state beyond the read-only model cache.
func (p *Pipeline) RunDirectory(ctx context.Context, dir string, opts Options, registry *Registry) error {
	scripts, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return fmt.Errorf("list scripts: %w", err)
	}
	if len(scripts) == 0 {
		return fmt.Errorf("no .txt scripts found in %s", dir)
	}
	p.logger.Info("batch mode", "scripts", len(scripts))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, config.MaxConcurrentRuns)
	for _, path := range scripts {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			data, err := os.ReadFile(path)
			if err != nil {
				p.logger.Error("read script failed", "path", path, "error", err)
				return
			}
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			run, err := p.Run(ctx, string(data), name, opts)
			if run != nil && registry != nil {
				registry.Add(run)
			}
			if err != nil {
				p.logger.Error("run failed", "script", name, "error", err)
			}
		}(path)
	}
	wg.Wait()
	return nil
}
