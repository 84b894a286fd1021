package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LaChance971123/NewAutoContent/assets"
	"github.com/LaChance971123/NewAutoContent/config"
	"github.com/LaChance971123/NewAutoContent/render"
	"github.com/LaChance971123/NewAutoContent/subtitles"
	"github.com/LaChance971123/NewAutoContent/voice"
)

type resolverFunc func(style string) (assets.BackgroundSet, error)

func (f resolverFunc) Resolve(style string) (assets.BackgroundSet, error) { return f(style) }

type voiceFunc func(ctx context.Context, text, outPath string) (voice.Result, error)

func (f voiceFunc) Synthesize(ctx context.Context, text, outPath string) (voice.Result, error) {
	return f(ctx, text, outPath)
}

type subtitleFunc func(ctx context.Context, audioPath, script, style string) (subtitles.Track, error)

func (f subtitleFunc) Build(ctx context.Context, audioPath, script, style string) (subtitles.Track, error) {
	return f(ctx, audioPath, script, style)
}

type renderFunc func(ctx context.Context, set assets.BackgroundSet, audioPath, subtitlesPath string, opts render.Options, outPath string) error

func (f renderFunc) Render(ctx context.Context, set assets.BackgroundSet, audioPath, subtitlesPath string, opts render.Options, outPath string) error {
	return f(ctx, set, audioPath, subtitlesPath, opts, outPath)
}

func testTrack(fallback bool) subtitles.Track {
	return subtitles.Track{
		Style:    subtitles.StyleSimple,
		Fallback: fallback,
		Units: []subtitles.Unit{{
			Start: 0,
			End:   2,
			Words: []subtitles.Word{
				{Text: "hello", Start: 0, End: 1},
				{Text: "world", Start: 1, End: 2},
			},
		}},
	}
}

func happyResolver(style string) (assets.BackgroundSet, error) {
	return assets.BackgroundSet{Style: style, Videos: []string{"bg.mp4"}}, nil
}

func happyVoice(ctx context.Context, text, outPath string) (voice.Result, error) {
	if err := os.WriteFile(outPath, []byte("RIFF"), 0o644); err != nil {
		return voice.Result{}, err
	}
	return voice.Result{Path: outPath, Engine: voice.EngineElevenLabs}, nil
}

func happySubtitles(ctx context.Context, audioPath, script, style string) (subtitles.Track, error) {
	return testTrack(false), nil
}

func happyRender(ctx context.Context, set assets.BackgroundSet, audioPath, subtitlesPath string, opts render.Options, outPath string) error {
	return os.WriteFile(outPath, []byte("mp4"), 0o644)
}

// newTestPipeline wires a pipeline over a temp output dir with all fakes
// defaulting to the happy path; tests override individual factories.
func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	p := New(cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	p.newResolver = func(config.Config) BackgroundResolver { return resolverFunc(happyResolver) }
	p.newVoice = func(config.Config, Options, *slog.Logger) VoiceSynthesizer { return voiceFunc(happyVoice) }
	p.newSubtitles = func(config.Config, Options, *slog.Logger) SubtitleBuilder { return subtitleFunc(happySubtitles) }
	p.newRenderer = func(config.Config, *slog.Logger) VideoRenderer { return renderFunc(happyRender) }
	return p
}

func requireArtifacts(t *testing.T, run *Run, wantVideo bool) {
	t.Helper()
	for _, path := range []string{run.ScriptPath(), run.LogPath(), run.MetadataPath(), run.SummaryPath(), run.ArchivePath()} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing artifact %s: %v", filepath.Base(path), err)
		}
	}
	_, err := os.Stat(run.VideoPath())
	if wantVideo && err != nil {
		t.Errorf("missing final video: %v", err)
	}
	if !wantVideo && err == nil {
		t.Error("final video present, expected none")
	}
}

func TestRunHappyPath(t *testing.T) {
	p := newTestPipeline(t)

	run, err := p.Run(context.Background(), "hello world", "demo clip", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := run.State(); got != StateCompleted {
		t.Fatalf("state = %s, want %s", got, StateCompleted)
	}
	requireArtifacts(t, run, true)

	md := run.Metadata()
	if md.Status != string(StateCompleted) {
		t.Errorf("metadata status = %s", md.Status)
	}
	if md.ScriptName != "demo_clip" {
		t.Errorf("script name = %s", md.ScriptName)
	}
	if md.VoiceEngineUsed != voice.EngineElevenLabs {
		t.Errorf("voice engine = %s", md.VoiceEngineUsed)
	}
	if md.DurationSeconds != 2 {
		t.Errorf("duration = %v", md.DurationSeconds)
	}
	if len(md.Errors) != 0 {
		t.Errorf("unexpected errors: %+v", md.Errors)
	}
	for _, step := range []State{StateResolvingAssets, StateSynthesizingVoice, StateBuildingSubtitles, StateRendering} {
		if _, ok := md.StepTimings[string(step)]; !ok {
			t.Errorf("missing timing for %s", step)
		}
	}
}

func TestRunFailureStillFinalizes(t *testing.T) {
	p := newTestPipeline(t)
	p.newRenderer = func(config.Config, *slog.Logger) VideoRenderer {
		return renderFunc(func(context.Context, assets.BackgroundSet, string, string, render.Options, string) error {
			return render.ErrRenderFailed
		})
	}

	run, err := p.Run(context.Background(), "hello world", "bad render", Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if run == nil {
		t.Fatal("run must be returned even on failure")
	}
	if got := run.State(); got != StateFailed {
		t.Fatalf("state = %s, want %s", got, StateFailed)
	}
	requireArtifacts(t, run, false)

	md := run.Metadata()
	if len(md.Errors) != 1 || md.Errors[0].Kind != KindRenderFailed {
		t.Fatalf("errors = %+v, want one %s", md.Errors, KindRenderFailed)
	}
}

func TestRunDryRunSkipsRender(t *testing.T) {
	p := newTestPipeline(t)
	rendered := false
	p.newRenderer = func(config.Config, *slog.Logger) VideoRenderer {
		return renderFunc(func(context.Context, assets.BackgroundSet, string, string, render.Options, string) error {
			rendered = true
			return nil
		})
	}

	run, err := p.Run(context.Background(), "hello world", "dry", Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rendered {
		t.Error("renderer ran during dry run")
	}
	if got := run.State(); got != StateCompleted {
		t.Fatalf("state = %s, want %s", got, StateCompleted)
	}
	requireArtifacts(t, run, false)
	if _, err := os.Stat(run.SubtitlesPath()); err != nil {
		t.Errorf("dry run should still write subtitles: %v", err)
	}
}

func TestRunStepTimeoutReportedAsStepKind(t *testing.T) {
	p := newTestPipeline(t)
	p.newVoice = func(config.Config, Options, *slog.Logger) VoiceSynthesizer {
		return voiceFunc(func(ctx context.Context, text, outPath string) (voice.Result, error) {
			<-ctx.Done()
			return voice.Result{}, ctx.Err()
		})
	}

	run, err := p.Run(context.Background(), "hello world", "slow voice", Options{StepTimeout: 20 * time.Millisecond})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	md := run.Metadata()
	if len(md.Errors) != 1 {
		t.Fatalf("errors = %+v", md.Errors)
	}
	if md.Errors[0].Kind != KindVoiceSynthesisFailed {
		t.Errorf("kind = %s, want %s", md.Errors[0].Kind, KindVoiceSynthesisFailed)
	}
	if !strings.Contains(md.Errors[0].Message, "timed out") {
		t.Errorf("message = %q, want timeout mention", md.Errors[0].Message)
	}
	requireArtifacts(t, run, false)
}

func TestRunVoiceFallbackRecorded(t *testing.T) {
	p := newTestPipeline(t)
	p.newVoice = func(config.Config, Options, *slog.Logger) VoiceSynthesizer {
		return voiceFunc(func(ctx context.Context, text, outPath string) (voice.Result, error) {
			if err := os.WriteFile(outPath, []byte("RIFF"), 0o644); err != nil {
				return voice.Result{}, err
			}
			return voice.Result{
				Path:     outPath,
				Engine:   voice.EnginePiper,
				Warnings: []string{"elevenlabs synthesis failed: quota exceeded"},
			}, nil
		})
	}

	run, err := p.Run(context.Background(), "hello world", "fallback", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	md := run.Metadata()
	if md.Status != string(StateCompleted) {
		t.Fatalf("status = %s", md.Status)
	}
	if md.VoiceEngineUsed != voice.EnginePiper {
		t.Errorf("voice engine = %s, want %s", md.VoiceEngineUsed, voice.EnginePiper)
	}
	if len(md.Errors) != 1 || md.Errors[0].Kind != KindVoiceSynthesisFailed {
		t.Fatalf("errors = %+v, want one absorbed %s", md.Errors, KindVoiceSynthesisFailed)
	}
}

func TestRunPlaceholderVoiceMarksDeveloperMode(t *testing.T) {
	p := newTestPipeline(t)
	p.newVoice = func(_ config.Config, opts Options, _ *slog.Logger) VoiceSynthesizer {
		return voiceFunc(func(ctx context.Context, text, outPath string) (voice.Result, error) {
			if !opts.DeveloperModeEnabled() {
				return voice.Result{}, voice.ErrSynthesisFailed
			}
			if err := os.WriteFile(outPath, []byte("RIFF"), 0o644); err != nil {
				return voice.Result{}, err
			}
			return voice.Result{Path: outPath, Engine: voice.EnginePlaceholder, Placeholder: true}, nil
		})
	}

	run, err := p.Run(context.Background(), "hello world", "dev", Options{DeveloperMode: boolPtr(true)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	md := run.Metadata()
	if !md.DeveloperModeTriggered {
		t.Error("developer mode degradation not recorded")
	}
	if md.Status != string(StateCompleted) {
		t.Errorf("status = %s", md.Status)
	}
}

func TestRunSubtitleFallbackRecorded(t *testing.T) {
	p := newTestPipeline(t)
	p.newSubtitles = func(config.Config, Options, *slog.Logger) SubtitleBuilder {
		return subtitleFunc(func(context.Context, string, string, string) (subtitles.Track, error) {
			return testTrack(true), nil
		})
	}

	run, err := p.Run(context.Background(), "hello world", "fab", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	md := run.Metadata()
	if !md.SubtitleFallbackUsed {
		t.Error("subtitle fallback not recorded")
	}
	if md.Status != string(StateCompleted) {
		t.Errorf("status = %s", md.Status)
	}
}

func TestRunAssetUnavailableFails(t *testing.T) {
	p := newTestPipeline(t)
	p.newResolver = func(config.Config) BackgroundResolver {
		return resolverFunc(func(style string) (assets.BackgroundSet, error) {
			return assets.BackgroundSet{}, assets.ErrUnavailable
		})
	}

	run, err := p.Run(context.Background(), "hello world", "no assets", Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	md := run.Metadata()
	if md.Status != string(StateFailed) {
		t.Fatalf("status = %s", md.Status)
	}
	if len(md.Errors) != 1 || md.Errors[0].Kind != KindAssetUnavailable {
		t.Fatalf("errors = %+v", md.Errors)
	}
}

func TestRunRejectsEmptyScript(t *testing.T) {
	p := newTestPipeline(t)
	if _, err := p.Run(context.Background(), "   \n", "empty", Options{}); err == nil {
		t.Fatal("expected error for empty script")
	}
	entries, err := os.ReadDir(p.cfg.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("no run folder should be created, found %d entries", len(entries))
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateInitializing, StateResolvingAssets, true},
		{StateResolvingAssets, StateSynthesizingVoice, true},
		{StateResolvingAssets, StateFinalizing, true},
		{StateFinalizing, StateCompleted, true},
		{StateFinalizing, StateFailed, true},
		{StateCompleted, StateFailed, false},
		{StateInitializing, StateRendering, false},
		{StateRendering, StateResolvingAssets, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"demo clip", "demo_clip"},
		{"weird/../name!", "weird____name_"},
		{"  ", "session"},
		{"already_safe-1", "already_safe-1"},
	}
	for _, tc := range cases {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func boolPtr(v bool) *bool { return &v }

func TestMergedOptionsInheritConfigBooleans(t *testing.T) {
	cfg := config.Default()
	cfg.WatermarkEnabled = true
	cfg.DeveloperMode = true

	got := Options{}.merged(cfg)
	if !got.WatermarkEnabled() {
		t.Error("omitted watermark should inherit the enabled config default")
	}
	if !got.DeveloperModeEnabled() {
		t.Error("omitted developer mode should inherit the enabled config default")
	}

	got = Options{Watermark: boolPtr(false), DeveloperMode: boolPtr(false)}.merged(cfg)
	if got.WatermarkEnabled() || got.DeveloperModeEnabled() {
		t.Error("explicit false must not be overridden by config defaults")
	}
}

func TestOptionsStepTimeoutSecondsFromJSON(t *testing.T) {
	var opts Options
	if err := json.Unmarshal([]byte(`{"script":"x","stepTimeoutSeconds":30,"watermark":false}`), &opts); err != nil {
		t.Fatal(err)
	}
	merged := opts.merged(config.Default())
	if merged.StepTimeout != 30*time.Second {
		t.Errorf("step timeout = %v, want 30s", merged.StepTimeout)
	}
	if merged.WatermarkEnabled() {
		t.Error("watermark explicitly disabled in the request")
	}
}

func TestNewRunCollidingNamesGetDistinctDirs(t *testing.T) {
	root := t.TempDir()
	const runs = 8
	var wg sync.WaitGroup
	got := make([]*Run, runs)
	errs := make([]error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], errs[i] = newRun(root, "hello world", "demo clip", Options{})
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, runs)
	for i := 0; i < runs; i++ {
		if errs[i] != nil {
			t.Fatalf("newRun %d: %v", i, errs[i])
		}
		if seen[got[i].Dir] {
			t.Fatalf("directory %s allocated twice", got[i].Dir)
		}
		seen[got[i].Dir] = true
		if _, err := os.Stat(got[i].ScriptPath()); err != nil {
			t.Errorf("run %s is missing its script copy: %v", got[i].ID, err)
		}
	}
}

func TestStreamSubscribeAndSnapshot(t *testing.T) {
	stream := NewStream(nil)
	ch, cancel := stream.Subscribe()
	defer cancel()

	stream.Emit("rendering", StatusStarted, "")
	select {
	case event := <-ch:
		if event.Step != "rendering" || event.Status != StatusStarted {
			t.Errorf("event = %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	if got := len(stream.Snapshot()); got != 1 {
		t.Errorf("snapshot length = %d", got)
	}

	stream.Close()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Close")
	}
}

func TestSubscribeWithSnapshotNoDuplicateDelivery(t *testing.T) {
	stream := NewStream(nil)
	stream.Emit("synthesizing_voice", StatusStarted, "")

	history, ch, cancel := stream.SubscribeWithSnapshot()
	defer cancel()
	if len(history) != 1 || history[0].Status != StatusStarted {
		t.Fatalf("history = %+v, want exactly the started event", history)
	}

	stream.Emit("synthesizing_voice", StatusCompleted, "")
	select {
	case ev := <-ch:
		if ev.Status != StatusCompleted {
			t.Fatalf("channel delivered %+v; buffered history must not be replayed", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("event emitted after subscribing was not delivered")
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected extra event %+v", ev)
	default:
	}
}

func TestRegistryListNewestFirst(t *testing.T) {
	reg := NewRegistry()
	older := &Run{ID: "a", StartedAt: time.Now().Add(-time.Minute)}
	newer := &Run{ID: "b", StartedAt: time.Now()}
	reg.Add(older)
	reg.Add(newer)

	if _, ok := reg.Get("a"); !ok {
		t.Fatal("missing run a")
	}
	list := reg.List()
	if len(list) != 2 || list[0].ID != "b" {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestRunDirectoryBatch(t *testing.T) {
	p := newTestPipeline(t)
	dir := t.TempDir()
	for _, name := range []string{"one", "two", "three"} {
		if err := os.WriteFile(filepath.Join(dir, name+".txt"), []byte("script "+name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	reg := NewRegistry()
	if err := p.RunDirectory(context.Background(), dir, Options{DryRun: true}, reg); err != nil {
		t.Fatalf("RunDirectory: %v", err)
	}
	if got := len(reg.List()); got != 3 {
		t.Fatalf("registered runs = %d, want 3", got)
	}
	for _, run := range reg.List() {
		if run.State() != StateCompleted {
			t.Errorf("run %s state = %s", run.ID, run.State())
		}
	}
}
