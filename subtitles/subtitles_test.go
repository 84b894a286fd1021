package subtitles

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var sampleWords = []Word{
	{Text: "Hello", Start: 0.0, End: 0.4},
	{Text: "world.", Start: 0.4, End: 0.9},
	{Text: "This", Start: 1.0, End: 1.3},
	{Text: "is", Start: 1.3, End: 1.5},
	{Text: "a", Start: 1.5, End: 1.6},
	{Text: "test", Start: 1.6, End: 2.0},
}

func TestGroupIntoUnitsSplitsOnPunctuationAndLimit(t *testing.T) {
	units := groupIntoUnits(sampleWords, 3)
	if len(units) != 3 {
		t.Fatalf("got %d units; want 3", len(units))
	}
	if len(units[0].Words) != 2 || units[0].Words[1].Text != "world." {
		t.Fatalf("first unit = %+v; want split after 'world.'", units[0])
	}
	if len(units[1].Words) != 3 {
		t.Fatalf("second unit has %d words; want 3 (max words per line)", len(units[1].Words))
	}
}

func TestGroupIntoUnitsKeepsdecimalNumbersTogether(t *testing.T) {
	words := []Word{
		{Text: "version", Start: 0, End: 0.3},
		{Text: "4.5", Start: 0.3, End: 0.6},
		{Text: "shipped.", Start: 0.6, End: 1.0},
	}
	units := groupIntoUnits(words, 10)
	if len(units) != 1 {
		t.Fatalf("got %d units; want 1 (decimal period must not end the sentence)", len(units))
	}
}

func TestParseWhisperJSON(t *testing.T) {
	data := []byte(`{"segments":[{"start":0,"end":1,"text":" hello world","words":[{"word":" hello","start":0,"end":0.5},{"word":" world","start":0.5,"end":1.0}]}]}`)
	words, err := parseWhisperJSON(data)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(words) != 2 || words[0].Text != "hello" || words[1].Start != 0.5 {
		t.Fatalf("words = %+v", words)
	}
}

func TestParseWhisperJSONWithoutWordAlignment(t *testing.T) {
	data := []byte(`{"segments":[{"start":0,"end":2,"text":" whole line"}]}`)
	words, err := parseWhisperJSON(data)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(words) != 1 || words[0].Text != "whole line" {
		t.Fatalf("words = %+v", words)
	}
}

func TestParseWhisperJSONEmpty(t *testing.T) {
	if _, err := parseWhisperJSON([]byte(`{"segments":[]}`)); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("err = %v; want ErrGenerationFailed", err)
	}
}

func readASS(t *testing.T, track Track) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "subtitles.ass")
	if err := WriteASS(track, 1080, 1920, out); err != nil {
		t.Fatalf("WriteASS error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read ass: %v", err)
	}
	return string(data)
}

func TestWriteASSKaraoke(t *testing.T) {
	track := Track{Style: StyleKaraoke, Units: groupIntoUnits(sampleWords, 6)}
	content := readASS(t, track)
	if !strings.Contains(content, "{\\k") {
		t.Fatal("karaoke track is missing \\k override tags")
	}
	if !strings.Contains(content, "PlayResX: 1080") || !strings.Contains(content, "PlayResY: 1920") {
		t.Fatal("header is missing play resolution")
	}
}

func TestWriteASSProgressiveRevealsCumulatively(t *testing.T) {
	track := Track{Style: StyleProgressive, Units: []Unit{{
		Words: sampleWords[:2],
		Start: 0.0,
		End:   0.9,
	}}}
	content := readASS(t, track)
	lines := strings.Split(content, "\n")
	var dialogues []string
	for _, l := range lines {
		if strings.HasPrefix(l, "Dialogue:") {
			dialogues = append(dialogues, l)
		}
	}
	if len(dialogues) != 2 {
		t.Fatalf("got %d dialogues; want one per word", len(dialogues))
	}
	if !strings.HasSuffix(dialogues[0], "Hello") {
		t.Fatalf("first reveal = %q; want just the first word", dialogues[0])
	}
	if !strings.HasSuffix(dialogues[1], "Hello world.") {
		t.Fatalf("second reveal = %q; want both words", dialogues[1])
	}
}

func TestWriteASSSimpleHasNoOverrides(t *testing.T) {
	track := Track{Style: StyleSimple, Units: groupIntoUnits(sampleWords, 6)}
	content := readASS(t, track)
	if strings.Contains(content, "{\\") {
		t.Fatal("simple style must not carry override tags")
	}
}

func TestFormatASSTime(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0:00:00.00"},
		{61.25, "0:01:01.25"},
		{3601.5, "1:00:01.50"},
		{-1, "0:00:00.00"},
	}
	for _, c := range cases {
		if got := formatASSTime(c.in); got != c.want {
			t.Errorf("formatASSTime(%v) = %q; want %q", c.in, got, c.want)
		}
	}
}

func TestFabricateTrackUniformTiming(t *testing.T) {
	track := FabricateTrack("Hello brave new world.", StyleSimple, 6)
	if !track.Fallback {
		t.Fatal("fabricated track must be marked as fallback")
	}
	if track.WordCount() != 4 {
		t.Fatalf("word count = %d; want 4", track.WordCount())
	}
	if track.Duration() != 4*fallbackSecondsPerWord {
		t.Fatalf("duration = %v; want uniform timing", track.Duration())
	}
}

type fakeRunner struct {
	err     error
	onRun   func(outDir string)
	lastCmd string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (commandResult, error) {
	f.lastCmd = name
	if f.err != nil {
		return commandResult{ExitCode: 1, Stderr: "boom"}, f.err
	}
	// Locate --output_dir and drop a whisper-style JSON next to it.
	for i, a := range args {
		if a == "--output_dir" && i+1 < len(args) {
			f.onRun(args[i+1])
		}
	}
	return commandResult{}, nil
}

func TestBuilderTranscribesAndGroups(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "voice.wav")
	if err := os.WriteFile(audio, []byte("wav"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTranscriber("whisper", "base")
	tr.runner = &fakeRunner{onRun: func(outDir string) {
		payload := `{"segments":[{"start":0,"end":1,"text":"hi","words":[{"word":"hi","start":0,"end":1}]}]}`
		if err := os.WriteFile(filepath.Join(outDir, "voice.json"), []byte(payload), 0o644); err != nil {
			t.Fatal(err)
		}
	}}

	b := NewBuilder(tr, 6, false, nil)
	track, err := b.Build(context.Background(), audio, "hi", StyleKaraoke)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if track.Fallback || track.WordCount() != 1 {
		t.Fatalf("track = %+v", track)
	}
}

func TestBuilderDeveloperModeFabricates(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "voice.wav")
	if err := os.WriteFile(audio, []byte("wav"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTranscriber("whisper", "base")
	tr.runner = &fakeRunner{err: fmt.Errorf("whisper not installed")}

	b := NewBuilder(tr, 6, true, nil)
	track, err := b.Build(context.Background(), audio, "Hello world again", StyleSimple)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if !track.Fallback || track.WordCount() != 3 {
		t.Fatalf("track = %+v; want fabricated 3-word track", track)
	}
}

func TestBuilderFailsWithoutDeveloperMode(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "voice.wav")
	if err := os.WriteFile(audio, []byte("wav"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTranscriber("whisper", "base")
	tr.runner = &fakeRunner{err: fmt.Errorf("whisper not installed")}

	b := NewBuilder(tr, 6, false, nil)
	if _, err := b.Build(context.Background(), audio, "text", StyleSimple); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("err = %v; want ErrGenerationFailed", err)
	}
}
