package subtitles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec. The spawned process is bound to
// the context so a step timeout reaps it.
type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()
	result := commandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// Transcriber invokes the whisper CLI to obtain word-level timestamps.
type Transcriber struct {
	whisperPath string
	model       string
	runner      commandRunner
}

// NewTranscriber builds a transcriber for the given whisper binary and model.
func NewTranscriber(whisperPath, model string) *Transcriber {
	if whisperPath == "" {
		whisperPath = "whisper"
	}
	if model == "" {
		model = "base"
	}
	return &Transcriber{whisperPath: whisperPath, model: model, runner: &execRunner{}}
}

// whisperOutput mirrors the JSON whisper writes with --output_format json.
type whisperOutput struct {
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
		Words []struct {
			Word  string  `json:"word"`
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		} `json:"words"`
	} `json:"segments"`
}

// Transcribe runs whisper over the audio file and returns aligned words.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) ([]Word, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("%w: cannot access audio %s: %v", ErrGenerationFailed, audioPath, err)
	}

	outDir, err := os.MkdirTemp("", "autocontent-whisper-*")
	if err != nil {
		return nil, fmt.Errorf("%w: temp dir: %v", ErrGenerationFailed, err)
	}
	defer os.RemoveAll(outDir)

	args := []string{
		audioPath,
		"--model", t.model,
		"--word_timestamps", "True",
		"--output_format", "json",
		"--output_dir", outDir,
	}
	res, runErr := t.runner.Run(ctx, t.whisperPath, args...)
	if runErr != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: whisper: %v", ErrGenerationFailed, ctx.Err())
		}
		return nil, fmt.Errorf("%w: whisper exit %d: %s", ErrGenerationFailed, res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outDir, base+".json")
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("%w: whisper completed but %s is missing: %v", ErrGenerationFailed, jsonPath, err)
	}
	return parseWhisperJSON(data)
}

func parseWhisperJSON(data []byte) ([]Word, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: parse whisper output: %v", ErrGenerationFailed, err)
	}

	var words []Word
	for _, seg := range out.Segments {
		if len(seg.Words) == 0 {
			// Segment without word alignment: carry the whole line as one word.
			text := strings.TrimSpace(seg.Text)
			if text != "" {
				words = append(words, Word{Text: text, Start: seg.Start, End: seg.End})
			}
			continue
		}
		for _, w := range seg.Words {
			text := strings.TrimSpace(w.Word)
			if text == "" {
				continue
			}
			words = append(words, Word{Text: text, Start: w.Start, End: w.End})
		}
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: transcription produced no words", ErrGenerationFailed)
	}
	return words, nil
}
