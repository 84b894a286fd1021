package voice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const defaultModelBaseURL = "https://huggingface.co/rhasspy/piper-voices/resolve/main/models"

// Piper runs the local piper text-to-speech binary. Voice models are fetched
// on first use into a process-wide cache keyed by model name; the download is
// guarded by a file lock so concurrent runs never write the same model twice.
type Piper struct {
	binPath   string
	modelName string
	cacheDir  string
	baseURL   string
	client    *http.Client
}

// NewPiper returns a local engine for the named voice model.
func NewPiper(binPath, modelName, cacheDir string) *Piper {
	if binPath == "" {
		binPath = "piper"
	}
	return &Piper{
		binPath:   binPath,
		modelName: modelName,
		cacheDir:  cacheDir,
		baseURL:   defaultModelBaseURL,
		client:    &http.Client{Timeout: 10 * time.Minute},
	}
}

func (p *Piper) Name() string { return EnginePiper }

// Synthesize pipes text through piper, writing a WAV file at outPath.
// The spawned process dies with the context.
func (p *Piper) Synthesize(ctx context.Context, text string, outPath string) error {
	modelPath, err := p.ensureModel(ctx)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, p.binPath, "--model", modelPath, "--output_file", outPath)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: piper: %v", ErrSynthesisFailed, ctx.Err())
		}
		return fmt.Errorf("%w: piper: %v: %s", ErrSynthesisFailed, err, strings.TrimSpace(stderr.String()))
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("%w: piper completed but %s is missing", ErrSynthesisFailed, outPath)
	}
	return nil
}

// ensureModel returns the cached model path, downloading it first if needed.
// At most one process downloads a given cache at a time.
func (p *Piper) ensureModel(ctx context.Context) (string, error) {
	if strings.TrimSpace(p.modelName) == "" {
		return "", fmt.Errorf("%w: local voice model name is not configured", ErrSynthesisFailed)
	}
	modelPath := filepath.Join(p.cacheDir, p.modelName+".onnx")
	configPath := modelPath + ".json"
	if fileExists(modelPath) && fileExists(configPath) {
		return modelPath, nil
	}

	if err := os.MkdirAll(p.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create model cache: %v", ErrSynthesisFailed, err)
	}

	lock := flock.New(filepath.Join(p.cacheDir, ".download.lock"))
	locked, err := lock.TryLockContext(ctx, 200*time.Millisecond)
	if err != nil {
		return "", fmt.Errorf("%w: acquire model download lock: %v", ErrSynthesisFailed, err)
	}
	if !locked {
		return "", fmt.Errorf("%w: model download lock unavailable", ErrSynthesisFailed)
	}
	defer func() { _ = lock.Unlock() }()

	// Another run may have finished the download while we waited on the lock.
	if fileExists(modelPath) && fileExists(configPath) {
		return modelPath, nil
	}

	for _, target := range []string{modelPath, configPath} {
		url := p.baseURL + "/" + filepath.Base(target)
		if err := p.download(ctx, url, target); err != nil {
			return "", err
		}
	}
	return modelPath, nil
}

// download fetches url into path via a temp file so a partial fetch never
// looks like a complete model.
func (p *Piper) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build model request: %v", ErrSynthesisFailed, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: download %s: %v", ErrSynthesisFailed, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: download %s: status %d", ErrSynthesisFailed, url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(p.cacheDir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp model file: %v", ErrSynthesisFailed, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write model: %v", ErrSynthesisFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close model file: %v", ErrSynthesisFailed, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: install model: %v", ErrSynthesisFailed, err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
