package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const elevenLabsEndpoint = "https://api.elevenlabs.io/v1/text-to-speech"

// ElevenLabs calls the hosted text-to-speech API. It needs both an API key
// and a voice identifier; NewElevenLabs fails fast when either is missing so
// the adapter can fall back before making a network call.
type ElevenLabs struct {
	apiKey   string
	voiceID  string
	endpoint string
	client   *http.Client
}

// NewElevenLabs validates credentials and returns a ready client.
func NewElevenLabs(apiKey, voiceID string) (*ElevenLabs, error) {
	apiKey = strings.TrimSpace(apiKey)
	voiceID = strings.TrimSpace(voiceID)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: elevenlabs api key is not configured", ErrSynthesisFailed)
	}
	if voiceID == "" {
		return nil, fmt.Errorf("%w: elevenlabs voice id is not configured", ErrSynthesisFailed)
	}
	return &ElevenLabs{
		apiKey:   apiKey,
		voiceID:  voiceID,
		endpoint: elevenLabsEndpoint,
		client:   http.DefaultClient,
	}, nil
}

func (e *ElevenLabs) Name() string { return EngineElevenLabs }

// Synthesize posts the script text and streams the returned audio to outPath.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string, outPath string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("%w: marshal request: %v", ErrSynthesisFailed, err)
	}

	url := fmt.Sprintf("%s/%s", e.endpoint, e.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrSynthesisFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: elevenlabs api status %d: %s", ErrSynthesisFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrSynthesisFailed, outPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("%w: write audio: %v", ErrSynthesisFailed, err)
	}
	return nil
}
