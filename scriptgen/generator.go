// Package scriptgen produces pipeline-ready scripts from a topic prompt, an
// article URL, or an RSS feed.
package scriptgen

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// ErrNoProvider reports that no LLM credentials are configured.
var ErrNoProvider = errors.New("no script provider configured")

const (
	defaultChatModel = "command-r-08-2024"
	chatTimeout      = 60 * time.Second
	targetWords      = 160
)

// Generator turns topics and source material into short narration scripts.
type Generator struct {
	client *cohereclient.Client
	model  string
}

// NewGenerator builds a generator from COHERE_API_KEY. Returns ErrNoProvider
// when no key is set so callers can degrade to manual scripts.
func NewGenerator(model string) (*Generator, error) {
	key := strings.TrimSpace(os.Getenv("COHERE_API_KEY"))
	if key == "" {
		return nil, ErrNoProvider
	}
	if model == "" {
		model = defaultChatModel
	}
	// Force HTTP/1.1; the Cohere endpoint intermittently resets HTTP/2 streams.
	httpClient := &http.Client{
		Timeout: chatTimeout,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(key),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &Generator{client: client, model: model}, nil
}

// StoryRequest shapes a generated narration.
type StoryRequest struct {
	Topic string
	Genre string
	Tone  string
}

// FromTopic asks the model for a short vertical-video narration on topic.
func (g *Generator) FromTopic(ctx context.Context, topic string) (string, error) {
	return g.FromStory(ctx, StoryRequest{Topic: topic})
}

// FromStory asks the model for a narration with optional genre and tone.
func (g *Generator) FromStory(ctx context.Context, req StoryRequest) (string, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return "", fmt.Errorf("topic is empty")
	}
	return g.chat(ctx, storyPrompt(req))
}

// Condense rewrites extracted article text into narration form. Long inputs
// are truncated first so the prompt stays within model limits.
func (g *Generator) Condense(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("article text is empty")
	}
	return g.chat(ctx, condensePrompt(clipWords(text, 1200)))
}

func (g *Generator) chat(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()

	resp, err := g.client.Chat(ctx, &cohere.ChatRequest{
		Message: prompt,
		Model:   &g.model,
	})
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", errors.New("cohere chat returned empty response")
	}
	return CleanScript(resp.Text), nil
}

func storyPrompt(req StoryRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a spoken narration script of roughly %d words for a short vertical video about: %s.", targetWords, req.Topic)
	if req.Genre != "" {
		fmt.Fprintf(&sb, " Genre: %s.", req.Genre)
	}
	if req.Tone != "" {
		fmt.Fprintf(&sb, " Tone: %s.", req.Tone)
	}
	sb.WriteString(" Plain sentences only. No headings, no hashtags, no stage directions, no emoji.")
	return sb.String()
}

func condensePrompt(text string) string {
	return fmt.Sprintf(
		"Rewrite the following article as a spoken narration script of roughly %d words for a short vertical video. "+
			"Plain sentences only. No headings, no hashtags, no stage directions, no emoji.\n\n%s",
		targetWords, text)
}

// CleanScript strips markdown artifacts the model sometimes emits so the
// result feeds straight into synthesis.
func CleanScript(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "#")
		line = strings.ReplaceAll(line, "*", "")
		line = strings.ReplaceAll(line, "_", "")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, " ")
}

// clipWords truncates text to at most n whitespace-separated words.
func clipWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ")
}
