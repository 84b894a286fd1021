package scriptgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const extractTimeout = 30 * time.Second

// Article is the extracted source material for a script.
type Article struct {
	Title string
	Text  string
	URL   string
}

// ExtractArticle pulls the readable body out of a web page.
func ExtractArticle(url string) (Article, error) {
	if strings.TrimSpace(url) == "" {
		return Article{}, fmt.Errorf("article URL is empty")
	}
	extracted, err := readability.FromURL(url, extractTimeout)
	if err != nil {
		return Article{}, fmt.Errorf("readability extraction failed: %w", err)
	}
	text := strings.TrimSpace(extracted.TextContent)
	if text == "" {
		return Article{}, fmt.Errorf("no readable text at %s", url)
	}
	return Article{Title: extracted.Title, Text: text, URL: url}, nil
}

// FromArticle extracts a page and condenses it into a narration script.
// Without a generator the raw text is clipped to narration length instead.
func FromArticle(ctx context.Context, gen *Generator, url string) (string, error) {
	article, err := ExtractArticle(url)
	if err != nil {
		return "", err
	}
	if gen == nil {
		return clipWords(article.Text, targetWords), nil
	}
	return gen.Condense(ctx, article.Text)
}
