package scriptgen

import (
	"strings"
	"testing"

	"github.com/mmcdole/gofeed"
)

func TestCleanScript(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Hello world.", "Hello world."},
		{"markdown", "# Title\n\n**Bold** and _italic_ text.", "Title Bold and italic text."},
		{"blank lines collapsed", "First line.\n\n\nSecond line.", "First line. Second line."},
		{"whitespace trimmed", "  padded  \n", "padded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanScript(tc.in); got != tc.want {
				t.Errorf("CleanScript(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestClipWords(t *testing.T) {
	in := "one two three four five"
	if got := clipWords(in, 3); got != "one two three" {
		t.Errorf("clipWords = %q", got)
	}
	if got := clipWords(in, 10); got != in {
		t.Errorf("clipWords should keep short input, got %q", got)
	}
}

func TestStoryPrompt(t *testing.T) {
	p := storyPrompt(StoryRequest{Topic: "deep sea creatures"})
	if !strings.Contains(p, "deep sea creatures") {
		t.Errorf("prompt missing topic: %q", p)
	}
	if strings.Contains(p, "Genre:") || strings.Contains(p, "Tone:") {
		t.Errorf("unset fields should be omitted: %q", p)
	}

	p = storyPrompt(StoryRequest{Topic: "a heist", Genre: "thriller", Tone: "tense"})
	if !strings.Contains(p, "Genre: thriller.") || !strings.Contains(p, "Tone: tense.") {
		t.Errorf("prompt missing genre or tone: %q", p)
	}
}

const feedXML = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Example</title>
    <item>
      <title>Older</title>
      <link>https://example.com/older</link>
      <pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Newest</title>
      <link>https://example.com/newest</link>
      <pubDate>Tue, 03 Jun 2025 10:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func TestNewestItemPicksLatest(t *testing.T) {
	feed, err := gofeed.NewParser().ParseString(feedXML)
	if err != nil {
		t.Fatal(err)
	}
	item, err := newestItem(feed)
	if err != nil {
		t.Fatal(err)
	}
	if item.Title != "Newest" || item.Link != "https://example.com/newest" {
		t.Errorf("picked %+v", item)
	}
}

func TestNewestItemEmptyFeed(t *testing.T) {
	if _, err := newestItem(&gofeed.Feed{}); err == nil {
		t.Fatal("expected error for empty feed")
	}
}

func TestNewGeneratorWithoutKey(t *testing.T) {
	t.Setenv("COHERE_API_KEY", "")
	if _, err := NewGenerator(""); err != ErrNoProvider {
		t.Fatalf("err = %v, want ErrNoProvider", err)
	}
}
