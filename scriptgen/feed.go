package scriptgen

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedItem is one candidate article from an RSS/Atom feed.
type FeedItem struct {
	Title       string
	Link        string
	PublishedAt time.Time
}

// NewestFeedItem fetches feedURL and returns its most recent entry.
func NewestFeedItem(feedURL string) (FeedItem, error) {
	parser := gofeed.NewParser()
	feed, err := parser.ParseURL(feedURL)
	if err != nil {
		return FeedItem{}, fmt.Errorf("failed to fetch feed: %w", err)
	}
	return newestItem(feed)
}

func newestItem(feed *gofeed.Feed) (FeedItem, error) {
	if feed == nil || len(feed.Items) == 0 {
		return FeedItem{}, fmt.Errorf("feed has no items")
	}
	best := feed.Items[0]
	for _, item := range feed.Items[1:] {
		if publishedAt(item).After(publishedAt(best)) {
			best = item
		}
	}
	if best.Link == "" {
		return FeedItem{}, fmt.Errorf("newest feed item has no link")
	}
	return FeedItem{Title: best.Title, Link: best.Link, PublishedAt: publishedAt(best)}, nil
}

func publishedAt(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

// FromFeed turns the newest entry of an RSS feed into a narration script.
func FromFeed(ctx context.Context, gen *Generator, feedURL string) (script, title string, err error) {
	item, err := NewestFeedItem(feedURL)
	if err != nil {
		return "", "", err
	}
	script, err = FromArticle(ctx, gen, item.Link)
	if err != nil {
		return "", "", err
	}
	return script, item.Title, nil
}
