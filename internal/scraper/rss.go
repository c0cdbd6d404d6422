package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/shiftnews/shift/internal/config"
	"github.com/shiftnews/shift/internal/story"
)

const defaultUserAgent = "ShiftNewsBot/1.0"

// FeedSource reads one RSS or Atom feed.
type FeedSource struct {
	feed   config.Feed
	lang   story.Lang
	parser *gofeed.Parser
}

// NewFeedSource creates a source for feed. An empty userAgent uses the
// default bot agent.
func NewFeedSource(feed config.Feed, userAgent string, client *http.Client) (*FeedSource, error) {
	lang, ok := story.ParseLang(feed.Lang)
	if !ok {
		return nil, fmt.Errorf("rss: feed %s: unknown lang %q", feed.Name, feed.Lang)
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	if client != nil {
		parser.Client = client
	}
	return &FeedSource{feed: feed, lang: lang, parser: parser}, nil
}

// FeedSources builds one source per configured feed, skipping invalid ones.
func FeedSources(feeds []config.Feed, userAgent string, client *http.Client) []Source {
	sources := make([]Source, 0, len(feeds))
	for _, f := range feeds {
		src, err := NewFeedSource(f, userAgent, client)
		if err != nil {
			continue
		}
		sources = append(sources, src)
	}
	return sources
}

// Name implements Source.
func (s *FeedSource) Name() string {
	return s.feed.Name
}

// Fetch downloads and parses the feed.
func (s *FeedSource) Fetch(ctx context.Context) ([]story.RawItem, error) {
	feed, err := s.parser.ParseURLWithContext(s.feed.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("rss: fetch %s: %w", s.feed.URL, err)
	}

	items := make([]story.RawItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		desc := it.Description
		if desc == "" {
			desc = it.Content
		}
		items = append(items, story.RawItem{
			Title:       it.Title,
			Description: desc,
			Link:        itemLink(it),
			PubDate:     itemDate(it),
			ImageURL:    itemImage(it),
			SourceName:  s.feed.Name,
			Lang:        s.lang,
		})
	}
	return items, nil
}

func itemLink(it *gofeed.Item) string {
	if it.Link != "" {
		return it.Link
	}
	for _, l := range it.Links {
		if l != "" {
			return l
		}
	}
	if strings.HasPrefix(it.GUID, "http") {
		return it.GUID
	}
	return ""
}

// itemDate prefers gofeed's parsed timestamp, which understands more feed
// date dialects, and falls back to the raw string.
func itemDate(it *gofeed.Item) string {
	switch {
	case it.PublishedParsed != nil:
		return it.PublishedParsed.UTC().Format(time.RFC3339)
	case it.UpdatedParsed != nil:
		return it.UpdatedParsed.UTC().Format(time.RFC3339)
	case it.Published != "":
		return it.Published
	}
	return it.Updated
}

// itemImage tries, in order: the item image, image enclosures,
// media:content / media:thumbnail, then the first <img> in the description
// or content HTML.
func itemImage(it *gofeed.Item) string {
	if it.Image != nil && it.Image.URL != "" {
		return strings.TrimSpace(it.Image.URL)
	}

	for _, enc := range it.Enclosures {
		if enc != nil && enc.URL != "" && (enc.Type == "" || strings.HasPrefix(enc.Type, "image/")) {
			return strings.TrimSpace(enc.URL)
		}
	}

	if media, ok := it.Extensions["media"]; ok {
		for _, name := range []string{"content", "thumbnail"} {
			for _, ext := range media[name] {
				if u := ext.Attrs["url"]; u != "" {
					if t := ext.Attrs["type"]; t == "" || strings.HasPrefix(t, "image/") {
						return strings.TrimSpace(u)
					}
				}
			}
			// media:group wraps media:content in some feeds.
			for _, group := range media["group"] {
				for _, ext := range group.Children[name] {
					if u := ext.Attrs["url"]; u != "" {
						return strings.TrimSpace(u)
					}
				}
			}
		}
	}

	if src := firstImgSrc(it.Description); src != "" {
		return src
	}
	return firstImgSrc(it.Content)
}

// firstImgSrc returns the src of the first <img> in an HTML fragment.
func firstImgSrc(fragment string) string {
	if !strings.Contains(fragment, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}
