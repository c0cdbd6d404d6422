package story

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var (
	reCDATA = regexp.MustCompile(`<!\[CDATA\[([\s\S]*?)\]\]>`)
	reTag   = regexp.MustCompile(`</?[^>]+>`)
	// reEscapedTag only matches tag-like text that appears after entity
	// decoding (e.g. "&lt;p&gt;"), so a bare "<" in a headline survives.
	reEscapedTag = regexp.MustCompile(`</?[a-zA-Z][^<>]*>`)
	reSpace      = regexp.MustCompile(`\s+`)
)

// dateLayouts are tried in order when parsing feed timestamps.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04 -0700",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 MST",
}

// CleanText removes CDATA wrappers and markup, decodes character entities
// and collapses whitespace.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = reCDATA.ReplaceAllString(s, "$1")
	s = reTag.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = reEscapedTag.ReplaceAllString(s, " ")
	s = reSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ParseTimestamp parses a feed date. Missing or unparseable values resolve
// to now so no item leaves the normalizer without a timestamp.
func ParseTimestamp(raw string, now time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.UTC()
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return now.UTC()
}

// HostOf returns the lower-cased hostname of rawURL without a leading
// "www.", or "" when the URL cannot be parsed.
func HostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// NormalizeImage keeps absolute http(s) image URLs and replaces anything
// else with the category placeholder.
func NormalizeImage(raw string, c Category) string {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return PlaceholderImage(c)
}

// Normalizer turns raw items into FeedItems.
type Normalizer struct {
	// Now supplies the ingestion time used for missing timestamps.
	Now func() time.Time
}

// NewNormalizer returns a Normalizer using the wall clock.
func NewNormalizer() *Normalizer {
	return &Normalizer{Now: time.Now}
}

// Normalize cleans one raw item. The second return value is false when the
// item has no title or link after cleaning and must be dropped.
func (n *Normalizer) Normalize(raw RawItem) (FeedItem, bool) {
	title := CleanText(raw.Title)
	link := CleanText(raw.Link)
	if title == "" || link == "" {
		return FeedItem{}, false
	}

	description := CleanText(raw.Description)
	category := InferCategory(title, description)

	return FeedItem{
		Lang:        raw.Lang,
		SourceName:  strings.TrimSpace(raw.SourceName),
		Title:       title,
		Description: description,
		URL:         link,
		Image:       NormalizeImage(raw.ImageURL, category),
		PublishedAt: ParseTimestamp(raw.PubDate, n.now()),
		Category:    category,
		Host:        HostOf(link),
	}, true
}

// NormalizeAll normalizes raws in order, dropping rejected items.
func (n *Normalizer) NormalizeAll(raws []RawItem) []FeedItem {
	items := make([]FeedItem, 0, len(raws))
	for _, raw := range raws {
		if item, ok := n.Normalize(raw); ok {
			items = append(items, item)
		}
	}
	return items
}

func (n *Normalizer) now() time.Time {
	if n == nil || n.Now == nil {
		return time.Now()
	}
	return n.Now()
}
