package story

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// CanonicalOptions controls story assembly from a cluster.
type CanonicalOptions struct {
	// SummaryWords caps each side's summary; longer text is cut and ends
	// with an ellipsis.
	SummaryWords int
}

// DefaultCanonicalOptions returns the stock summary budget.
func DefaultCanonicalOptions() CanonicalOptions {
	return CanonicalOptions{SummaryWords: 70}
}

// PickBest returns the preferred item of the given language: lowest
// publisher priority rank first, newest first among equal ranks.
func PickBest(items []FeedItem, lang Lang) (FeedItem, bool) {
	subset := make([]FeedItem, 0, len(items))
	for _, it := range items {
		if it.Lang == lang {
			subset = append(subset, it)
		}
	}
	if len(subset) == 0 {
		return FeedItem{}, false
	}

	sort.SliceStable(subset, func(i, j int) bool {
		ri := PriorityRank(Family(subset[i].Host), lang)
		rj := PriorityRank(Family(subset[j].Host), lang)
		if ri != rj {
			return ri < rj
		}
		return subset[i].PublishedAt.After(subset[j].PublishedAt)
	})
	return subset[0], true
}

// Canonicalize builds one story from a cluster. It returns false when the
// cluster holds no EN or AR item.
func Canonicalize(c Cluster, opts CanonicalOptions) (Story, bool) {
	en, hasEN := PickBest(c.Items, EN)
	ar, hasAR := PickBest(c.Items, AR)
	if !hasEN && !hasAR {
		return Story{}, false
	}

	base := ar
	if hasEN {
		base = en
	}

	category := base.Category
	if category == "" {
		category = InferCategory(base.Title, base.Description)
	}

	published := base.PublishedAt
	if hasEN && hasAR && ar.PublishedAt.After(en.PublishedAt) {
		published = ar.PublishedAt
	}

	s := Story{
		ID:          storyID(base),
		Category:    category,
		PublishedAt: published,
		ImageURL:    clusterImage(c, base, category),
	}
	if hasEN {
		s.TitleEN = en.Title
		s.SummaryEN = TruncateWords(en.Description, opts.SummaryWords)
		s.SourceEN = en.SourceName
		s.URLEN = en.URL
	}
	if hasAR {
		s.TitleAR = ar.Title
		s.SummaryAR = TruncateWords(ar.Description, opts.SummaryWords)
		s.SourceAR = ar.SourceName
		s.URLAR = ar.URL
	}
	return s, true
}

// CanonicalizeAll returns one story per usable cluster, in cluster order.
func CanonicalizeAll(clusters []Cluster, opts CanonicalOptions) []Story {
	stories := make([]Story, 0, len(clusters))
	for _, c := range clusters {
		if s, ok := Canonicalize(c, opts); ok {
			stories = append(stories, s)
		}
	}
	return stories
}

// TruncateWords keeps at most n words of s, appending "…" when cut.
// n <= 0 disables the cap.
func TruncateWords(s string, n int) string {
	if n <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ") + "…"
}

// clusterImage prefers the first real image any member carries, then the
// base item's image, then the category placeholder.
func clusterImage(c Cluster, base FeedItem, category Category) string {
	for _, it := range c.Items {
		if it.Image != "" && !IsPlaceholder(it.Image) {
			return it.Image
		}
	}
	if base.Image != "" {
		return base.Image
	}
	return PlaceholderImage(category)
}

func storyID(base FeedItem) string {
	key := base.SourceName + "|" + base.Title + "|" + base.PublishedAt.UTC().Format(time.RFC3339)
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}
