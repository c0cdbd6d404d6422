package story

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// ClusterOptions holds the pairing thresholds.
type ClusterOptions struct {
	// Window is the largest publish-time gap two items may have and still
	// pair on title similarity.
	Window time.Duration
	// SameFamilyJaccard is the title similarity needed when both items come
	// from one publisher family.
	SameFamilyJaccard float64
	// CrossFamilyJaccard is the title similarity needed otherwise.
	CrossFamilyJaccard float64
}

// DefaultClusterOptions returns the stock thresholds.
func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{
		Window:             12 * time.Hour,
		SameFamilyJaccard:  0.35,
		CrossFamilyJaccard: 0.60,
	}
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true,
	"from": true, "this": true, "that": true,
}

// Tokenize splits a title into comparison tokens. Anything other than Latin
// or Arabic letters, digits and whitespace acts as a separator; tokens of two
// runes or fewer and stop words are dropped.
func Tokenize(title string) []string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		switch {
		case r == '\u0640', isArabicMark(r):
			// tatweel and harakat vanish without splitting the word
		case unicode.IsDigit(r), unicode.IsSpace(r):
			b.WriteRune(r)
		case unicode.IsLetter(r) && (unicode.Is(unicode.Latin, r) || unicode.Is(unicode.Arabic, r)):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) <= 2 || stopWords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// isArabicMark reports whether r is a combining mark from the Arabic
// blocks (harakat, tanween, Quranic marks). Most of these carry the
// Inherited script, so unicode.Arabic alone misses them.
func isArabicMark(r rune) bool {
	return unicode.Is(unicode.Mn, r) && r >= 0x0610 && r <= 0x08FF
}

func tokenSet(title string) map[string]struct{} {
	tokens := Tokenize(title)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union <= 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// TitleJaccard is the Jaccard similarity of two titles' token sets.
func TitleJaccard(a, b string) float64 {
	return Jaccard(tokenSet(a), tokenSet(b))
}

// clusterEntry caches the derived values CanPair needs so each item is
// tokenized once per run.
type clusterEntry struct {
	item   FeedItem
	tokens map[string]struct{}
	family string
}

func newClusterEntry(item FeedItem) clusterEntry {
	return clusterEntry{
		item:   item,
		tokens: tokenSet(item.Title),
		family: Family(item.Host),
	}
}

// CanPair reports whether two items may describe the same event.
func CanPair(a, b FeedItem, opts ClusterOptions) bool {
	return canPair(newClusterEntry(a), newClusterEntry(b), opts)
}

func canPair(a, b clusterEntry, opts ClusterOptions) bool {
	if a.item.URL != "" && a.item.URL == b.item.URL {
		return true
	}

	gap := a.item.PublishedAt.Sub(b.item.PublishedAt)
	if gap < 0 {
		gap = -gap
	}
	if gap > opts.Window {
		return false
	}

	sim := Jaccard(a.tokens, b.tokens)
	if a.family != "" && a.family == b.family && sim >= opts.SameFamilyJaccard {
		return true
	}
	return sim >= opts.CrossFamilyJaccard
}

// ClusterItems groups items greedily: each item joins the first existing
// cluster holding any member it can pair with, or starts a new cluster.
// Clusters are never merged or split, so the partition depends on input
// order; the same order always yields the same partition.
func ClusterItems(items []FeedItem, opts ClusterOptions) []Cluster {
	var (
		clusters []Cluster
		members  [][]clusterEntry
	)

	for _, item := range items {
		entry := newClusterEntry(item)
		placed := false
		for ci := range members {
			if !matchesAny(members[ci], entry, opts) {
				continue
			}
			members[ci] = append(members[ci], entry)
			clusters[ci].Items = append(clusters[ci].Items, item)
			placed = true
			break
		}
		if !placed {
			members = append(members, []clusterEntry{entry})
			clusters = append(clusters, Cluster{Items: []FeedItem{item}})
		}
	}

	return clusters
}

func matchesAny(members []clusterEntry, candidate clusterEntry, opts ClusterOptions) bool {
	for _, m := range members {
		if canPair(m, candidate, opts) {
			return true
		}
	}
	return false
}
