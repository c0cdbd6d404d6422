package story

import (
	"sort"
	"time"
)

// AssembleOptions bounds the final story list.
type AssembleOptions struct {
	MaxStories int
}

// DefaultAssembleOptions returns the stock list cap.
func DefaultAssembleOptions() AssembleOptions {
	return AssembleOptions{MaxStories: 150}
}

// DedupKey identifies a story for deduplication: the EN link, then the AR
// link, then the cluster-derived ID.
func DedupKey(s Story) string {
	switch {
	case s.URLEN != "":
		return s.URLEN
	case s.URLAR != "":
		return s.URLAR
	}
	return "id:" + s.ID
}

// SortByRecency sorts stories newest first. Equal timestamps keep their
// relative order.
func SortByRecency(stories []Story) {
	sort.SliceStable(stories, func(i, j int) bool {
		return stories[i].PublishedAt.After(stories[j].PublishedAt)
	})
}

// Dedupe drops stories whose DedupKey was already seen. The first
// occurrence wins and order is kept.
func Dedupe(stories []Story) []Story {
	seen := make(map[string]bool, len(stories))
	out := make([]Story, 0, len(stories))
	for _, s := range stories {
		key := DedupKey(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// CountTranslated returns how many stories carry at least one side filled
// by translation.
func CountTranslated(stories []Story) int {
	n := 0
	for _, s := range stories {
		if s.Translated(AR) || s.Translated(EN) {
			n++
		}
	}
	return n
}

// Assemble dedupes stories (first occurrence wins), sorts them newest first
// and caps the list. The second return value is false when nothing survived
// and the list holds only the placeholder story.
func Assemble(stories []Story, opts AssembleOptions, now time.Time) ([]Story, bool) {
	out := Dedupe(stories)
	SortByRecency(out)
	if opts.MaxStories > 0 && len(out) > opts.MaxStories {
		out = out[:opts.MaxStories]
	}

	if len(out) == 0 {
		return []Story{Placeholder(now)}, false
	}
	return out, true
}

// Placeholder is the fixed bilingual story shown when a run yields nothing.
func Placeholder(now time.Time) Story {
	return Story{
		ID:          "demo",
		Category:    CategoryUAE,
		PublishedAt: now.UTC(),
		ImageURL:    DefaultPlaceholder,

		TitleEN:   "UAE Cabinet announces new traffic safety measures",
		SummaryEN: "Authorities outlined late‑night heavy vehicle restrictions to ease congestion and improve safety.",
		SourceEN:  "Example",
		URLEN:     "https://example.com/uae-news",

		TitleAR:   "مجلس الوزراء الإماراتي يعلن إجراءات جديدة للسلامة المرورية",
		SummaryAR: "حددت السلطات قيودًا على حركة المركبات الثقيلة في ساعات الليل المتأخرة للحد من الازدحام وتعزيز السلامة.",
		SourceAR:  "Example",
		URLAR:     "https://example.com/uae-news",
	}
}
