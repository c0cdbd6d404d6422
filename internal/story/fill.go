package story

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"unicode"
)

// Pair is one title/summary sent for translation.
type Pair struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Translation is one translated pair. Empty fields mean "no update".
type Translation struct {
	Title   string `json:"title,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Translator translates an ordered batch into target. The result is in
// input order and may be shorter than pairs; an error means nothing usable
// came back.
type Translator interface {
	Translate(ctx context.Context, target Lang, pairs []Pair) ([]Translation, error)
}

// IsArabic reports whether at least half of the letters in s are Arabic
// script.
func IsArabic(s string) bool {
	letters, arabic := 0, 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Arabic, r) {
			arabic++
		}
	}
	return letters > 0 && arabic*2 >= letters
}

// IsNative reports whether s holds real content written in lang.
func IsNative(s string, lang Lang) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if lang == AR {
		return IsArabic(s)
	}
	return !IsArabic(s)
}

// Field names one language-side field of a story.
type Field int

const (
	FieldTitle Field = iota
	FieldSummary
	FieldURL
	FieldSource
	FieldTranslated
)

// Patch is one sparse update produced by the filler.
type Patch struct {
	Index int
	Lang  Lang
	Field Field
	Value string
}

// ApplyPatches returns a copy of stories with patches applied. The input is
// not modified. Patches with an out-of-range index are ignored.
func ApplyPatches(stories []Story, patches []Patch) []Story {
	out := make([]Story, len(stories))
	copy(out, stories)
	for _, p := range patches {
		if p.Index < 0 || p.Index >= len(out) {
			continue
		}
		out[p.Index].apply(p)
	}
	return out
}

func (s *Story) apply(p Patch) {
	ar := p.Lang == AR
	switch p.Field {
	case FieldTitle:
		if ar {
			s.TitleAR = p.Value
		} else {
			s.TitleEN = p.Value
		}
	case FieldSummary:
		if ar {
			s.SummaryAR = p.Value
		} else {
			s.SummaryEN = p.Value
		}
	case FieldURL:
		if ar {
			s.URLAR = p.Value
		} else {
			s.URLEN = p.Value
		}
	case FieldSource:
		if ar {
			s.SourceAR = p.Value
		} else {
			s.SourceEN = p.Value
		}
	case FieldTranslated:
		if ar {
			s.TranslatedFromAR = true
		} else {
			s.TranslatedFromEN = true
		}
	}
}

// FillOptions bounds translation work per run.
type FillOptions struct {
	// BatchCap is the most stories translated per target language per run.
	BatchCap int
}

// DefaultFillOptions returns the stock batch cap.
func DefaultFillOptions() FillOptions {
	return FillOptions{BatchCap: 20}
}

// FillReport summarizes one Fill call.
type FillReport struct {
	NeedAR    int // stories missing a native AR side
	NeedEN    int
	SentAR    int // stories sent after the cap
	SentEN    int
	FilledAR  int // stories that received any AR field
	FilledEN  int
	ErrAR     error
	ErrEN     error
	Requested bool
	// Relabeled counts stories whose only side was moved to the language
	// its script belongs to.
	Relabeled int
}

// Filled returns the number of stories that received any translation.
func (r FillReport) Filled() int {
	return r.FilledAR + r.FilledEN
}

// Filler completes missing language sides through a Translator.
type Filler struct {
	translator Translator
	opts       FillOptions
}

// NewFiller creates a Filler. A nil translator makes Fill a no-op.
func NewFiller(t Translator, opts FillOptions) *Filler {
	return &Filler{translator: t, opts: opts}
}

// Fill returns a copy of stories with missing or non-native sides filled by
// translation. Native content is never overwritten. Both target languages
// are requested concurrently; they touch disjoint fields.
func (f *Filler) Fill(ctx context.Context, stories []Story) ([]Story, FillReport) {
	var report FillReport
	relabel := relabelPatches(stories)
	report.Relabeled = countStories(relabel)
	stories = ApplyPatches(stories, relabel)

	if f == nil || f.translator == nil || len(stories) == 0 {
		return stories, report
	}

	needAR := needingFill(stories, AR)
	needEN := needingFill(stories, EN)
	report.NeedAR, report.NeedEN = len(needAR), len(needEN)

	needAR = capBatch(needAR, f.opts.BatchCap)
	needEN = capBatch(needEN, f.opts.BatchCap)
	report.SentAR, report.SentEN = len(needAR), len(needEN)

	var (
		wg     sync.WaitGroup
		arResp []Translation
		enResp []Translation
	)
	if len(needAR) > 0 {
		report.Requested = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			arResp, report.ErrAR = f.request(ctx, stories, needAR, AR)
		}()
	}
	if len(needEN) > 0 {
		report.Requested = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			enResp, report.ErrEN = f.request(ctx, stories, needEN, EN)
		}()
	}
	wg.Wait()

	arPatches, filledAR := buildPatches(stories, needAR, arResp, AR)
	enPatches, filledEN := buildPatches(stories, needEN, enResp, EN)
	report.FilledAR, report.FilledEN = filledAR, filledEN

	return ApplyPatches(stories, append(arPatches, enPatches...)), report
}

func (f *Filler) request(ctx context.Context, stories []Story, idx []int, target Lang) ([]Translation, error) {
	from := target.Other()
	pairs := make([]Pair, len(idx))
	for k, i := range idx {
		pairs[k] = Pair{Title: stories[i].Title(from), Summary: stories[i].Summary(from)}
	}

	res, err := f.translator.Translate(ctx, target, pairs)
	if err != nil {
		slog.Warn("translation batch failed", "target", target, "size", len(pairs), "err", err)
		return nil, err
	}
	return res, nil
}

// relabelPatches moves a story's only side to the other language when its
// title is written in that language's script, so a mislabeled Arabic item
// in the EN fields becomes the AR side and can be translated to English.
func relabelPatches(stories []Story) []Patch {
	var patches []Patch
	for i, s := range stories {
		for _, l := range []Lang{EN, AR} {
			to := l.Other()
			if s.Title(l) == "" || s.Title(to) != "" || !IsNative(s.Title(l), to) {
				continue
			}
			patches = append(patches,
				Patch{Index: i, Lang: to, Field: FieldTitle, Value: s.Title(l)},
				Patch{Index: i, Lang: to, Field: FieldSummary, Value: s.Summary(l)},
				Patch{Index: i, Lang: to, Field: FieldURL, Value: s.URL(l)},
				Patch{Index: i, Lang: to, Field: FieldSource, Value: s.Source(l)},
				Patch{Index: i, Lang: l, Field: FieldTitle},
				Patch{Index: i, Lang: l, Field: FieldSummary},
				Patch{Index: i, Lang: l, Field: FieldURL},
				Patch{Index: i, Lang: l, Field: FieldSource},
			)
			break
		}
	}
	return patches
}

func countStories(patches []Patch) int {
	seen := make(map[int]bool)
	for _, p := range patches {
		seen[p.Index] = true
	}
	return len(seen)
}

// needingFill lists story indexes whose source side is native and whose
// target side is missing or written in the wrong script.
func needingFill(stories []Story, target Lang) []int {
	from := target.Other()
	var idx []int
	for i, s := range stories {
		if IsNative(s.Title(from), from) && !IsNative(s.Title(target), target) {
			idx = append(idx, i)
		}
	}
	return idx
}

func capBatch(idx []int, limit int) []int {
	if limit > 0 && len(idx) > limit {
		return idx[:limit]
	}
	return idx
}

// buildPatches turns a batch response into patches. Entry k answers story
// idx[k]; missing entries and empty fields produce nothing.
func buildPatches(stories []Story, idx []int, resp []Translation, target Lang) ([]Patch, int) {
	from := target.Other()
	var (
		patches []Patch
		filled  int
	)
	for k, i := range idx {
		if k >= len(resp) {
			break
		}
		s := stories[i]
		title := strings.TrimSpace(resp[k].Title)
		summary := strings.TrimSpace(resp[k].Summary)
		if title == "" && summary == "" {
			continue
		}

		if title != "" && !IsNative(s.Title(target), target) {
			patches = append(patches, Patch{Index: i, Lang: target, Field: FieldTitle, Value: title})
		}
		if summary != "" && !IsNative(s.Summary(target), target) {
			patches = append(patches, Patch{Index: i, Lang: target, Field: FieldSummary, Value: summary})
		}
		if s.URL(target) == "" && s.URL(from) != "" {
			patches = append(patches, Patch{Index: i, Lang: target, Field: FieldURL, Value: s.URL(from)})
		}
		if s.Source(target) == "" && s.Source(from) != "" {
			patches = append(patches, Patch{Index: i, Lang: target, Field: FieldSource, Value: s.Source(from)})
		}
		patches = append(patches, Patch{Index: i, Lang: target, Field: FieldTranslated})
		filled++
	}
	return patches, filled
}
