package story

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"
)

type fakeTranslator struct {
	mu    sync.Mutex
	calls map[Lang][]Pair
	resp  map[Lang][]Translation
	err   map[Lang]error
}

func (f *fakeTranslator) Translate(_ context.Context, target Lang, pairs []Pair) ([]Translation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[Lang][]Pair{}
	}
	f.calls[target] = append(f.calls[target], pairs...)
	if err := f.err[target]; err != nil {
		return nil, err
	}
	return f.resp[target], nil
}

func enStory(id, title string) Story {
	return Story{
		ID:          id,
		Category:    CategoryUAE,
		PublishedAt: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		TitleEN:     title,
		SummaryEN:   "Summary of " + title,
		SourceEN:    "The National",
		URLEN:       "https://thenationalnews.com/" + id,
	}
}

func TestIsNative(t *testing.T) {
	tests := []struct {
		s    string
		lang Lang
		want bool
	}{
		{"Dubai metro opens", EN, true},
		{"Dubai metro opens", AR, false},
		{"افتتاح مترو دبي", AR, true},
		{"افتتاح مترو دبي", EN, false},
		{"   ", EN, false},
		{"2025", EN, true},
		{"دبي Dubai Metro", AR, false},
	}
	for _, tt := range tests {
		if got := IsNative(tt.s, tt.lang); got != tt.want {
			t.Errorf("IsNative(%q, %s) = %v, want %v", tt.s, tt.lang, got, tt.want)
		}
	}
}

func TestFillEnglishOnlyStory(t *testing.T) {
	tr := &fakeTranslator{resp: map[Lang][]Translation{
		AR: {{Title: "عنوان مترجم", Summary: "ملخص مترجم"}},
	}}
	in := []Story{enStory("1", "Dubai metro opens")}

	out, report := NewFiller(tr, DefaultFillOptions()).Fill(context.Background(), in)

	got := out[0]
	if !got.TranslatedFromAR {
		t.Error("TranslatedFromAR = false, want true")
	}
	if got.TitleAR != "عنوان مترجم" || got.SummaryAR != "ملخص مترجم" {
		t.Errorf("AR side = %q / %q", got.TitleAR, got.SummaryAR)
	}
	if got.URLAR != in[0].URLEN || got.SourceAR != in[0].SourceEN {
		t.Errorf("AR link/source not inherited: %q %q", got.URLAR, got.SourceAR)
	}
	if got.TitleEN != in[0].TitleEN || got.TranslatedFromEN {
		t.Error("EN side changed")
	}
	if in[0].TitleAR != "" || in[0].TranslatedFromAR {
		t.Error("Fill modified its input")
	}
	if report.NeedAR != 1 || report.FilledAR != 1 || report.NeedEN != 0 {
		t.Errorf("report = %+v", report)
	}
	if want := []Pair{{Title: "Dubai metro opens", Summary: "Summary of Dubai metro opens"}}; !reflect.DeepEqual(tr.calls[AR], want) {
		t.Errorf("AR request = %+v, want %+v", tr.calls[AR], want)
	}
	if _, ok := tr.calls[EN]; ok {
		t.Error("EN batch requested with nothing to fill")
	}
}

func TestFillNeverOverwritesNative(t *testing.T) {
	s := enStory("1", "Dubai metro opens")
	s.TitleAR = "Dubai metro opens"
	s.SummaryAR = "ملخص أصلي"

	tr := &fakeTranslator{resp: map[Lang][]Translation{
		AR: {{Title: "عنوان مترجم", Summary: "ملخص مترجم"}},
	}}
	out, _ := NewFiller(tr, DefaultFillOptions()).Fill(context.Background(), []Story{s})

	if out[0].TitleAR != "عنوان مترجم" {
		t.Errorf("non-native AR title not replaced: %q", out[0].TitleAR)
	}
	if out[0].SummaryAR != "ملخص أصلي" {
		t.Errorf("native AR summary overwritten: %q", out[0].SummaryAR)
	}
	if !out[0].TranslatedFromAR {
		t.Error("TranslatedFromAR = false after a partial fill")
	}
}

func TestFillBothDirections(t *testing.T) {
	ar := Story{ID: "2", TitleAR: "خبر عاجل", SummaryAR: "تفاصيل", URLAR: "https://wam.ae/2", SourceAR: "WAM"}
	tr := &fakeTranslator{resp: map[Lang][]Translation{
		AR: {{Title: "مترو دبي"}},
		EN: {{Title: "Breaking news", Summary: "Details"}},
	}}
	out, report := NewFiller(tr, DefaultFillOptions()).Fill(context.Background(), []Story{enStory("1", "Dubai metro"), ar})

	if out[0].TitleAR != "مترو دبي" || out[0].SummaryAR != "" {
		t.Errorf("story 0 AR = %q / %q", out[0].TitleAR, out[0].SummaryAR)
	}
	if out[1].TitleEN != "Breaking news" || !out[1].TranslatedFromEN || out[1].URLEN != "https://wam.ae/2" {
		t.Errorf("story 1 EN = %+v", out[1])
	}
	if report.Filled() != 2 {
		t.Errorf("Filled() = %d, want 2", report.Filled())
	}
}

func TestFillBatchCap(t *testing.T) {
	var stories []Story
	var resp []Translation
	for i := 0; i < 25; i++ {
		stories = append(stories, enStory(fmt.Sprint(i), fmt.Sprintf("Headline number %d", i)))
		resp = append(resp, Translation{Title: fmt.Sprintf("عنوان %d", i)})
	}
	tr := &fakeTranslator{resp: map[Lang][]Translation{AR: resp}}

	out, report := NewFiller(tr, FillOptions{BatchCap: 20}).Fill(context.Background(), stories)

	if len(tr.calls[AR]) != 20 {
		t.Fatalf("sent %d pairs, want 20", len(tr.calls[AR]))
	}
	if report.NeedAR != 25 || report.SentAR != 20 || report.FilledAR != 20 {
		t.Errorf("report = %+v", report)
	}
	for i := 20; i < 25; i++ {
		if out[i].TitleAR != "" || out[i].TranslatedFromAR {
			t.Errorf("story %d beyond the cap was filled", i)
		}
	}
}

func TestFillShortAndEmptyResponses(t *testing.T) {
	stories := []Story{enStory("1", "First headline"), enStory("2", "Second headline"), enStory("3", "Third headline")}
	tr := &fakeTranslator{resp: map[Lang][]Translation{
		AR: {{}, {Title: "العنوان الثاني"}},
	}}
	out, report := NewFiller(tr, DefaultFillOptions()).Fill(context.Background(), stories)

	if out[0].TranslatedFromAR || out[0].TitleAR != "" {
		t.Error("empty entry produced a fill")
	}
	if !out[1].TranslatedFromAR {
		t.Error("second entry not applied")
	}
	if out[2].TranslatedFromAR {
		t.Error("missing trailing entry produced a fill")
	}
	if report.FilledAR != 1 {
		t.Errorf("FilledAR = %d, want 1", report.FilledAR)
	}
}

func TestFillTranslatorFailure(t *testing.T) {
	tr := &fakeTranslator{err: map[Lang]error{AR: errors.New("status 500")}}
	in := []Story{enStory("1", "Dubai metro opens")}

	out, report := NewFiller(tr, DefaultFillOptions()).Fill(context.Background(), in)

	if !reflect.DeepEqual(out, in) {
		t.Errorf("failed batch changed stories: %+v", out)
	}
	if report.ErrAR == nil || report.Filled() != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestFillWithoutTranslator(t *testing.T) {
	in := []Story{enStory("1", "Dubai metro opens")}
	out, report := NewFiller(nil, DefaultFillOptions()).Fill(context.Background(), in)
	if !reflect.DeepEqual(out, in) || report.Requested {
		t.Errorf("nil translator changed output: %+v %+v", out, report)
	}
}

func TestApplyPatchesIgnoresOutOfRange(t *testing.T) {
	in := []Story{enStory("1", "x")}
	out := ApplyPatches(in, []Patch{
		{Index: 5, Lang: AR, Field: FieldTitle, Value: "ignored"},
		{Index: 0, Lang: AR, Field: FieldTitle, Value: "عنوان"},
	})
	if out[0].TitleAR != "عنوان" || in[0].TitleAR != "" {
		t.Errorf("ApplyPatches = %+v", out[0])
	}
}

func TestFillMovesMislabeledSide(t *testing.T) {
	tr := &fakeTranslator{resp: map[Lang][]Translation{
		EN: {{Title: "Dubai metro opens", Summary: "The line opens today"}},
	}}
	in := []Story{{
		ID:        "1",
		Category:  CategoryUAE,
		TitleEN:   "مترو دبي يفتتح",
		SummaryEN: "الخط يفتح اليوم",
		SourceEN:  "البيان",
		URLEN:     "https://www.albayan.ae/1",
	}}

	out, report := NewFiller(tr, DefaultFillOptions()).Fill(context.Background(), in)

	got := out[0]
	if got.TitleAR != "مترو دبي يفتتح" || got.SummaryAR != "الخط يفتح اليوم" || got.URLAR != "https://www.albayan.ae/1" || got.SourceAR != "البيان" {
		t.Errorf("AR side = %+v", got)
	}
	if got.TitleEN != "Dubai metro opens" || !got.TranslatedFromEN {
		t.Errorf("EN side = %q translated=%v", got.TitleEN, got.TranslatedFromEN)
	}
	if got.URLEN != "https://www.albayan.ae/1" {
		t.Errorf("URLEN = %q, want inherited from AR side", got.URLEN)
	}
	if report.Relabeled != 1 || report.NeedEN != 1 || report.NeedAR != 0 {
		t.Errorf("report = %+v", report)
	}
	if len(tr.calls[EN]) != 1 || tr.calls[EN][0].Title != "مترو دبي يفتتح" {
		t.Errorf("EN batch = %+v", tr.calls[EN])
	}
	if in[0].TitleEN != "مترو دبي يفتتح" {
		t.Error("Fill modified its input")
	}
}

func TestFillKeepsMixedSidesInPlace(t *testing.T) {
	in := []Story{{ID: "1", TitleEN: "مترو دبي", TitleAR: "افتتاح مترو دبي"}}
	out, report := NewFiller(nil, DefaultFillOptions()).Fill(context.Background(), in)
	if report.Relabeled != 0 || !reflect.DeepEqual(out, in) {
		t.Errorf("story with both sides relabeled: %+v", out[0])
	}
}
