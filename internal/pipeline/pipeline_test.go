package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shiftnews/shift/internal/models"
	"github.com/shiftnews/shift/internal/scraper"
	"github.com/shiftnews/shift/internal/story"
)

var fixedNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

type fakeSource struct {
	name  string
	items []story.RawItem
	err   error
}

func (f fakeSource) Name() string { return f.name }

func (f fakeSource) Fetch(context.Context) ([]story.RawItem, error) {
	return f.items, f.err
}

type fakeTranslator struct {
	mu    sync.Mutex
	calls map[story.Lang]int
	resp  map[story.Lang][]story.Translation
}

func (f *fakeTranslator) Translate(_ context.Context, target story.Lang, pairs []story.Pair) ([]story.Translation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[story.Lang]int{}
	}
	f.calls[target] += len(pairs)
	return f.resp[target], nil
}

func rawItem(lang story.Lang, source, title, link string, at time.Time) story.RawItem {
	return story.RawItem{
		Title:      title,
		Link:       link,
		PubDate:    at.Format(time.RFC3339),
		SourceName: source,
		Lang:       lang,
	}
}

func newTestPipeline(tr story.Translator, sources ...scraper.Source) *Pipeline {
	cfg := Config{
		Sources:      sources,
		FetchTimeout: time.Second,
		Cluster:      story.DefaultClusterOptions(),
		Canonical:    story.DefaultCanonicalOptions(),
		Fill:         story.DefaultFillOptions(),
		Assemble:     story.DefaultAssembleOptions(),
		Now:          func() time.Time { return fixedNow },
	}
	if tr != nil {
		cfg.Translator = tr
	}
	return New(cfg)
}

func TestRunSameURLAcrossLanguages(t *testing.T) {
	link := "https://www.thenationalnews.com/uae/metro"
	p := newTestPipeline(nil,
		fakeSource{name: "en", items: []story.RawItem{
			rawItem(story.EN, "The National", "Dubai metro blue line opens", link, fixedNow.Add(-2*time.Hour)),
		}},
		fakeSource{name: "ar", items: []story.RawItem{
			rawItem(story.AR, "ذا ناشيونال", "افتتاح الخط الأزرق لمترو دبي", link, fixedNow.Add(-time.Hour)),
		}},
	)

	res := p.Run(context.Background(), Options{})

	if res.Data != DataLive || res.Translation != TransOff || res.Translated != 0 {
		t.Errorf("result = data %s, translation %s, translated %d", res.Data, res.Translation, res.Translated)
	}
	if len(res.Stories) != 1 {
		t.Fatalf("got %d stories, want 1", len(res.Stories))
	}
	s := res.Stories[0]
	if s.TitleEN != "Dubai metro blue line opens" || s.TitleAR != "افتتاح الخط الأزرق لمترو دبي" {
		t.Errorf("titles = %q / %q", s.TitleEN, s.TitleAR)
	}
	if s.TranslatedFromAR || s.TranslatedFromEN {
		t.Error("native story marked as translated")
	}
	if !s.PublishedAt.Equal(fixedNow.Add(-time.Hour)) {
		t.Errorf("PublishedAt = %v, want the later side", s.PublishedAt)
	}
}

func TestRunTranslatesMissingSide(t *testing.T) {
	tr := &fakeTranslator{resp: map[story.Lang][]story.Translation{
		story.AR: {{Title: "افتتاح مترو دبي", Summary: "الخط يفتح اليوم"}},
	}}
	p := newTestPipeline(tr, fakeSource{name: "en", items: []story.RawItem{
		rawItem(story.EN, "The National", "Dubai metro opens", "https://www.thenationalnews.com/uae/1", fixedNow),
	}})

	res := p.Run(context.Background(), Options{Translate: true})

	if res.Translation != TransOn || res.Translated != 1 {
		t.Errorf("translation = %s, translated = %d", res.Translation, res.Translated)
	}
	s := res.Stories[0]
	if !s.TranslatedFromAR {
		t.Error("TranslatedFromAR = false")
	}
	if s.TitleAR != "افتتاح مترو دبي" || s.SummaryAR != "الخط يفتح اليوم" {
		t.Errorf("AR side = %q / %q", s.TitleAR, s.SummaryAR)
	}
	if s.TitleEN != "Dubai metro opens" {
		t.Errorf("EN title changed to %q", s.TitleEN)
	}
	if tr.calls[story.EN] != 0 {
		t.Errorf("EN translation requested for %d stories", tr.calls[story.EN])
	}
}

func TestRunDuplicatesDoNotSpendBatchCap(t *testing.T) {
	tr := &fakeTranslator{resp: map[story.Lang][]story.Translation{
		story.AR: {{Title: "ترجمة أولى"}, {Title: "ترجمة ثانية"}},
	}}
	// The third item joins the metro cluster by title, so both the metro
	// and the book fair stories end up keyed by link b.
	p := newTestPipeline(tr, fakeSource{name: "en", items: []story.RawItem{
		rawItem(story.EN, "Gulf News", "Dubai metro blue line opens", "https://gulfnews.com/a", fixedNow.Add(-3*time.Hour)),
		rawItem(story.EN, "Gulf News", "Sharjah book fair returns", "https://gulfnews.com/b", fixedNow.Add(-2*time.Hour)),
		rawItem(story.EN, "Gulf News", "Dubai metro blue line opens", "https://gulfnews.com/b", fixedNow.Add(-time.Hour)),
		rawItem(story.EN, "Gulf News", "Oil prices steady", "https://gulfnews.com/c", fixedNow.Add(-4*time.Hour)),
	}})
	p.cfg.Fill.BatchCap = 2

	res := p.Run(context.Background(), Options{Translate: true})

	if res.Clusters != 3 || len(res.Stories) != 2 {
		t.Fatalf("clusters = %d, stories = %d, want 3 and 2", res.Clusters, len(res.Stories))
	}
	if res.Fill.NeedAR != 2 {
		t.Errorf("need AR = %d, want 2", res.Fill.NeedAR)
	}
	for _, s := range res.Stories {
		if !s.TranslatedFromAR {
			t.Errorf("%q left untranslated", s.TitleEN)
		}
	}
	if res.Translated != 2 {
		t.Errorf("translated = %d, want 2", res.Translated)
	}
}

func TestRunReportsEmptySources(t *testing.T) {
	p := newTestPipeline(nil,
		fakeSource{name: "quiet"},
		fakeSource{name: "down", err: errors.New("status 503")},
		fakeSource{name: "en", items: []story.RawItem{
			rawItem(story.EN, "The National", "Dubai metro opens", "https://www.thenationalnews.com/uae/1", fixedNow),
		}},
	)

	res := p.Run(context.Background(), Options{})
	if len(res.EmptySources) != 1 || res.EmptySources[0] != "quiet" {
		t.Errorf("empty sources = %v", res.EmptySources)
	}
	if len(res.FailedSources) != 1 || res.FailedSources[0] != "down" {
		t.Errorf("failed sources = %v", res.FailedSources)
	}
}

func TestRunAllSourcesFail(t *testing.T) {
	p := newTestPipeline(nil,
		fakeSource{name: "a", err: errors.New("status 503")},
		fakeSource{name: "b", err: errors.New("timeout")},
	)

	res := p.Run(context.Background(), Options{})

	if res.Data != DataDemo {
		t.Errorf("data = %s, want demo", res.Data)
	}
	if len(res.Stories) != 1 || res.Stories[0].ID != "demo" {
		t.Fatalf("stories = %+v, want the placeholder", res.Stories)
	}
	if len(res.FailedSources) != 2 || res.FailedSources[0] != "a" {
		t.Errorf("failed sources = %v", res.FailedSources)
	}
}

func TestRunClusteringThresholds(t *testing.T) {
	tests := []struct {
		name        string
		title, peer string
		want        int
	}{
		{"cross family at 0.70", "alpha bravo charlie delta echo foxtrot golf hotel", "alpha bravo charlie delta echo foxtrot golf india juliet", 1},
		{"cross family at 0.40", "alpha bravo charlie delta echo foxtrot golf", "alpha bravo charlie delta hotel india juliet", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(nil, fakeSource{name: "wire", items: []story.RawItem{
				rawItem(story.EN, "Reuters", tt.title, "https://www.reuters.com/1", fixedNow.Add(-2*time.Hour)),
				rawItem(story.EN, "Gulf News", tt.peer, "https://gulfnews.com/1", fixedNow.Add(-time.Hour)),
			}})

			res := p.Run(context.Background(), Options{})
			if res.Clusters != tt.want || len(res.Stories) != tt.want {
				t.Errorf("clusters = %d, stories = %d, want %d", res.Clusters, len(res.Stories), tt.want)
			}
		})
	}
}

func TestRunLimit(t *testing.T) {
	p := newTestPipeline(nil, fakeSource{name: "en", items: []story.RawItem{
		rawItem(story.EN, "A", "Abu Dhabi opens museum", "https://a.example/1", fixedNow.Add(-3*time.Hour)),
		rawItem(story.EN, "B", "Sharjah book fair returns", "https://b.example/2", fixedNow.Add(-2*time.Hour)),
		rawItem(story.EN, "C", "Oil prices steady", "https://c.example/3", fixedNow.Add(-time.Hour)),
	}})

	res := p.Run(context.Background(), Options{Limit: 2})
	if len(res.Stories) != 2 {
		t.Fatalf("got %d stories, want 2", len(res.Stories))
	}
	if res.Stories[0].TitleEN != "Oil prices steady" {
		t.Errorf("first story = %q, want the newest", res.Stories[0].TitleEN)
	}
}

func TestTranslationState(t *testing.T) {
	tr := &fakeTranslator{}
	tests := []struct {
		name   string
		tr     story.Translator
		always bool
		opts   Options
		want   string
	}{
		{"off by default", tr, false, Options{}, TransOff},
		{"forced", tr, false, Options{Translate: true}, TransOn},
		{"always", tr, true, Options{}, TransOn},
		{"forced without key", nil, false, Options{Translate: true}, TransMissingKey},
		{"always without key", nil, true, Options{}, TransOff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(Config{Translator: tt.tr, TranslateAlways: tt.always})
			if got := p.TranslationState(tt.opts); got != tt.want {
				t.Errorf("TranslationState = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRunMissingKeyLeavesStoriesUntranslated(t *testing.T) {
	p := newTestPipeline(nil, fakeSource{name: "en", items: []story.RawItem{
		rawItem(story.EN, "The National", "Dubai metro opens", "https://www.thenationalnews.com/uae/1", fixedNow),
	}})

	res := p.Run(context.Background(), Options{Translate: true})
	if res.Translation != TransMissingKey {
		t.Errorf("translation = %s", res.Translation)
	}
	if res.Stories[0].TitleAR != "" {
		t.Errorf("TitleAR = %q, want empty", res.Stories[0].TitleAR)
	}
}

type fakeRuns struct {
	got *models.Run
	err error
}

func (f *fakeRuns) Create(_ context.Context, run *models.Run) error {
	f.got = run
	return f.err
}

type fakeSnapshots struct {
	err error
}

func (f fakeSnapshots) StoreSnapshot(_ context.Context, runID uuid.UUID, at time.Time, _ string, _ []story.Story) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "snapshots/" + at.Format("2006/01/02") + "/" + runID.String(), nil
}

func TestArchive(t *testing.T) {
	res := Result{
		RunID:         uuid.New(),
		StartedAt:     fixedNow,
		Duration:      1500 * time.Millisecond,
		Data:          DataLive,
		Translation:   TransOn,
		Stories:       []story.Story{{ID: "a"}, {ID: "b"}},
		FailedSources: []string{"CNN العربية"},
	}

	runs := &fakeRuns{}
	a := &Archiver{Runs: runs, Snapshots: fakeSnapshots{}}
	run, err := a.Archive(context.Background(), res)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if runs.got != run || run.Stories != 2 || run.DurationMS != 1500 {
		t.Errorf("recorded run = %+v", runs.got)
	}
	if run.SnapshotKey != "snapshots/2025/03/10/"+res.RunID.String() {
		t.Errorf("SnapshotKey = %q", run.SnapshotKey)
	}

	runs = &fakeRuns{}
	a = &Archiver{Runs: runs, Snapshots: fakeSnapshots{err: errors.New("bucket gone")}}
	if _, err := a.Archive(context.Background(), res); err != nil {
		t.Errorf("snapshot failure surfaced: %v", err)
	}
	if runs.got == nil || runs.got.SnapshotKey != "" {
		t.Errorf("run after snapshot failure = %+v", runs.got)
	}

	a = &Archiver{Runs: &fakeRuns{err: errors.New("db down")}}
	if _, err := a.Archive(context.Background(), res); err == nil {
		t.Error("run insert failure swallowed")
	}

	if _, err := (&Archiver{}).Archive(context.Background(), res); err != nil {
		t.Errorf("empty archiver: %v", err)
	}
}
