// Package pipeline runs one end-to-end story build: fetch every source,
// normalize, cluster, canonicalize, fill translations and assemble.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shiftnews/shift/internal/scraper"
	"github.com/shiftnews/shift/internal/story"
)

// Provenance of a run's story list.
const (
	DataLive  = "live"
	DataDemo  = "demo"
	DataError = "error"
)

// Translation states reported per run.
const (
	TransOn         = "on"
	TransOff        = "off"
	TransMissingKey = "missing-key"
)

// ImageEnricher fills placeholder images from article pages.
type ImageEnricher interface {
	EnrichImages(ctx context.Context, items []story.FeedItem, limit int) []story.FeedItem
}

// Config wires a Pipeline.
type Config struct {
	Sources      []scraper.Source
	FetchTimeout time.Duration

	Cluster   story.ClusterOptions
	Canonical story.CanonicalOptions
	Fill      story.FillOptions
	Assemble  story.AssembleOptions

	// Translator may be nil; translation then reports missing-key.
	Translator story.Translator
	// TranslateAlways enables translation without the per-request flag.
	TranslateAlways  bool
	TranslateTimeout time.Duration

	Images      ImageEnricher
	ImageLookup int

	Now func() time.Time
}

// Options are the per-run switches.
type Options struct {
	// Translate forces a translation pass for this run.
	Translate bool
	// Limit caps the returned list below the configured maximum when > 0.
	Limit int
}

// Result is one run's output plus diagnostics.
type Result struct {
	RunID         uuid.UUID
	Stories       []story.Story
	Data          string
	Translation   string
	Translated    int
	Raw           int
	Items         int
	Clusters      int
	FailedSources []string
	// EmptySources answered without error but returned no items.
	EmptySources []string
	StartedAt     time.Time
	Duration      time.Duration
	Fill          story.FillReport
}

// Pipeline builds story lists. It holds no per-run state and is safe for
// concurrent use.
type Pipeline struct {
	cfg        Config
	normalizer *story.Normalizer
	filler     *story.Filler
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pipeline{
		cfg:        cfg,
		normalizer: &story.Normalizer{Now: cfg.Now},
		filler:     story.NewFiller(cfg.Translator, cfg.Fill),
	}
}

// SourceCount returns the number of configured sources.
func (p *Pipeline) SourceCount() int {
	return len(p.cfg.Sources)
}

// TranslationState reports whether a run with opts would translate.
func (p *Pipeline) TranslationState(opts Options) string {
	if !opts.Translate && !p.cfg.TranslateAlways {
		return TransOff
	}
	if p.cfg.Translator == nil {
		if opts.Translate {
			return TransMissingKey
		}
		return TransOff
	}
	return TransOn
}

// Run executes one pipeline pass. It never fails: source and translation
// errors degrade the result, and an empty result carries the placeholder
// story with provenance demo.
func (p *Pipeline) Run(ctx context.Context, opts Options) Result {
	start := p.cfg.Now()
	res := Result{
		RunID:       uuid.New(),
		StartedAt:   start.UTC(),
		Translation: p.TranslationState(opts),
	}
	log := slog.With("run", res.RunID.String())

	fetched := scraper.FetchAll(ctx, p.cfg.Sources, p.cfg.FetchTimeout)
	res.Raw = len(fetched.Items)
	failed := make(map[string]bool, len(fetched.Errors))
	for _, e := range fetched.Errors {
		res.FailedSources = append(res.FailedSources, e.Source)
		failed[e.Source] = true
	}
	for i, n := range fetched.Counts {
		if name := p.cfg.Sources[i].Name(); n == 0 && !failed[name] {
			res.EmptySources = append(res.EmptySources, name)
		}
	}

	items := p.normalizer.NormalizeAll(fetched.Items)
	if p.cfg.Images != nil && p.cfg.ImageLookup > 0 {
		items = p.cfg.Images.EnrichImages(ctx, items, p.cfg.ImageLookup)
	}
	res.Items = len(items)

	clusters := story.ClusterItems(items, p.cfg.Cluster)
	res.Clusters = len(clusters)

	stories := story.CanonicalizeAll(clusters, p.cfg.Canonical)
	story.SortByRecency(stories)
	// Duplicates must not spend the translation batch cap.
	stories = story.Dedupe(stories)

	if res.Translation == TransOn && len(stories) > 0 {
		stories, res.Fill = p.fill(ctx, stories)
		if res.Fill.ErrAR != nil || res.Fill.ErrEN != nil {
			log.Warn("translation incomplete", "err_ar", res.Fill.ErrAR, "err_en", res.Fill.ErrEN)
		}
	}

	assembleOpts := p.cfg.Assemble
	if opts.Limit > 0 && (assembleOpts.MaxStories <= 0 || opts.Limit < assembleOpts.MaxStories) {
		assembleOpts.MaxStories = opts.Limit
	}

	var live bool
	res.Stories, live = story.Assemble(stories, assembleOpts, p.cfg.Now())
	res.Translated = story.CountTranslated(res.Stories)
	res.Data = DataLive
	if !live {
		res.Data = DataDemo
	}
	res.Duration = p.cfg.Now().Sub(start)

	log.Info("pipeline run complete",
		"data", res.Data,
		"raw", res.Raw,
		"items", res.Items,
		"clusters", res.Clusters,
		"stories", len(res.Stories),
		"translation", res.Translation,
		"translated", res.Translated,
		"filled", res.Fill.Filled(),
		"relabeled", res.Fill.Relabeled,
		"failed_sources", len(res.FailedSources),
		"empty_sources", res.EmptySources,
		"duration", res.Duration,
	)
	return res
}

func (p *Pipeline) fill(ctx context.Context, stories []story.Story) ([]story.Story, story.FillReport) {
	if p.cfg.TranslateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.TranslateTimeout)
		defer cancel()
	}
	return p.filler.Fill(ctx, stories)
}
