package pipeline

import (
	"net/http"

	"github.com/shiftnews/shift/internal/ai"
	"github.com/shiftnews/shift/internal/config"
	"github.com/shiftnews/shift/internal/scraper"
	"github.com/shiftnews/shift/internal/story"
)

// FromConfig wires a Pipeline from application configuration: the
// configured feeds, the headline API when it has a key, og:image lookups
// and the translator. tr may be nil.
func FromConfig(cfg config.Config, tr *ai.BatchTranslator) *Pipeline {
	client := &http.Client{Timeout: cfg.Feeds.Timeout}

	sources := scraper.FeedSources(cfg.Feeds.List, cfg.Feeds.UserAgent, client)
	sources = append(sources, scraper.HeadlineSources(cfg.NewsAPI, client)...)

	pc := Config{
		Sources:      sources,
		FetchTimeout: cfg.Feeds.Timeout,
		Cluster: story.ClusterOptions{
			Window:             cfg.Cluster.Window,
			SameFamilyJaccard:  cfg.Cluster.SameFamilyJaccard,
			CrossFamilyJaccard: cfg.Cluster.CrossFamilyJaccard,
		},
		Canonical:        story.CanonicalOptions{SummaryWords: cfg.Output.SummaryWords},
		Fill:             story.FillOptions{BatchCap: cfg.Translate.BatchCap},
		Assemble:         story.AssembleOptions{MaxStories: cfg.Output.MaxStories},
		TranslateAlways:  cfg.Translate.Always,
		TranslateTimeout: cfg.Translate.Timeout,
		ImageLookup:      cfg.Feeds.OGImageLookups,
	}
	if tr != nil {
		pc.Translator = tr
	}
	if pc.ImageLookup > 0 {
		pc.Images = scraper.NewScraper(cfg.Feeds.UserAgent)
	}
	return New(pc)
}
