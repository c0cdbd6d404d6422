package scraper

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/shiftnews/shift/internal/story"
)

// Scraper looks up article pages with a rate-limited Colly collector.
type Scraper struct {
	userAgent string
	timeout   time.Duration
}

// NewScraper creates a Scraper. An empty userAgent uses the default bot
// agent.
func NewScraper(userAgent string) *Scraper {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Scraper{userAgent: userAgent, timeout: 10 * time.Second}
}

// newCollector creates a fresh Colly collector with standard settings and rate
// limiting. Each lookup gets its own collector to avoid state leakage.
func (s *Scraper) newCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(s.userAgent),
		colly.AllowURLRevisit(),
		colly.MaxDepth(1),
	)
	// The HTTP request itself must end with the lookup, not just the wait.
	c.SetRequestTimeout(s.timeout)

	_ = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 2,
		Delay:       500 * time.Millisecond,
		RandomDelay: 250 * time.Millisecond,
	})

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "ar,en;q=0.9")
	})

	return c
}

// ExtractImageURL fetches a page and returns its og:image or twitter:image.
// It returns "" on any failure or timeout.
func (s *Scraper) ExtractImageURL(ctx context.Context, pageURL string) string {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	c := s.newCollector()

	var (
		ogImage      string
		twitterImage string
		mu           sync.Mutex
	)

	c.OnHTML(`meta[property="og:image"]`, func(e *colly.HTMLElement) {
		mu.Lock()
		if ogImage == "" {
			ogImage = strings.TrimSpace(e.Attr("content"))
		}
		mu.Unlock()
	})

	c.OnHTML(`meta[name="twitter:image"]`, func(e *colly.HTMLElement) {
		mu.Lock()
		if twitterImage == "" {
			twitterImage = strings.TrimSpace(e.Attr("content"))
		}
		mu.Unlock()
	})

	c.OnError(func(r *colly.Response, err error) {})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Visit(pageURL)
		c.Wait()
	}()

	select {
	case <-ctx.Done():
		return ""
	case <-done:
	}

	mu.Lock()
	defer mu.Unlock()
	if ogImage != "" {
		return ogImage
	}
	return twitterImage
}

// EnrichImages looks up og:image for up to limit items whose image is a
// placeholder and returns a copy with the images filled. Lookups run
// concurrently; a limit of zero or less disables enrichment.
func (s *Scraper) EnrichImages(ctx context.Context, items []story.FeedItem, limit int) []story.FeedItem {
	out := make([]story.FeedItem, len(items))
	copy(out, items)
	if limit <= 0 {
		return out
	}

	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, 4)
	)
	looked := 0
	for i := range out {
		if looked >= limit {
			break
		}
		if !story.IsPlaceholder(out[i].Image) || out[i].URL == "" {
			continue
		}
		looked++

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			img := s.ExtractImageURL(ctx, out[i].URL)
			if img != "" {
				out[i].Image = story.NormalizeImage(img, out[i].Category)
			}
		}(i)
	}
	wg.Wait()
	return out
}
