package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shiftnews/shift/internal/config"
	"github.com/shiftnews/shift/internal/story"
)

// HeadlineSource queries the NewsAPI "everything" endpoint for one language.
type HeadlineSource struct {
	cfg        config.NewsAPIConfig
	lang       story.Lang
	httpClient *http.Client
	now        func() time.Time
}

// NewHeadlineSource creates a headline source. It returns nil when no API
// key is configured so the caller skips it entirely.
func NewHeadlineSource(cfg config.NewsAPIConfig, lang story.Lang, client *http.Client) *HeadlineSource {
	if cfg.APIKey == "" {
		return nil
	}
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HeadlineSource{cfg: cfg, lang: lang, httpClient: client, now: time.Now}
}

// HeadlineSources returns the EN and AR headline sources, or none without a
// key.
func HeadlineSources(cfg config.NewsAPIConfig, client *http.Client) []Source {
	var sources []Source
	for _, lang := range []story.Lang{story.EN, story.AR} {
		if src := NewHeadlineSource(cfg, lang, client); src != nil {
			sources = append(sources, src)
		}
	}
	return sources
}

// Name implements Source.
func (s *HeadlineSource) Name() string {
	return "newsapi-" + string(s.lang)
}

type newsAPIResponse struct {
	Status       string           `json:"status"`
	Code         string           `json:"code"`
	Message      string           `json:"message"`
	TotalResults int              `json:"totalResults"`
	Articles     []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

// Fetch implements Source.
func (s *HeadlineSource) Fetch(ctx context.Context) ([]story.RawItem, error) {
	resp, err := s.query(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]story.RawItem, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		name := a.Source.Name
		if name == "" {
			name = "NewsAPI"
		}
		items = append(items, story.RawItem{
			Title:       a.Title,
			Description: a.Description,
			Link:        a.URL,
			PubDate:     a.PublishedAt,
			ImageURL:    a.URLToImage,
			SourceName:  name,
			Lang:        s.lang,
		})
	}
	return items, nil
}

// Probe runs a small query and reports the HTTP status and article count.
// It backs the diagnostics endpoint.
func (s *HeadlineSource) Probe(ctx context.Context) (status int, count int, err error) {
	cfg := s.cfg
	cfg.PageSize = 5
	probe := &HeadlineSource{cfg: cfg, lang: s.lang, httpClient: s.httpClient, now: s.now}
	resp, err := probe.query(ctx)
	if err != nil {
		var se statusError
		if errors.As(err, &se) {
			return se.code, 0, err
		}
		return 0, 0, err
	}
	return http.StatusOK, len(resp.Articles), nil
}

func (s *HeadlineSource) requestURL() string {
	q := url.Values{}
	q.Set("q", s.cfg.Query)
	q.Set("language", langCode(s.lang))
	q.Set("from", s.now().Add(-s.cfg.Lookback).UTC().Format(time.RFC3339))
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", strconv.Itoa(s.cfg.PageSize))
	q.Set("apiKey", s.cfg.APIKey)
	return s.cfg.BaseURL + "?" + q.Encode()
}

func (s *HeadlineSource) query(ctx context.Context) (*newsAPIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.requestURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("newsapi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, statusError{code: resp.StatusCode, body: string(body)}
	}

	var out newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("newsapi: decode response: %w", err)
	}
	if out.Status != "" && out.Status != "ok" {
		return nil, fmt.Errorf("newsapi: %s: %s", out.Code, out.Message)
	}
	return &out, nil
}

type statusError struct {
	code int
	body string
}

func (e statusError) Error() string {
	return fmt.Sprintf("newsapi: status %d: %s", e.code, e.body)
}

func langCode(l story.Lang) string {
	if l == story.AR {
		return "ar"
	}
	return "en"
}
