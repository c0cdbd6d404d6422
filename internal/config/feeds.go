package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_feeds.yaml
var defaultFeedsYAML []byte

// Feed is one configured RSS/Atom source.
type Feed struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
	// Lang is "en" or "ar".
	Lang string `yaml:"lang" json:"lang"`
}

type feedsFile struct {
	Feeds []Feed `yaml:"feeds"`
}

// LoadFeeds reads the feed list from a YAML file.
func LoadFeeds(path string) ([]Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read feeds: %w", err)
	}
	feeds, err := parseFeeds(data)
	if err != nil {
		return nil, fmt.Errorf("config: parse feeds %s: %w", path, err)
	}
	return feeds, nil
}

// DefaultFeeds returns the built-in feed list.
func DefaultFeeds() []Feed {
	feeds, err := parseFeeds(defaultFeedsYAML)
	if err != nil {
		panic("config: embedded feeds: " + err.Error())
	}
	return feeds
}

func parseFeeds(data []byte) ([]Feed, error) {
	var f feedsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Feeds) == 0 {
		return nil, fmt.Errorf("no feeds defined")
	}
	for i := range f.Feeds {
		if err := validateFeed(&f.Feeds[i]); err != nil {
			return nil, fmt.Errorf("feed %d: %w", i, err)
		}
	}
	return f.Feeds, nil
}

func validateFeed(f *Feed) error {
	f.Name = strings.TrimSpace(f.Name)
	f.URL = strings.TrimSpace(f.URL)
	f.Lang = strings.ToLower(strings.TrimSpace(f.Lang))

	if f.URL == "" {
		return fmt.Errorf("missing url")
	}
	if !strings.HasPrefix(f.URL, "http://") && !strings.HasPrefix(f.URL, "https://") {
		return fmt.Errorf("url %q is not http(s)", f.URL)
	}
	if f.Lang != "en" && f.Lang != "ar" {
		return fmt.Errorf("lang %q must be en or ar", f.Lang)
	}
	if f.Name == "" {
		f.Name = f.URL
	}
	return nil
}
