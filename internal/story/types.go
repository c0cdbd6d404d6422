// Package story turns raw feed items into canonical bilingual stories. It
// holds the normalizer, the event clustering engine, per-language source
// selection, the translation filler and output assembly.
package story

import (
	"strings"
	"time"
)

// Lang is the language an item is written in.
type Lang string

const (
	EN Lang = "EN"
	AR Lang = "AR"
)

// ParseLang accepts "en"/"ar" in any case.
func ParseLang(s string) (Lang, bool) {
	switch Lang(strings.ToUpper(strings.TrimSpace(s))) {
	case EN:
		return EN, true
	case AR:
		return AR, true
	}
	return "", false
}

// Other returns the opposite language.
func (l Lang) Other() Lang {
	if l == AR {
		return EN
	}
	return AR
}

// RawItem is one article as handed over by feed ingestion or the headline
// API, before any cleaning.
type RawItem struct {
	Title       string
	Description string
	Link        string
	PubDate     string
	ImageURL    string
	SourceName  string
	Lang        Lang
}

// FeedItem is one normalized article from one source in one language.
type FeedItem struct {
	Lang        Lang      `json:"lang"`
	SourceName  string    `json:"sourceName"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Image       string    `json:"image"`
	PublishedAt time.Time `json:"publishedAt"`
	Category    Category  `json:"category"`
	Host        string    `json:"host"`
}

// Cluster is a group of items believed to report the same event, in the
// order they were added.
type Cluster struct {
	Items []FeedItem
}

// Story is the canonical bilingual record built from one cluster.
type Story struct {
	ID          string    `json:"id"`
	Category    Category  `json:"category"`
	PublishedAt time.Time `json:"publishedAt"`
	ImageURL    string    `json:"imageUrl,omitempty"`

	TitleEN          string `json:"titleEN,omitempty"`
	SummaryEN        string `json:"summaryEN,omitempty"`
	SourceEN         string `json:"sourceEN,omitempty"`
	URLEN            string `json:"urlEN,omitempty"`
	TranslatedFromEN bool   `json:"translatedFromEN"`

	TitleAR          string `json:"titleAR,omitempty"`
	SummaryAR        string `json:"summaryAR,omitempty"`
	SourceAR         string `json:"sourceAR,omitempty"`
	URLAR            string `json:"urlAR,omitempty"`
	TranslatedFromAR bool   `json:"translatedFromAR"`
}

// Title returns the title of the given language side.
func (s Story) Title(l Lang) string {
	if l == AR {
		return s.TitleAR
	}
	return s.TitleEN
}

// Summary returns the summary of the given language side.
func (s Story) Summary(l Lang) string {
	if l == AR {
		return s.SummaryAR
	}
	return s.SummaryEN
}

// URL returns the link of the given language side.
func (s Story) URL(l Lang) string {
	if l == AR {
		return s.URLAR
	}
	return s.URLEN
}

// Source returns the publisher name of the given language side.
func (s Story) Source(l Lang) string {
	if l == AR {
		return s.SourceAR
	}
	return s.SourceEN
}

// Translated reports whether the given side was filled by translation.
func (s Story) Translated(l Lang) bool {
	if l == AR {
		return s.TranslatedFromAR
	}
	return s.TranslatedFromEN
}
