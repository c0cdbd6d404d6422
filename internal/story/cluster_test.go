package story

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func item(lang Lang, host, title, url string, at time.Time) FeedItem {
	return FeedItem{
		Lang:        lang,
		SourceName:  host,
		Title:       title,
		URL:         url,
		Host:        host,
		PublishedAt: at,
		Category:    CategoryUAE,
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"The UAE and Oman sign a trade deal", []string{"uae", "oman", "sign", "trade", "deal"}},
		{"Dubai's 2025 budget: AED 100bn!", []string{"dubai", "2025", "budget", "aed", "100bn"}},
		{"دبي تطلق مشروعاً جديداً", []string{"دبي", "تطلق", "مشروعا", "جديدا"}},
		{"مَدرَسة جديدة", []string{"مدرسة", "جديدة"}},
		{"الإمـــارات", []string{"الإمارات"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		got := Tokenize(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTitleJaccard(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 0},
		{"alpha bravo charlie", "alpha bravo charlie", 1},
		{"alpha bravo", "charlie delta", 0},
		{"alpha bravo charlie delta", "alpha bravo charlie echo", 0.6},
	}
	for _, tt := range tests {
		if got := TitleJaccard(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("TitleJaccard(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFamily(t *testing.T) {
	tests := map[string]string{
		"arabic.cnn.com":         "cnn",
		"edition.cnn.com":        "cnn",
		"thenationalnews.com":    "thenational",
		"skynewsarabia.com":      "skynews",
		"feeds.bbci.co.uk":       "bbc",
		"wam.ae":                 "wam",
		"aawsat.com":             "asharq",
		"unknown-outlet.example": "unknown-outlet.example",
		"":                       "",
	}
	for host, want := range tests {
		if got := Family(host); got != want {
			t.Errorf("Family(%q) = %q, want %q", host, got, want)
		}
	}
}

func TestCanPair(t *testing.T) {
	opts := DefaultClusterOptions()
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	// 7 shared tokens out of 10 total: Jaccard 0.70.
	high := "alpha bravo charlie delta echo foxtrot golf hotel"
	highPeer := "alpha bravo charlie delta echo foxtrot golf india juliet"
	// 4 shared tokens out of 10 total: Jaccard 0.40.
	low := "alpha bravo charlie delta echo foxtrot golf"
	lowPeer := "alpha bravo charlie delta hotel india juliet"

	tests := []struct {
		name string
		a, b FeedItem
		want bool
	}{
		{
			name: "identical url ignores time and title",
			a:    item(EN, "a.example", "one", "https://x.example/1", base),
			b:    item(AR, "b.example", "شيء آخر تماما", "https://x.example/1", base.Add(72*time.Hour)),
			want: true,
		},
		{
			name: "cross family above 0.60",
			a:    item(EN, "reuters.com", high, "https://reuters.com/1", base),
			b:    item(EN, "gulfnews.com", highPeer, "https://gulfnews.com/1", base.Add(time.Hour)),
			want: true,
		},
		{
			name: "cross family at 0.40",
			a:    item(EN, "reuters.com", low, "https://reuters.com/1", base),
			b:    item(EN, "gulfnews.com", lowPeer, "https://gulfnews.com/1", base.Add(time.Hour)),
			want: false,
		},
		{
			name: "same family at 0.40",
			a:    item(EN, "edition.cnn.com", low, "https://edition.cnn.com/1", base),
			b:    item(EN, "cnn.com", lowPeer, "https://cnn.com/1", base.Add(time.Hour)),
			want: true,
		},
		{
			name: "outside window",
			a:    item(EN, "reuters.com", high, "https://reuters.com/1", base),
			b:    item(EN, "gulfnews.com", high, "https://gulfnews.com/1", base.Add(13*time.Hour)),
			want: false,
		},
		{
			name: "empty hosts have no family",
			a:    item(EN, "", low, "https://a/1", base),
			b:    item(EN, "", lowPeer, "https://b/1", base),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanPair(tt.a, tt.b, opts); got != tt.want {
				t.Errorf("CanPair = %v, want %v (jaccard %.2f)", got, tt.want, TitleJaccard(tt.a.Title, tt.b.Title))
			}
			if got := CanPair(tt.b, tt.a, opts); got != tt.want {
				t.Errorf("CanPair reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClusterItemsGreedy(t *testing.T) {
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	items := []FeedItem{
		item(EN, "thenationalnews.com", "Dubai metro blue line opens to passengers", "https://thenationalnews.com/1", base),
		item(EN, "khaleejtimes.com", "Sharjah announces school calendar changes", "https://khaleejtimes.com/1", base),
		item(AR, "arabic.cnn.com", "افتتاح الخط الأزرق لمترو دبي", "https://arabic.cnn.com/1", base),
		item(EN, "gulfnews.com", "Dubai metro blue line opens to passengers today", "https://gulfnews.com/1", base.Add(2*time.Hour)),
		item(AR, "skynewsarabia.com", "افتتاح الخط الأزرق لمترو دبي", "https://arabic.cnn.com/1", base),
	}

	clusters := ClusterItems(items, DefaultClusterOptions())
	sizes := make([]int, len(clusters))
	for i, c := range clusters {
		sizes[i] = len(c.Items)
	}
	if want := []int{2, 1, 2}; !reflect.DeepEqual(sizes, want) {
		t.Fatalf("cluster sizes = %v, want %v", sizes, want)
	}
	if clusters[0].Items[1].Host != "gulfnews.com" {
		t.Errorf("first cluster second member = %q, want gulfnews.com", clusters[0].Items[1].Host)
	}

	again := ClusterItems(items, DefaultClusterOptions())
	if !reflect.DeepEqual(clusters, again) {
		t.Error("clustering is not deterministic for the same input order")
	}
}

func TestClusterItemsDisjoint(t *testing.T) {
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	items := []FeedItem{
		item(EN, "reuters.com", "Oil prices climb after OPEC meeting", "https://reuters.com/1", base),
		item(EN, "bbc.co.uk", "Football club signs new striker", "https://bbc.co.uk/1", base.Add(20*time.Hour)),
	}
	if got := len(ClusterItems(items, DefaultClusterOptions())); got != 2 {
		t.Errorf("disjoint items formed %d clusters, want 2", got)
	}
}

func TestClusterItemsEmpty(t *testing.T) {
	if got := ClusterItems(nil, DefaultClusterOptions()); len(got) != 0 {
		t.Errorf("ClusterItems(nil) = %v, want empty", got)
	}
}
