package story

import "strings"

type familyRule struct {
	needle string
	family string
}

// publisherFamilies maps host substrings to a publisher identity so that an
// outlet's English and Arabic editions share one family. The first needle
// found in the host wins.
var publisherFamilies = []familyRule{
	{"reuters", "reuters"},
	{"apnews", "apnews"},
	{"bbc", "bbc"},
	{"thenational", "thenational"},
	{"khaleejtimes", "khaleejtimes"},
	{"gulfnews", "gulfnews"},
	{"arabnews", "arabnews"},
	{"aljazeera", "aljazeera"},
	{"cnn", "cnn"},
	{"skynewsarabia", "skynews"},
	{"skynews", "skynews"},
	{"alarabiya", "alarabiya"},
	{"wam.ae", "wam"},
	{"albayan", "albayan"},
	{"alkhaleej", "alkhaleej"},
	{"emaratalyoum", "emaratalyoum"},
	{"aawsat", "asharq"},
	{"asharq", "asharq"},
	{"arabianbusiness", "arabianbusiness"},
}

var sourcePriority = map[Lang][]string{
	EN: {"reuters", "apnews", "bbc", "thenational", "khaleejtimes", "gulfnews", "arabnews", "aljazeera", "cnn"},
	AR: {"wam", "albayan", "alkhaleej", "emaratalyoum", "skynews", "alarabiya", "aljazeera", "bbc", "cnn", "asharq"},
}

// Family returns the publisher family of a host. Unknown hosts are their
// own family; an empty host has none.
func Family(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return ""
	}
	for _, r := range publisherFamilies {
		if strings.Contains(host, r.needle) {
			return r.family
		}
	}
	return host
}

// PriorityRank returns the position of family in the preferred-publisher
// list for lang. Unlisted families rank after every listed one.
func PriorityRank(family string, lang Lang) int {
	list := sourcePriority[lang]
	for i, f := range list {
		if f == family {
			return i
		}
	}
	return len(list)
}
