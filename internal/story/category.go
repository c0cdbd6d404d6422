package story

import (
	"regexp"
	"strings"
)

// Category is a topical tag guessed from an item's text.
type Category string

const (
	CategoryUAE       Category = "UAE"
	CategoryBusiness  Category = "Business"
	CategoryTech      Category = "Tech"
	CategorySports    Category = "Sports"
	CategoryLifestyle Category = "Lifestyle"
)

// DefaultPlaceholder is used when a category has no placeholder of its own.
const DefaultPlaceholder = "https://images.unsplash.com/photo-1469474968028-56623f02e42e?q=80&w=1200&auto=format&fit=crop"

var placeholders = map[Category]string{
	CategoryUAE:       DefaultPlaceholder,
	CategoryBusiness:  "https://placehold.co/1200x675/0f172a/ffffff?text=Business",
	CategoryTech:      "https://placehold.co/1200x675/1e3a8a/ffffff?text=Tech",
	CategorySports:    "https://placehold.co/1200x675/14532d/ffffff?text=Sports",
	CategoryLifestyle: "https://placehold.co/1200x675/7c2d12/ffffff?text=Lifestyle",
}

// PlaceholderImage returns the placeholder image for a category.
func PlaceholderImage(c Category) string {
	if p, ok := placeholders[c]; ok {
		return p
	}
	return DefaultPlaceholder
}

// IsPlaceholder reports whether u is one of the placeholder images.
func IsPlaceholder(u string) bool {
	if u == DefaultPlaceholder {
		return true
	}
	for _, p := range placeholders {
		if u == p {
			return true
		}
	}
	return false
}

type categoryRule struct {
	category Category
	re       *regexp.Regexp
}

// categoryRules are checked in order; the first match wins. The regional
// rule comes last so topical matches take precedence over place names.
var categoryRules = []categoryRule{
	{CategoryBusiness, regexp.MustCompile(`\b(business|econom\w*|market\w*|stocks?|shares|investors?|investment\w*|banks?|banking|oil|opec|trade|gdp|inflation|ipo|revenue|profit\w*|real estate|property)\b|اقتصاد|أسواق|الأسهم|بورصة|استثمار|نفط|مصرف|بنك`)},
	{CategoryTech, regexp.MustCompile(`\b(tech\w*|ai|artificial intelligence|software|apps?|cyber\w*|digital|smartphones?|startups?|robot\w*|crypto\w*|blockchain|5g|chips?|semiconductor\w*)\b|تقنية|تكنولوجيا|الذكاء الاصطناعي|رقمي`)},
	{CategorySports, regexp.MustCompile(`\b(sports?|football|soccer|cricket|tennis|golf|f1|formula 1|grand prix|league|olympic\w*|fifa|uefa|championship|tournament)\b|رياضة|رياضي|كرة القدم|مباراة|الدوري|بطولة`)},
	{CategoryLifestyle, regexp.MustCompile(`\b(lifestyle|travel|food|restaurants?|fashion|wellness|culture|art|music|films?|movies?|festival|hotels?|tourism)\b|سياحة|موضة|مطعم|ثقافة|مهرجان|فنون`)},
	{CategoryUAE, regexp.MustCompile(`\b(uae|emirat\w*|dubai|abu dhabi|sharjah|ajman|fujairah|ras al khaimah|umm al quwain|gulf|gcc)\b|الإمارات|الامارات|دبي|أبوظبي|أبو ظبي|ابوظبي|الشارقة|عجمان|الفجيرة|رأس الخيمة|الخليج`)},
}

// InferCategory guesses a category from title and description text. Items
// that match nothing default to UAE.
func InferCategory(title, description string) Category {
	text := strings.ToLower(title + " " + description)
	for _, rule := range categoryRules {
		if rule.re.MatchString(text) {
			return rule.category
		}
	}
	return CategoryUAE
}
