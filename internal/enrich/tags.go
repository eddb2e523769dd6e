package enrich

import (
	"slices"
	"strings"
)

type brandRule struct {
	brand     string
	fragments []string
}

// brandRules guess a kit supplier from the club name. First matching rule wins.
var brandRules = []brandRule{
	{brand: "Adidas", fragments: []string{"Arsenal", "Manchester United", "Real Madrid"}},
	{brand: "Nike", fragments: []string{"Barcelona", "PSG", "Paris Saint-Germain", "Chelsea"}},
	{brand: "Puma", fragments: []string{"Manchester City", "AC Milan"}},
}

// KnownBrands are the brand values a tag can be promoted to.
var KnownBrands = []string{"Adidas", "Nike", "Puma", "Under Armour"}

// Tags lists club, league, category, season, a brand guess, and a
// "<year> Season" tag, dropping repeats while keeping first-seen order.
func Tags(club, league, category, season string) []string {
	tags := []string{club, league, category, season}
	if brand := GuessBrand(club); brand != "" {
		tags = append(tags, brand)
	}
	year, _, _ := strings.Cut(season, "/")
	tags = append(tags, year+" Season")

	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if !slices.Contains(out, tag) {
			out = append(out, tag)
		}
	}
	return out
}

// GuessBrand returns the supplier associated with club, or "".
func GuessBrand(club string) string {
	for _, rule := range brandRules {
		for _, fragment := range rule.fragments {
			if strings.Contains(club, fragment) {
				return rule.brand
			}
		}
	}
	return ""
}

// BrandFromTags returns the first tag that names a known brand.
func BrandFromTags(tags []string, fallback string) string {
	for _, tag := range tags {
		if slices.Contains(KnownBrands, tag) {
			return tag
		}
	}
	return fallback
}
