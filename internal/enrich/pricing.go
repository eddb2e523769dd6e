package enrich

import (
	"math"
	"math/rand/v2"
	"regexp"
	"slices"
	"unicode/utf16"

	"github.com/JakeFAU/soccer-vault/internal/catalog"
)

var basePrices = map[catalog.Category]int{
	catalog.CategoryHome:      85,
	catalog.CategoryAway:      85,
	catalog.CategoryThird:     90,
	catalog.CategoryFourth:    90,
	catalog.CategoryGK:        95,
	catalog.CategoryTraining:  65,
	catalog.CategoryAccessory: 45,
}

var premiumClubs = []string{
	"Real Madrid",
	"Barcelona",
	"FC Barcelona",
	"Manchester United",
	"Liverpool",
	"PSG",
	"Paris Saint-Germain",
}

const (
	defaultBasePrice = 85
	premiumMarkup    = 15
	minBasePrice     = 45
	retroFloor       = 85
)

// BasePrice draws the stored price: the category rate, a premium-club markup,
// and a variation in [-10, 9] taken from rng.
func BasePrice(club string, category catalog.Category, rng *rand.Rand) int {
	base, ok := basePrices[category]
	if !ok {
		base = defaultBasePrice
	}
	if slices.Contains(premiumClubs, club) {
		base += premiumMarkup
	}
	variation := rng.IntN(20) - 10
	return max(minBasePrice, base+variation)
}

var (
	retroTitle  = regexp.MustCompile(`(?i)retro`)
	retroSeason = regexp.MustCompile(`^(19\d{2}|20(0\d|1\d|2[0-3]))/`)
)

// IsRetro reports whether a product is a retro shirt by title or season.
func IsRetro(p catalog.Product) bool {
	return retroTitle.MatchString(p.Title) || retroSeason.MatchString(p.Season)
}

// DisplayPrice returns the shelf price. Retro shirts never show below 85.
// Current shirts are banded by a hash of id, title, and brand: 60% land in
// 60..70, 30% in 70..80, and 10% in 80..85.
func DisplayPrice(p catalog.Product) int {
	if IsRetro(p) {
		return max(p.Price, retroFloor)
	}
	r := hashToUnit(p.ID + "|" + p.Title + "|" + p.Brand)
	var price int
	switch {
	case r < 0.6:
		price = 60 + roundHalfUp(r/0.6*10)
	case r < 0.9:
		price = 70 + roundHalfUp((r-0.6)/0.3*10)
	default:
		price = 80 + roundHalfUp((r-0.9)/0.1*5)
	}
	return min(max(price, 60), 85)
}

// hashToUnit folds UTF-16 code units with a 31 multiplier modulo 2^32 and maps
// the result onto [0, 0.999].
func hashToUnit(s string) float64 {
	var h uint32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = h*31 + uint32(unit)
	}
	return float64(h%1000) / 1000
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
