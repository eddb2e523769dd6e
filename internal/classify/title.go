package classify

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var titleNoise = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(jersey|shirt|kit|uniform)\s+`),
	regexp.MustCompile(`(?i)\s+(jersey|shirt|kit|uniform)$`),
	regexp.MustCompile(`(?i)^(official|authentic|replica)\s+`),
	regexp.MustCompile(`(?i)\s+(official|authentic|replica)$`),
	regexp.MustCompile(`(?i)^(adidas|nike|puma|under armour)\s+`),
	regexp.MustCompile(`(?i)\s+(adidas|nike|puma|under armour)$`),
}

// CleanTitle strips garment, authenticity, and brand noise from either end of
// a title and title-cases the rest. Each noise rule is applied once, in order.
func CleanTitle(title string) string {
	cleaned := title
	for _, re := range titleNoise {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	return TitleCase(strings.TrimSpace(cleaned))
}

// TitleCase upper-cases the first rune of every space-separated word and
// lower-cases the remainder. Runs of spaces are preserved.
func TitleCase(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
