package crawler

import "strings"

// substringBlocklist rejects URLs containing any configured keyword.
type substringBlocklist struct {
	keywords []string
}

func newSubstringBlocklist(keywords []string) *substringBlocklist {
	normalized := normalizeKeywords(keywords)
	if len(normalized) == 0 {
		return nil
	}
	return &substringBlocklist{keywords: normalized}
}

// IsBlocked reports whether raw contains a blocked keyword, ignoring case.
func (b *substringBlocklist) IsBlocked(raw string) bool {
	if b == nil {
		return false
	}
	lower := strings.ToLower(raw)
	for _, kw := range b.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
