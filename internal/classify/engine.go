// Package classify maps free-text album titles onto the storefront taxonomy.
//
// The Engine is a pure function of its injected Tables and Clock: the same
// title always yields the same Classification for a given calendar year.
package classify

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Clock returns the current time. Only the year is used, for default seasons.
type Clock interface {
	Now() time.Time
}

// Classification is the structured view of a title.
type Classification struct {
	// Club is empty when no resolution stage produced a club.
	Club     string
	League   string
	Category string
	Season   string
}

// HasClub reports whether a club was resolved.
func (c Classification) HasClub() bool {
	return c.Club != ""
}

// Engine resolves club, league, category, and season from a title.
type Engine struct {
	tables Tables
	clock  Clock
}

// NewEngine builds an Engine over a private copy of tables.
func NewEngine(tables Tables, clock Clock) (*Engine, error) {
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if tables.DefaultCategory == "" || tables.DefaultLeague == "" {
		return nil, fmt.Errorf("default league and category are required")
	}
	return &Engine{tables: tables.clone(), clock: clock}, nil
}

// Classify runs every resolver over title.
func (e *Engine) Classify(title string) Classification {
	club := e.Club(title)
	return Classification{
		Club:     club,
		League:   e.League(title, club),
		Category: e.Category(title),
		Season:   e.Season(title),
	}
}

// Club walks the resolution chain and returns "" when nothing matches.
func (e *Engine) Club(title string) string {
	lower := strings.ToLower(title)
	if club, ok := e.tables.Clubs.Find(lower); ok {
		return club
	}

	for _, re := range e.tables.ClubClusters {
		m := re.FindStringSubmatch(title)
		if m == nil {
			continue
		}
		token := strings.ToLower(m[1])
		if club, ok := e.tables.Clubs.Get(token); ok {
			return club
		}
		return TitleCase(token)
	}

	for _, re := range e.tables.ClubShapes {
		m := re.FindStringSubmatch(title)
		if m == nil || m[1] == "" {
			continue
		}
		candidate := strings.TrimSpace(m[1])
		if within(candidate, e.tables.MinShapeLen, e.tables.MaxShapeLen) {
			return TitleCase(candidate)
		}
	}

	words := strings.Fields(fallbackNoise.ReplaceAllString(title, " "))
	if n := e.tables.FallbackWordCount; n > 0 && len(words) >= n {
		candidate := strings.Join(words[:n], " ")
		if within(candidate, e.tables.MinFallbackLen, e.tables.MaxFallbackLen) {
			return TitleCase(candidate)
		}
	}
	return ""
}

// League prefers an explicit league mention, then club membership.
func (e *Engine) League(title, club string) string {
	if league, ok := e.tables.Leagues.Find(strings.ToLower(title)); ok {
		return league
	}
	lowerClub := strings.ToLower(club)
	if lowerClub == "" {
		return e.tables.DefaultLeague
	}
	for _, m := range e.tables.LeagueMembers {
		for _, fragment := range m.Fragments {
			if strings.Contains(lowerClub, fragment) {
				return m.League
			}
		}
	}
	return e.tables.DefaultLeague
}

// Category falls back to the default category when no keyword matches.
func (e *Engine) Category(title string) string {
	if category, ok := e.tables.Categories.Find(strings.ToLower(title)); ok {
		return category
	}
	return e.tables.DefaultCategory
}

// Season returns the first season pattern found, normalized to slashes,
// or the season starting in the current year.
func (e *Engine) Season(title string) string {
	for _, re := range e.tables.Seasons {
		m := re.FindStringSubmatch(title)
		if m == nil {
			continue
		}
		season := strings.ReplaceAll(m[1], "-", "/")
		season = seasonPrefix.ReplaceAllString(season, "")
		season = seasonSuffix.ReplaceAllString(season, "")
		return season
	}
	year := e.clock.Now().Year()
	return fmt.Sprintf("%d/%d", year, year+1)
}

var (
	fallbackNoise = regexp.MustCompile(`[0-9/\-()]`)
	seasonPrefix  = regexp.MustCompile(`(?i)season\s+`)
	seasonSuffix  = regexp.MustCompile(`(?i)\s+season`)
)

func within(s string, minLen, maxLen int) bool {
	n := utf8.RuneCountInString(s)
	return n >= minLen && n < maxLen
}
