package classify

import (
	"regexp"
	"slices"
	"strings"
)

// Entry is a single row of an ordered lookup table.
type Entry struct {
	Key   string
	Value string
}

// Table is an ordered list of lowercase keys mapped to canonical values.
// Lookups walk the entries in order and the first key found inside the
// input wins, so row order is part of the table's meaning.
type Table []Entry

// Find returns the value of the first entry whose key is a substring of lower.
func (t Table) Find(lower string) (string, bool) {
	for _, e := range t {
		if strings.Contains(lower, e.Key) {
			return e.Value, true
		}
	}
	return "", false
}

// Get returns the value stored under an exact key.
func (t Table) Get(key string) (string, bool) {
	for _, e := range t {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Membership lists lowercase club fragments that imply a league.
type Membership struct {
	League    string
	Fragments []string
}

// Tables bundles every lookup table and pattern list the Engine consults.
type Tables struct {
	Clubs      Table
	Leagues    Table
	Categories Table
	// ClubClusters capture a single club token per league cluster.
	ClubClusters []*regexp.Regexp
	// ClubShapes capture a club prefix from title structure.
	ClubShapes        []*regexp.Regexp
	LeagueMembers     []Membership
	Seasons           []*regexp.Regexp
	DefaultLeague     string
	DefaultCategory   string
	MinShapeLen       int
	MaxShapeLen       int
	MinFallbackLen    int
	MaxFallbackLen    int
	FallbackWordCount int
}

func (t Tables) clone() Tables {
	out := t
	out.Clubs = slices.Clone(t.Clubs)
	out.Leagues = slices.Clone(t.Leagues)
	out.Categories = slices.Clone(t.Categories)
	out.ClubClusters = slices.Clone(t.ClubClusters)
	out.ClubShapes = slices.Clone(t.ClubShapes)
	out.Seasons = slices.Clone(t.Seasons)
	out.LeagueMembers = make([]Membership, len(t.LeagueMembers))
	for i, m := range t.LeagueMembers {
		out.LeagueMembers[i] = Membership{League: m.League, Fragments: slices.Clone(m.Fragments)}
	}
	return out
}

// DefaultTables returns the storefront taxonomy. Each call returns fresh slices.
func DefaultTables() Tables {
	return Tables{
		Clubs:      slices.Clone(defaultClubs),
		Leagues:    slices.Clone(defaultLeagues),
		Categories: slices.Clone(defaultCategories),
		ClubClusters: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(arsenal|chelsea|manchester|united|city|liverpool|tottenham)`),
			regexp.MustCompile(`(?i)(barcelona|madrid|atletico|sevilla|valencia|bilbao)`),
			regexp.MustCompile(`(?i)(bayern|dortmund|leipzig|leverkusen|stuttgart|frankfurt)`),
			regexp.MustCompile(`(?i)(inter|milan|juventus|napoli|atalanta|roma|lazio)`),
			regexp.MustCompile(`(?i)(psg|monaco|nice|lille|lyon|marseille|lens)`),
		},
		ClubShapes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^([a-z\s]+)\s+(home|away|third|training|goalkeeper)`),
			regexp.MustCompile(`(?i)([a-z\s]+)\s+(jersey|kit|uniform|shirt)`),
			regexp.MustCompile(`(?i)([a-z\s]+)\s+(player|fan|replica)`),
		},
		LeagueMembers: []Membership{
			{League: "Premier League", Fragments: []string{
				"arsenal", "chelsea", "manchester", "leeds united", "west ham", "liverpool",
				"tottenham", "newcastle", "brighton", "crystal palace", "aston villa", "fulham",
				"brentford", "wolves", "everton", "nottingham forest", "burnley", "luton",
				"sheffield united", "bournemouth", "wolverhampton",
			}},
			{League: "La Liga", Fragments: []string{"barcelona", "madrid", "atletico"}},
			{League: "Bundesliga", Fragments: []string{"bayern", "dortmund", "leipzig"}},
			{League: "Serie A", Fragments: []string{"inter", "milan", "juventus", "napoli"}},
			{League: "Ligue 1", Fragments: []string{"psg", "paris saint-germain", "monaco", "nice"}},
		},
		Seasons: []*regexp.Regexp{
			regexp.MustCompile(`((?:19|20)\d{2}[/-](?:19|20)\d{2})`),
			regexp.MustCompile(`((?:19|20)\d{2}[/-]\d{2})`),
			regexp.MustCompile(`(?i)(season\s+(?:19|20)\d{2}[/-](?:19|20)\d{2})`),
			regexp.MustCompile(`(?i)((?:19|20)\d{2}[/-](?:19|20)\d{2}\s+season)`),
		},
		DefaultLeague:     "Other",
		DefaultCategory:   "Home",
		MinShapeLen:       3,
		MaxShapeLen:       50,
		MinFallbackLen:    3,
		MaxFallbackLen:    30,
		FallbackWordCount: 2,
	}
}

var defaultClubs = Table{
	// Premier League
	{"arsenal", "Arsenal"},
	{"chelsea", "Chelsea"},
	{"manchester united", "Manchester United"},
	{"manchester city", "Manchester City"},
	{"liverpool", "Liverpool"},
	{"tottenham", "Tottenham Hotspur"},
	{"newcastle", "Newcastle United"},
	{"brighton", "Brighton & Hove Albion"},
	{"west ham", "West Ham United"},
	{"leeds united", "Leeds United"},
	{"crystal palace", "Crystal Palace"},
	{"aston villa", "Aston Villa"},
	{"fulham", "Fulham"},
	{"brentford", "Brentford"},
	{"wolves", "Wolverhampton Wanderers"},
	{"everton", "Everton"},
	{"nottingham forest", "Nottingham Forest"},
	{"burnley", "Burnley"},
	{"luton", "Luton Town"},
	{"sheffield united", "Sheffield United"},
	{"bournemouth", "AFC Bournemouth"},

	// La Liga
	{"barcelona", "FC Barcelona"},
	{"real madrid", "Real Madrid"},
	{"atletico madrid", "Atlético Madrid"},
	{"sevilla", "Sevilla FC"},
	{"valencia", "Valencia CF"},
	{"athletic bilbao", "Athletic Bilbao"},
	{"real sociedad", "Real Sociedad"},
	{"villarreal", "Villarreal CF"},
	{"real betis", "Real Betis"},
	{"getafe", "Getafe CF"},
	{"girona", "Girona FC"},
	{"las palmas", "UD Las Palmas"},
	{"rayo vallecano", "Rayo Vallecano"},
	{"osasuna", "CA Osasuna"},
	{"mallorca", "RCD Mallorca"},
	{"alaves", "Deportivo Alavés"},
	{"celta vigo", "RC Celta de Vigo"},
	{"granada", "Granada CF"},
	{"cadiz", "Cádiz CF"},
	{"almeria", "UD Almería"},

	// Bundesliga
	{"bayern munich", "Bayern Munich"},
	{"borussia dortmund", "Borussia Dortmund"},
	{"rb leipzig", "RB Leipzig"},
	{"bayer leverkusen", "Bayer 04 Leverkusen"},
	{"vfb stuttgart", "VfB Stuttgart"},
	{"eintracht frankfurt", "Eintracht Frankfurt"},
	{"tsg hoffenheim", "TSG 1899 Hoffenheim"},
	{"sc freiburg", "SC Freiburg"},
	{"vfl wolfsburg", "VfL Wolfsburg"},
	{"1. fc heidenheim", "1. FC Heidenheim"},
	{"1. fc union berlin", "1. FC Union Berlin"},
	{"borussia mönchengladbach", "Borussia Mönchengladbach"},
	{"werder bremen", "SV Werder Bremen"},
	{"fc augsburg", "FC Augsburg"},
	{"1. fc köln", "1. FC Köln"},
	{"fsv mainz 05", "FSV Mainz 05"},
	{"vfl bochum", "VfL Bochum"},
	{"sv darmstadt 98", "SV Darmstadt 98"},

	// Serie A
	{"inter", "Inter Milan"},
	{"ac milan", "AC Milan"},
	{"juventus", "Juventus"},
	{"napoli", "SSC Napoli"},
	{"atalanta", "Atalanta BC"},
	{"roma", "AS Roma"},
	{"lazio", "SS Lazio"},
	{"fiorentina", "ACF Fiorentina"},
	{"bologna", "Bologna FC 1909"},
	{"torino", "Torino FC"},
	{"monza", "AC Monza"},
	{"genoa", "Genoa CFC"},
	{"lecce", "US Lecce"},
	{"frosinone", "Frosinone Calcio"},
	{"sassuolo", "US Sassuolo Calcio"},
	{"udinese", "Udinese Calcio"},
	{"cagliari", "Cagliari Calcio"},
	{"verona", "Hellas Verona FC"},
	{"empoli", "Empoli FC"},
	{"salernitana", "US Salernitana 1919"},

	// Ligue 1
	{"psg", "Paris Saint-Germain"},
	{"monaco", "AS Monaco"},
	{"nice", "OGC Nice"},
	{"lille", "LOSC Lille"},
	{"lyon", "Olympique Lyonnais"},
	{"marseille", "Olympique de Marseille"},
	{"lens", "RC Lens"},
	{"reims", "Stade de Reims"},
	{"strasbourg", "RC Strasbourg Alsace"},
	{"le havre", "Le Havre AC"},
	{"nantes", "FC Nantes"},
	{"toulouse", "Toulouse FC"},
	{"metz", "FC Metz"},
	{"clermont", "Clermont Foot 63"},
	{"montpellier", "Montpellier HSC"},
	{"brest", "Stade Brestois 29"},
	{"rennes", "Stade Rennais FC"},
	{"troyes", "ES Troyes AC"},
	{"auxerre", "AJ Auxerre"},
	{"ajaccio", "AC Ajaccio"},

	// Champions League regulars
	{"ajax", "AFC Ajax"},
	{"porto", "FC Porto"},
	{"benfica", "SL Benfica"},
	{"sporting cp", "Sporting CP"},
	{"shakhtar donetsk", "Shakhtar Donetsk"},
	{"dinamo zagreb", "GNK Dinamo Zagreb"},
	{"red star belgrade", "Red Star Belgrade"},
	{"olympiacos", "Olympiacos FC"},
	{"feyenoord", "Feyenoord"},
	{"psv", "PSV Eindhoven"},
	{"club brugge", "Club Brugge KV"},
	{"red bull salzburg", "Red Bull Salzburg"},
	{"young boys", "BSC Young Boys"},
	{"slavia prague", "SK Slavia Prague"},
	{"dinamo kyiv", "Dynamo Kyiv"},
	{"galatasaray", "Galatasaray SK"},
	{"besiktas", "Beşiktaş JK"},
	{"fenerbahce", "Fenerbahçe SK"},
	{"trabzonspor", "Trabzonspor"},
	{"basaksehir", "İstanbul Başakşehir FK"},
}

var defaultLeagues = Table{
	{"premier league", "Premier League"},
	{"la liga", "La Liga"},
	{"bundesliga", "Bundesliga"},
	{"serie a", "Serie A"},
	{"ligue 1", "Ligue 1"},
	{"champions league", "Champions League"},
	{"europa league", "Europa League"},
	{"conference league", "Conference League"},
	{"national team", "National Teams"},
	{"world cup", "National Teams"},
	{"euro", "National Teams"},
}

var defaultCategories = Table{
	{"home", "Home"},
	{"away", "Away"},
	{"third", "Third"},
	{"fourth", "Fourth"},
	{"gk", "GK"},
	{"goalkeeper", "GK"},
	{"training", "Training"},
	{"warm up", "Training"},
	{"accessory", "Accessory"},
	{"accessories", "Accessory"},
	{"jacket", "Accessory"},
	{"pants", "Accessory"},
	{"shorts", "Accessory"},
	{"socks", "Accessory"},
	{"scarf", "Accessory"},
	{"hat", "Accessory"},
	{"cap", "Accessory"},
}
