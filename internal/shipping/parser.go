package shipping

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Details is what free-form shipping text parses into.
type Details struct {
	City         string
	State        string
	Zip          string
	WeightOz     float64
	ServiceLevel string
}

func (d Details) HasDestination() bool {
	return d.City != "" || d.State != "" || d.Zip != ""
}

func (d Details) HasWeight() bool { return d.WeightOz > 0 }

var stateAbbrevs = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID",
	"illinois": "IL", "indiana": "IN", "iowa": "IA", "kansas": "KS",
	"kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS",
	"missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
	"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY",
}

// cityStates maps well-known city names to their usual state so a bare city
// mention still produces a usable destination.
var cityStates = map[string]string{
	"new york":      "NY",
	"new york city": "NY",
	"nyc":           "NY",
	"los angeles":   "CA",
	"la":            "CA",
	"chicago":       "IL",
	"chi":           "IL",
	"houston":       "TX",
	"phoenix":       "AZ",
	"philadelphia":  "PA",
	"philly":        "PA",
	"san antonio":   "TX",
	"san diego":     "CA",
	"dallas":        "TX",
	"san francisco": "CA",
	"sf":            "CA",
	"austin":        "TX",
	"seattle":       "WA",
	"denver":        "CO",
	"boston":        "MA",
	"miami":         "FL",
	"atlanta":       "GA",
	"atl":           "GA",
	"portland":      "OR",
	"las vegas":     "NV",
	"vegas":         "NV",
	"nashville":     "TN",
	"detroit":       "MI",
	"memphis":       "TN",
	"louisville":    "KY",
	"baltimore":     "MD",
	"milwaukee":     "WI",
	"albuquerque":   "NM",
	"tucson":        "AZ",
	"sacramento":    "CA",
	"kansas city":   "MO",
	"omaha":         "NE",
	"minneapolis":   "MN",
	"new orleans":   "LA",
	"cleveland":     "OH",
	"tampa":         "FL",
	"orlando":       "FL",
	"pittsburgh":    "PA",
	"cincinnati":    "OH",
	"st louis":      "MO",
	"st. louis":     "MO",
}

var cityCanonical = map[string]string{
	"new york city": "New York",
	"nyc":           "New York",
	"la":            "Los Angeles",
	"sf":            "San Francisco",
	"philly":        "Philadelphia",
	"vegas":         "Las Vegas",
	"atl":           "Atlanta",
	"chi":           "Chicago",
	"st louis":      "St. Louis",
	"st. louis":     "St. Louis",
}

var (
	poundsRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:lbs?|pounds?)\b`)
	ouncesRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:oz|ounces?)\b`)
	kilosRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:kgs?|kilos?|kilograms?)\b`)
	gramsRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:g|grams?)\b`)
	zipRe    = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)
	toCityRe = regexp.MustCompile(`\bto\s+([A-Z][a-z]+(?:\s[A-Z][a-z]+)?)`)
)

var (
	statePatterns = compileNamePatterns(stateAbbrevs)
	cityPatterns  = compileNamePatterns(cityStates)
)

func compileNamePatterns(names map[string]string) map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(names))
	for name := range names {
		patterns[name] = regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
	}
	return patterns
}

// ParseWeight extracts a weight in ounces; zero means no weight was found.
// Pounds are checked first so "2 lb 3 oz" style text keeps the larger unit.
func ParseWeight(text string) float64 {
	lower := strings.ToLower(text)
	if m := poundsRe.FindStringSubmatch(lower); m != nil {
		return parseFloat(m[1]) * 16
	}
	if m := ouncesRe.FindStringSubmatch(lower); m != nil {
		return parseFloat(m[1])
	}
	if m := kilosRe.FindStringSubmatch(lower); m != nil {
		return parseFloat(m[1]) * 35.274
	}
	if m := gramsRe.FindStringSubmatch(lower); m != nil {
		return parseFloat(m[1]) * 0.035274
	}
	return 0
}

// ParseZip pulls a 5-digit ZIP out of the text, tolerating ZIP+4.
func ParseZip(text string) string {
	if m := zipRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// ParseState finds a state by full name or two-letter abbreviation.
func ParseState(text string) string {
	lower := strings.ToLower(text)
	// Longest name wins so "west virginia" never reads as "virginia".
	bestName := ""
	for name := range stateAbbrevs {
		if len(name) > len(bestName) && statePatterns[name].MatchString(lower) {
			bestName = name
		}
	}
	if bestName != "" {
		return stateAbbrevs[bestName]
	}
	// Bare abbreviations must be uppercase in the source text so words
	// like "or" and "in" do not read as states.
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,!?;:")
		if len(word) == 2 && word == strings.ToUpper(word) && isStateAbbrev(word) {
			return word
		}
	}
	return ""
}

// ParseCity matches a known city name or alias, falling back to a capitalized
// phrase following "to".
func ParseCity(text string) string {
	lower := strings.ToLower(text)
	best := ""
	for city := range cityStates {
		if len(city) <= len(best) {
			continue
		}
		if cityPatterns[city].MatchString(lower) {
			best = city
		}
	}
	if best != "" {
		if canonical, ok := cityCanonical[best]; ok {
			return canonical
		}
		return titleCase(best)
	}
	if m := toCityRe.FindStringSubmatch(text); m != nil {
		candidate := m[1]
		if !isStateAbbrev(strings.ToUpper(candidate)) {
			return candidate
		}
	}
	return ""
}

// ParseServiceLevel recognizes a requested speed tier.
func ParseServiceLevel(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "overnight") || strings.Contains(lower, "next day") || strings.Contains(lower, "next-day"):
		return "overnight"
	case strings.Contains(lower, "express") || strings.Contains(lower, "2 day") || strings.Contains(lower, "2-day") || strings.Contains(lower, "two day"):
		return "express"
	case strings.Contains(lower, "ground") || strings.Contains(lower, "cheapest") || strings.Contains(lower, "slowest"):
		return "ground"
	}
	return ""
}

// Parse extracts all shipping details present in the text.
func Parse(text string) Details {
	d := Details{
		City:         ParseCity(text),
		Zip:          ParseZip(text),
		WeightOz:     ParseWeight(text),
		ServiceLevel: ParseServiceLevel(text),
	}
	d.State = ParseState(text)
	if d.State == "" && d.City != "" {
		d.State = cityStates[strings.ToLower(d.City)]
	}
	return d
}

// Describe renders the parsed details for display.
func (d Details) Describe() string {
	var parts []string
	if d.City != "" || d.State != "" {
		dest := d.City
		if d.State != "" {
			if dest != "" {
				dest += ", "
			}
			dest += d.State
		}
		parts = append(parts, "to "+dest)
	}
	if d.Zip != "" {
		parts = append(parts, "zip "+d.Zip)
	}
	if d.HasWeight() {
		parts = append(parts, fmt.Sprintf("%.1f oz", d.WeightOz))
	}
	if d.ServiceLevel != "" {
		parts = append(parts, d.ServiceLevel+" service")
	}
	if len(parts) == 0 {
		return "no shipping details"
	}
	return strings.Join(parts, ", ")
}

func isStateAbbrev(s string) bool {
	for _, abbrev := range stateAbbrevs {
		if abbrev == s {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
