package address

import (
	"errors"
	"regexp"
	"strings"
)

// ErrAmbiguous reports that the utterance could not be tagged into address
// components. The flow routes it to the format-invalid recovery node, which
// asks for a fresh full address.
var ErrAmbiguous = errors.New("address: ambiguous address structure")

// Components holds the tagged substrings of one free-text address utterance.
// Tokens keep their original spelling; only the state is normalized to its
// two-letter abbreviation.
type Components struct {
	HouseNumberPrefix string
	HouseNumber       string
	HouseNumberSuffix string
	PreDirectional    string
	StreetName        string
	PostType          string
	PostDirectional   string
	Subaddress        string
	City              string
	StateName         string
	StateAbbr         string
	Zip5              string
	Zip4              string
}

// Complete reports whether the components carry everything the validation
// service requires.
func (c Components) Complete() bool {
	return c.StreetLine() != "" && c.City != "" && c.StateAbbr != "" && c.Zip5 != ""
}

// StreetLine reassembles the street address in fixed USPS presentation order:
// number, pre-directional, name, post type, post-directional, subaddress.
// The order is canonical regardless of how the words arrived.
func (c Components) StreetLine() string {
	number := c.HouseNumberPrefix + c.HouseNumber + c.HouseNumberSuffix
	parts := make([]string, 0, 6)
	for _, p := range []string{number, c.PreDirectional, c.StreetName, c.PostType, c.PostDirectional, c.Subaddress} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

var (
	zipPattern         = regexp.MustCompile(`\b(\d{5})(?:-(\d{4}))?\b`)
	houseNumberPattern = regexp.MustCompile(`^([A-Za-z])?(\d+)([A-Za-z])?$`)
)

// directionals covers spoken and abbreviated forms.
var directionals = map[string]struct{}{
	"n": {}, "s": {}, "e": {}, "w": {},
	"ne": {}, "nw": {}, "se": {}, "sw": {},
	"north": {}, "south": {}, "east": {}, "west": {},
	"northeast": {}, "northwest": {}, "southeast": {}, "southwest": {},
}

// postTypes covers the street designators patients actually say.
var postTypes = map[string]struct{}{
	"street": {}, "st": {}, "avenue": {}, "ave": {}, "boulevard": {},
	"blvd": {}, "road": {}, "rd": {}, "drive": {}, "dr": {}, "lane": {},
	"ln": {}, "court": {}, "ct": {}, "circle": {}, "cir": {}, "place": {},
	"pl": {}, "terrace": {}, "ter": {}, "trail": {}, "trl": {}, "way": {},
	"parkway": {}, "pkwy": {}, "highway": {}, "hwy": {}, "square": {},
	"sq": {}, "loop": {},
}

// subaddressMarkers open a secondary-unit designator.
var subaddressMarkers = map[string]struct{}{
	"apt": {}, "apartment": {}, "unit": {}, "suite": {}, "ste": {},
	"bldg": {}, "building": {}, "floor": {}, "fl": {}, "room": {}, "rm": {},
}

func normalizeToken(tok string) string {
	return strings.ToLower(strings.TrimRight(tok, ".,"))
}

// Parse tags one free-text address utterance into components. It prefers
// comma segmentation ("123 Main Street, New York, NY 10001") and falls back
// to token scanning when the transcript lost the commas. Inputs whose
// structure cannot be resolved return ErrAmbiguous.
func Parse(text string) (Components, error) {
	var c Components

	cleaned := strings.Join(strings.Fields(text), " ")
	cleaned = strings.TrimRight(cleaned, ". ")
	if cleaned == "" {
		return c, ErrAmbiguous
	}

	zipLoc := zipPattern.FindStringSubmatchIndex(cleaned)
	if zipLoc == nil {
		return c, ErrAmbiguous
	}
	groups := zipPattern.FindStringSubmatch(cleaned[zipLoc[0]:zipLoc[1]])
	c.Zip5 = groups[1]
	c.Zip4 = groups[2]

	head := strings.TrimRight(strings.TrimSpace(cleaned[:zipLoc[0]]), ",")
	segments := splitSegments(head)

	var streetSeg, citySeg, stateSeg string
	switch {
	case len(segments) >= 3:
		stateSeg = segments[len(segments)-1]
		citySeg = segments[len(segments)-2]
		streetSeg = strings.Join(segments[:len(segments)-2], " ")
	case len(segments) == 2:
		// "123 Main St, New York NY" — the state rides with the city.
		streetSeg = segments[0]
		citySeg, stateSeg = splitCityState(segments[1])
	default:
		// No commas survived transcription; without segment boundaries the
		// city/street split cannot be resolved reliably.
		return c, ErrAmbiguous
	}

	if stateSeg == "" {
		return c, ErrAmbiguous
	}
	c.StateName = stateSeg
	abbr, ok := StateAbbreviation(stateSeg)
	if !ok {
		return c, ErrAmbiguous
	}
	c.StateAbbr = abbr
	c.City = strings.TrimSpace(citySeg)

	if err := c.tagStreet(streetSeg); err != nil {
		return c, err
	}
	return c, nil
}

func splitSegments(head string) []string {
	raw := strings.Split(head, ",")
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// splitCityState pulls a trailing state name or abbreviation off a combined
// "City State" segment, trying the longest state-name suffix first so that
// "New York New York" resolves city="New York".
func splitCityState(segment string) (city, state string) {
	words := strings.Fields(segment)
	for take := 3; take >= 1; take-- {
		if len(words) <= take {
			continue
		}
		candidate := strings.Join(words[len(words)-take:], " ")
		if _, ok := StateAbbreviation(candidate); ok {
			return strings.Join(words[:len(words)-take], " "), candidate
		}
	}
	return segment, ""
}

// tagStreet assigns the street-segment tokens to their roles.
func (c *Components) tagStreet(segment string) error {
	tokens := strings.Fields(segment)
	if len(tokens) == 0 {
		return ErrAmbiguous
	}

	i := 0
	// Optional single-letter prefix riding ahead of the number ("N 123 Oak").
	if len(tokens) > 1 {
		if _, isDir := directionals[normalizeToken(tokens[0])]; !isDir {
			if m := houseNumberPattern.FindStringSubmatch(tokens[0]); m == nil && len(tokens[0]) == 1 {
				if houseNumberPattern.MatchString(tokens[1]) {
					c.HouseNumberPrefix = tokens[0]
					i = 1
				}
			}
		}
	}
	if i < len(tokens) {
		if m := houseNumberPattern.FindStringSubmatch(tokens[i]); m != nil && m[2] != "" {
			c.HouseNumberPrefix += m[1]
			c.HouseNumber = m[2]
			c.HouseNumberSuffix = m[3]
			i++
		}
	}

	if i < len(tokens)-1 {
		if _, ok := directionals[normalizeToken(tokens[i])]; ok {
			c.PreDirectional = strings.TrimRight(tokens[i], ".,")
			i++
		}
	}

	rest := tokens[i:]
	if len(rest) == 0 {
		return ErrAmbiguous
	}

	// Peel a subaddress off the tail before locating the post type.
	for j, tok := range rest {
		norm := normalizeToken(tok)
		_, marker := subaddressMarkers[norm]
		if marker || strings.HasPrefix(tok, "#") {
			if j == 0 {
				return ErrAmbiguous
			}
			c.Subaddress = strings.Join(rest[j:], " ")
			rest = rest[:j]
			break
		}
	}

	if len(rest) > 1 {
		if _, ok := directionals[normalizeToken(rest[len(rest)-1])]; ok {
			c.PostDirectional = strings.TrimRight(rest[len(rest)-1], ".,")
			rest = rest[:len(rest)-1]
		}
	}
	if len(rest) > 1 {
		if _, ok := postTypes[normalizeToken(rest[len(rest)-1])]; ok {
			c.PostType = strings.TrimRight(rest[len(rest)-1], ".,")
			rest = rest[:len(rest)-1]
		}
	}

	c.StreetName = strings.Join(rest, " ")
	if c.StreetName == "" {
		return ErrAmbiguous
	}
	return nil
}
