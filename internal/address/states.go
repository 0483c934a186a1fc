package address

import "strings"

// stateAbbreviations maps lowercase US state and territory names to their
// two-letter USPS abbreviations.
var stateAbbreviations = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT",
	"delaware": "DE", "district of columbia": "DC", "florida": "FL",
	"georgia": "GA", "hawaii": "HI", "idaho": "ID", "illinois": "IL",
	"indiana": "IN", "iowa": "IA", "kansas": "KS", "kentucky": "KY",
	"louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN",
	"mississippi": "MS", "missouri": "MO", "montana": "MT",
	"nebraska": "NE", "nevada": "NV", "new hampshire": "NH",
	"new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH",
	"oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA",
	"puerto rico": "PR", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA",
	"west virginia": "WV", "wisconsin": "WI", "wyoming": "WY",
}

// validAbbreviations is the reverse index used to accept already-abbreviated
// input like "NY".
var validAbbreviations = func() map[string]struct{} {
	m := make(map[string]struct{}, len(stateAbbreviations))
	for _, abbr := range stateAbbreviations {
		m[abbr] = struct{}{}
	}
	return m
}()

// StateAbbreviation resolves a spoken state ("New York", "ny", "NY") to its
// two-letter abbreviation. An unrecognized name is a hard parse failure for
// the caller.
func StateAbbreviation(name string) (string, bool) {
	cleaned := strings.Join(strings.Fields(strings.TrimSpace(name)), " ")
	if cleaned == "" {
		return "", false
	}
	if abbr, ok := stateAbbreviations[strings.ToLower(cleaned)]; ok {
		return abbr, true
	}
	upper := strings.ToUpper(cleaned)
	if _, ok := validAbbreviations[upper]; ok && len(upper) == 2 {
		return upper, true
	}
	return "", false
}
