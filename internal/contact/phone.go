package contact

import "strings"

// NormalizePhoneDigits strips non-digits and normalizes 10-digit US numbers
// to 11-digit format.
func NormalizePhoneDigits(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) == 10 {
		return "1" + d
	}
	return d
}
