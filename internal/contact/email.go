// Package contact recovers contact details from noisy speech-to-text output.
package contact

import (
	"regexp"
	"strings"

	"github.com/brightline-health/intake-voice-agent/internal/spellout"
	"github.com/brightline-health/intake-voice-agent/pkg/logging"
)

// emailPattern is a permissive local@domain.tld match. Transcripts are messy;
// strict RFC validation rejects addresses patients can actually receive mail at.
var emailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)

// ExtractEmail scans raw transcript text for an email address. When several
// candidates appear the first wins and the ambiguity is logged. When none
// match, the trimmed raw text is returned as a best-effort candidate with
// found=false so the caller can decide whether to re-prompt.
func ExtractEmail(raw string, logger *logging.Logger) (email string, found bool) {
	if logger == nil {
		logger = logging.Default()
	}
	matches := emailPattern.FindAllString(raw, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(raw), false
	}
	if len(matches) > 1 {
		logger.Warn("multiple email candidates in utterance, taking first",
			"count", len(matches), "first", strings.ToLower(matches[0]))
	}
	return strings.ToLower(matches[0]), true
}

// SpellEmail builds the verbal confirmation rendering for an address:
// local part phonetically, then "at sign", then the domain phonetically.
// "jo.b@x1.com" reads as
// "J as in Juliett, O as in Oscar, dot, B as in Bravo, at sign, ...".
func SpellEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return spellout.Phonetic(email)
	}
	return spellout.Phonetic(local) + ", at sign, " + spellout.Phonetic(domain)
}
