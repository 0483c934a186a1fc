// Package spellout renders captured values in the unambiguous forms the
// voice prompts read back to the patient: letter-by-letter for words,
// digit-by-digit for numbers, character-by-character with punctuation
// call-outs for addresses, and phonetic-alphabet form for email addresses.
package spellout

import (
	"strings"
	"unicode"
)

// phoneticAlphabet maps letters to their NATO phonetic words. Spoken
// confirmations use "A as in Alpha" to disambiguate letters that STT
// commonly confuses with digits (O/0, I/1, S/5, B/8).
var phoneticAlphabet = map[rune]string{
	'a': "Alpha", 'b': "Bravo", 'c': "Charlie", 'd': "Delta",
	'e': "Echo", 'f': "Foxtrot", 'g': "Golf", 'h': "Hotel",
	'i': "India", 'j': "Juliett", 'k': "Kilo", 'l': "Lima",
	'm': "Mike", 'n': "November", 'o': "Oscar", 'p': "Papa",
	'q': "Quebec", 'r': "Romeo", 's': "Sierra", 't': "Tango",
	'u': "Uniform", 'v': "Victor", 'w': "Whiskey", 'x': "Xray",
	'y': "Yankee", 'z': "Zulu",
}

// punctuationNames maps email punctuation to the spoken token used when
// reading an address aloud.
var punctuationNames = map[rune]string{
	'.': "dot",
	'-': "hyphen",
	'_': "underscore",
	'+': "plus",
}

// Letters renders a word letter by letter in uppercase: "Asad" -> "A S A D".
func Letters(word string) string {
	var out []string
	for _, r := range word {
		if unicode.IsSpace(r) {
			continue
		}
		out = append(out, strings.ToUpper(string(r)))
	}
	return strings.Join(out, " ")
}

// Digits renders a numeric string digit by digit: "12345" -> "1 2 3 4 5".
// Non-digit characters are skipped.
func Digits(value string) string {
	var out []string
	for _, r := range value {
		if r >= '0' && r <= '9' {
			out = append(out, string(r))
		}
	}
	return strings.Join(out, " ")
}

// Characters renders free text character by character, preserving word
// boundaries with a double space and calling out commas by name. Other
// punctuation is skipped. Used for full-address confirmation.
func Characters(text string) string {
	var out []string
	for _, r := range text {
		switch {
		case r == ' ':
			// Double space reads as a longer pause between words.
			out = append(out, " ")
		case r == ',':
			out = append(out, "comma")
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			out = append(out, strings.ToUpper(string(r)))
		}
	}
	return strings.Join(out, " ")
}

// Phonetic renders text with the phonetic alphabet: letters become
// "A as in Alpha", digits are spoken literally, and known punctuation is
// named. Unknown characters are dropped.
func Phonetic(text string) string {
	var out []string
	for _, r := range text {
		lower := unicode.ToLower(r)
		switch {
		case lower >= 'a' && lower <= 'z':
			out = append(out, strings.ToUpper(string(r))+" as in "+phoneticAlphabet[lower])
		case r >= '0' && r <= '9':
			out = append(out, string(r))
		default:
			if name, ok := punctuationNames[r]; ok {
				out = append(out, name)
			}
		}
	}
	return strings.Join(out, ", ")
}

// Collapse converts a spaced-out spelling back into a word:
// "A S A T" -> "asat". Spellings arrive spaced because the model echoes
// the patient's letter-by-letter correction.
func Collapse(spaced string) string {
	return strings.ToLower(StripSpaces(spaced))
}

// StripSpaces removes all whitespace, preserving case: "1 2 3" -> "123",
// "N Y" -> "NY".
func StripSpaces(text string) string {
	var b strings.Builder
	for _, r := range text {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DigitsOnly strips everything but digits: "ID 12-34" -> "1234".
func DigitsOnly(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
