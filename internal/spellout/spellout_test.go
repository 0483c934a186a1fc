package spellout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLetters(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Asad", "A S A D"},
		{"ny", "N Y"},
		{"", ""},
		{"van dam", "V A N D A M"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Letters(tt.in), "Letters(%q)", tt.in)
	}
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "1 2 3 4 5", Digits("12345"))
	assert.Equal(t, "9 8 7", Digits("9-8 7x"))
	assert.Equal(t, "", Digits("abc"))
}

func TestCharacters(t *testing.T) {
	got := Characters("12 Main, NY")
	assert.Contains(t, got, "1 2")
	assert.Contains(t, got, "comma")
	assert.Contains(t, got, "M A I N")
	assert.NotContains(t, got, ",", "raw commas must be spoken, not printed")
}

func TestPhonetic(t *testing.T) {
	got := Phonetic("b8.o")
	parts := strings.Split(got, ", ")
	assert.Equal(t, []string{"B as in Bravo", "8", "dot", "O as in Oscar"}, parts)
}

func TestCollapse(t *testing.T) {
	assert.Equal(t, "asat", Collapse("A S A T"))
	assert.Equal(t, "asad", Collapse("asad"))
}

func TestStripSpacesAndDigitsOnly(t *testing.T) {
	assert.Equal(t, "NY", StripSpaces("N Y"))
	assert.Equal(t, "123", StripSpaces("1 2 3"))
	assert.Equal(t, "1234", DigitsOnly("ID 12-34"))
}
