// Package nlp holds the lexical layer of the dialogue engine: text
// normalization, gazetteer-based city extraction and day-offset extraction.
package nlp

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases text and strips combining diacritics ("Bogotá" ->
// "bogota", "mañana" -> "manana"). It is idempotent.
func Normalize(text string) string {
	// transform chains keep internal buffers, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(text))
	if err != nil {
		return strings.ToLower(text)
	}
	return out
}

// Tokenize normalizes text and splits it on every rune that is neither a
// letter nor a digit, so punctuation such as "¿", "?" and "," never sticks to
// a word.
func Tokenize(text string) []string {
	return strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Canonical returns the normalized tokens of text joined by single spaces.
func Canonical(text string) string {
	return strings.Join(Tokenize(text), " ")
}

// ContainsPhrase reports whether phrase occurs in text as a whole-word
// sequence. Both arguments are canonicalized first.
func ContainsPhrase(text, phrase string) bool {
	p := Canonical(phrase)
	if p == "" {
		return false
	}
	return strings.Contains(" "+Canonical(text)+" ", " "+p+" ")
}

// TitleCase capitalizes each word of a normalized place name for display,
// e.g. "santa marta" -> "Santa Marta".
func TitleCase(s string) string {
	return cases.Title(language.Spanish).String(s)
}
