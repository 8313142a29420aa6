// Package placeholder shields format tokens from machine translation.
//
// Two token shapes are protected: the literal "%@" used by iOS format strings
// and brace expressions such as "{count}" or "{0}". Tokens are swapped for
// fixed marker words before translation and put back afterwards.
//
// Brace tokens are restored by position: the n-th marker in the translation
// receives the n-th brace expression of the source text. A translator that
// reorders markers therefore reorders the tokens too.
package placeholder

import (
	"regexp"
	"strings"
)

const (
	// PercentMarker stands in for "%@".
	PercentMarker = "PLACEHOLDER_PERCENT"
	// CurlyMarker stands in for any "{...}" expression.
	CurlyMarker = "PLACEHOLDER_CURLY"

	percentToken = "%@"
)

var curlyPattern = regexp.MustCompile(`\{[^}]*\}`)

// Mask replaces every "%@" and every "{...}" in text with marker words.
func Mask(text string) string {
	text = strings.ReplaceAll(text, percentToken, PercentMarker)
	return curlyPattern.ReplaceAllLiteralString(text, CurlyMarker)
}

// Restore undoes Mask on a translated string using the untranslated original
// as the source of brace expressions. Surplus markers are left in place and
// surplus brace expressions are dropped.
func Restore(translated, original string) string {
	translated = strings.ReplaceAll(translated, PercentMarker, percentToken)
	for _, token := range curlyPattern.FindAllString(original, -1) {
		if !strings.Contains(translated, CurlyMarker) {
			break
		}
		translated = strings.Replace(translated, CurlyMarker, token, 1)
	}
	return translated
}

