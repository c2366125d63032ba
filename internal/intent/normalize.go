// internal/intent/normalize.go
package intent

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const minTokenRunes = 2

// stopWords is the small bilingual list dropped from keyword sets and from the
// token sets used for scoring.
var stopWords = map[string]struct{}{
	// Hindi
	"क्या": {}, "है": {}, "हैं": {}, "के": {}, "की": {}, "का": {}, "को": {}, "में": {},
	"से": {}, "और": {}, "या": {}, "पर": {}, "मुझे": {}, "आप": {}, "यह": {}, "वह": {},
	"कैसे": {}, "कब": {}, "कहाँ": {}, "कौन": {}, "कितना": {}, "लिए": {}, "हो": {},
	"भी": {}, "तो": {}, "ने": {},
	// English
	"what": {}, "is": {}, "the": {}, "of": {}, "to": {}, "in": {}, "for": {}, "and": {},
	"or": {}, "on": {}, "me": {}, "you": {}, "this": {}, "that": {}, "how": {}, "when": {},
	"where": {}, "who": {}, "much": {}, "an": {}, "my": {}, "are": {}, "do": {}, "it": {},
	"be": {}, "can": {}, "please": {},
}

func init() {
	// Stop words are compared against normalized tokens.
	normalized := make(map[string]struct{}, len(stopWords))
	for w := range stopWords {
		normalized[norm.NFKC.String(w)] = struct{}{}
	}
	stopWords = normalized
}

// Normalize lowercases Latin script, replaces punctuation and symbols with spaces,
// collapses whitespace and keeps Devanagari letters and signs unchanged.
func Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = norm.NFKC.String(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case isDevanagariPunct(r):
			b.WriteByte(' ')
		case isDevanagari(r):
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsMark(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize splits normalized text into tokens.
func Tokenize(text string) []string {
	return strings.Fields(Normalize(text))
}

// ContentTokens returns the distinct tokens of text that survive the length and
// stop-word filters, in order of first appearance.
func ContentTokens(text string) []string {
	return filterTokens(Tokenize(text))
}

func filterTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if !isContentToken(tok) {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

func isContentToken(tok string) bool {
	if utf8.RuneCountInString(tok) < minTokenRunes {
		return false
	}
	_, stop := stopWords[tok]
	return !stop
}

func isDevanagari(r rune) bool {
	return r >= 0x0900 && r <= 0x097F
}

// isDevanagariPunct reports the danda and double danda sentence marks.
func isDevanagariPunct(r rune) bool {
	return r == 0x0964 || r == 0x0965
}

func hasDevanagari(s string) bool {
	for _, r := range s {
		if isDevanagari(r) {
			return true
		}
	}
	return false
}

func hasLatin(s string) bool {
	for _, r := range s {
		if r < utf8.RuneSelf && unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// normalizeLabel trims and NFKC-normalizes a CSV label without touching case of
// Devanagari; Latin labels are lowercased.
func normalizeLabel(label string) string {
	label = strings.TrimSpace(norm.NFKC.String(label))
	if label == "" {
		return ""
	}
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}
