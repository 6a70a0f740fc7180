package paraphrase

import (
	"regexp"
	"strings"
)

// repeatablePunctuation is the set of characters collapsed by Sanitize.
const repeatablePunctuation = ".!,;:-?"

var (
	// sentinelPattern matches T5 style masked-span placeholders such as <extra_id_0>.
	sentinelPattern = regexp.MustCompile(`<extra_id_\d+>`)

	// punctuationRun uses the same notion of whitespace as unicode.IsSpace so
	// that Sanitize stays idempotent after strings.Fields normalisation.
	punctuationRun = regexp.MustCompile(`([.!,;:\-?])[\s\v\x{85}\p{Z}]*([.!,;:\-?\s\v\x{85}\p{Z}]+)+`)
)

// HasSentinel reports whether s still carries a placeholder marker.
func HasSentinel(s string) bool {
	return sentinelPattern.MatchString(s)
}

// Sanitize strips placeholder markers and normalises punctuation and
// whitespace so generated fragments can be concatenated. Sanitize is
// idempotent.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	// Removing one marker can splice the remains into another, e.g.
	// "<extra_id_<extra_id_0>1>".
	for sentinelPattern.MatchString(s) {
		s = sentinelPattern.ReplaceAllString(s, "")
	}
	s = punctuationRun.ReplaceAllString(s, "${1} ")
	s = strings.Join(strings.Fields(s), " ")
	return collapseRepeatedPunctuation(s)
}

// collapseRepeatedPunctuation turns "!!" or ",,," into a single character.
// RE2 has no backreferences, hence the manual scan.
func collapseRepeatedPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prev := rune(-1)
	for _, r := range s {
		if r == prev && strings.ContainsRune(repeatablePunctuation, r) {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
