package paraphrase

import (
	"strings"
	"unicode"
)

const (
	DefaultMinWords       = 2
	DefaultMaxSymbolRatio = 0.2
)

// QualityGate decides whether generated text is usable. The thresholds are
// empirical, so they are configurable.
type QualityGate struct {
	MinWords       int
	MaxSymbolRatio float64
}

// DefaultQualityGate returns the gate with the stock thresholds.
func DefaultQualityGate() QualityGate {
	return QualityGate{MinWords: DefaultMinWords, MaxSymbolRatio: DefaultMaxSymbolRatio}
}

// LooksBad reports whether s must be rejected: empty, still carrying a
// sentinel, too short, or dominated by symbols.
func (g QualityGate) LooksBad(s string) bool {
	if s == "" {
		return true
	}
	if HasSentinel(s) {
		return true
	}
	if len(strings.Fields(s)) < g.MinWords {
		return true
	}
	return symbolRatio(s) > g.MaxSymbolRatio
}

// symbolRatio is the share of runes that are neither alphanumeric nor whitespace.
func symbolRatio(s string) float64 {
	total, symbols := 0, 0
	for _, r := range s {
		total++
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			continue
		}
		symbols++
	}
	return float64(symbols) / float64(max(1, total))
}
