package paraphrase

import (
	"regexp"
	"strings"
	"unicode"
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n+`)

// SplitParagraphs splits a document on blank lines. Empty paragraphs are
// dropped and order is kept.
func SplitParagraphs(document string) []string {
	parts := paragraphBreak.Split(document, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitSentences cuts text after '.', '!' or '?' when whitespace follows.
// The whitespace itself is discarded.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 {
			continue
		}
		out = append(out, string(runes[start:i+1]))
		start = j
		i = j - 1
	}
	return append(out, string(runes[start:]))
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// ChunkBySentence groups sentences into chunks of at most maxWords words.
// A sentence is never split across chunks unless it alone exceeds the
// budget, in which case it is cut into windows of exactly maxWords words
// (the last window may be shorter).
func ChunkBySentence(paragraph string, maxWords int) []string {
	if maxWords < 1 {
		maxWords = 1
	}

	var (
		chunks   []string
		cur      []string
		curWords int
	)
	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, strings.TrimSpace(strings.Join(cur, " ")))
		}
		cur = nil
		curWords = 0
	}

	for _, s := range SplitSentences(strings.TrimSpace(paragraph)) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		words := strings.Fields(s)
		if curWords+len(words) <= maxWords {
			cur = append(cur, s)
			curWords += len(words)
			continue
		}

		flush()
		if len(words) > maxWords {
			for i := 0; i < len(words); i += maxWords {
				end := min(i+maxWords, len(words))
				chunks = append(chunks, strings.Join(words[i:end], " "))
			}
			continue
		}
		cur = []string{s}
		curWords = len(words)
	}
	flush()

	return chunks
}

// WordCount counts whitespace separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
