// Package summarize builds extractive summaries with LexRank.
package summarize

import (
	"math"
	"regexp"
	"slices"
	"sort"
	"strings"

	"paratext/internal/paraphrase"
)

const (
	// DefaultSentences is used when the caller asks for fewer than one sentence.
	DefaultSentences = 5

	similarityThreshold = 0.1
	convergenceEpsilon  = 0.1
	maxIterations       = 1000
	minFallbackRunes    = 3
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Summarize returns up to n sentences of text, ranked by LexRank and joined
// in their original order. A lone sentence is returned as is; other texts
// LexRank cannot rank fall back to picking the longest sentences.
func Summarize(text string, n int) string {
	if n < 1 {
		n = DefaultSentences
	}
	sentences := splitSentences(text)
	switch len(sentences) {
	case 0:
		return ""
	case 1:
		return sentences[0]
	}

	scores, ok := lexRank(sentences)
	if !ok {
		return longestSentences(sentences, n)
	}
	return pick(sentences, scores, n)
}

func splitSentences(text string) []string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return nil
	}
	var out []string
	for _, s := range paraphrase.SplitSentences(normalized) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// pick keeps the n best scored sentences, ties going to the earlier one.
func pick(sentences []string, scores []float64, n int) string {
	idx := make([]int, len(sentences))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	chosen := idx[:min(n, len(idx))]
	slices.Sort(chosen)

	out := make([]string, len(chosen))
	for i, j := range chosen {
		out[i] = sentences[j]
	}
	return strings.Join(out, " ")
}

func longestSentences(sentences []string, n int) string {
	var kept []string
	for _, s := range sentences {
		if len([]rune(s)) > minFallbackRunes {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	scores := make([]float64, len(kept))
	for i, s := range kept {
		scores[i] = float64(len([]rune(s)))
	}
	return pick(kept, scores, n)
}

// lexRank scores sentences by the stationary distribution of their
// thresholded cosine similarity graph. ok is false when the text is too
// small or the iteration does not settle.
func lexRank(sentences []string) (scores []float64, ok bool) {
	n := len(sentences)
	if n < 2 {
		return nil, false
	}

	tfs := make([]map[string]float64, n)
	anyWords := false
	for i, s := range sentences {
		tfs[i] = termFrequencies(s)
		anyWords = anyWords || len(tfs[i]) > 0
	}
	if !anyWords {
		return nil, false
	}
	idf := inverseDocumentFrequencies(tfs)

	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		degree := 0.0
		for j := range matrix[i] {
			if cosine(tfs[i], tfs[j], idf) > similarityThreshold {
				matrix[i][j] = 1
				degree++
			}
		}
		if degree == 0 {
			degree = 1
		}
		for j := range matrix[i] {
			matrix[i][j] /= degree
		}
	}

	return powerMethod(matrix)
}

func termFrequencies(sentence string) map[string]float64 {
	counts := make(map[string]float64)
	peak := 0.0
	for _, w := range wordPattern.FindAllString(strings.ToLower(sentence), -1) {
		counts[w]++
		peak = math.Max(peak, counts[w])
	}
	for w := range counts {
		counts[w] /= peak
	}
	return counts
}

func inverseDocumentFrequencies(tfs []map[string]float64) map[string]float64 {
	df := make(map[string]int)
	for _, tf := range tfs {
		for w := range tf {
			df[w]++
		}
	}
	idf := make(map[string]float64, len(df))
	for w, d := range df {
		idf[w] = math.Log(float64(len(tfs)) / float64(1+d))
	}
	return idf
}

func cosine(a, b map[string]float64, idf map[string]float64) float64 {
	var num, normA, normB float64
	for w, tfa := range a {
		if tfb, ok := b[w]; ok {
			num += tfa * tfb * idf[w] * idf[w]
		}
		normA += (tfa * idf[w]) * (tfa * idf[w])
	}
	for w, tfb := range b {
		normB += (tfb * idf[w]) * (tfb * idf[w])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return num / (math.Sqrt(normA) * math.Sqrt(normB))
}

func powerMethod(matrix [][]float64) ([]float64, bool) {
	n := len(matrix)
	p := make([]float64, n)
	for i := range p {
		p[i] = 1 / float64(n)
	}
	for range maxIterations {
		next := make([]float64, n)
		for i := range matrix {
			for j, v := range matrix[i] {
				next[j] += v * p[i]
			}
		}
		delta := 0.0
		for i := range next {
			d := next[i] - p[i]
			delta += d * d
		}
		p = next
		if math.Sqrt(delta) <= convergenceEpsilon {
			return p, true
		}
	}
	return nil, false
}
