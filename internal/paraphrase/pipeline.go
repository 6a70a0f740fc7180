package paraphrase

import (
	"context"
	"fmt"
	"strings"
)

// Result is a paraphrased document with per-chunk bookkeeping.
type Result struct {
	Text       string
	Paragraphs int
	Chunks     int
	Outcomes   map[Outcome]int
}

// Pipeline splits a document, rewrites each chunk through a Guard, and
// reassembles the output preserving paragraph structure.
type Pipeline struct {
	guard    *Guard
	maxWords int
}

// NewPipeline returns a Pipeline that chunks paragraphs to at most maxWords words.
func NewPipeline(guard *Guard, maxWords int) *Pipeline {
	return &Pipeline{guard: guard, maxWords: max(1, maxWords)}
}

// MaxWords is the chunk budget in use.
func (p *Pipeline) MaxWords() int {
	return p.maxWords
}

// Run paraphrases document. Chunks are processed strictly in order.
func (p *Pipeline) Run(ctx context.Context, document string, mode Mode) (Result, error) {
	res := Result{Outcomes: make(map[Outcome]int)}

	paragraphs := SplitParagraphs(document)
	res.Paragraphs = len(paragraphs)

	out := make([]string, 0, len(paragraphs))
	for i, paragraph := range paragraphs {
		chunks := ChunkBySentence(paragraph, p.maxWords)
		rewritten := make([]string, 0, len(chunks))
		for j, chunk := range chunks {
			if err := ctx.Err(); err != nil {
				return Result{}, fmt.Errorf("paragraph %d chunk %d: %w", i+1, j+1, err)
			}
			text, outcome, err := p.guard.Generate(ctx, chunk, mode)
			if err != nil {
				return Result{}, fmt.Errorf("paragraph %d chunk %d: %w", i+1, j+1, err)
			}
			res.Chunks++
			res.Outcomes[outcome]++
			rewritten = append(rewritten, text)
		}

		joined := Sanitize(strings.Join(rewritten, " "))
		if joined == "" {
			joined = paragraph
		}
		out = append(out, joined)
	}

	res.Text = strings.TrimSpace(strings.Join(out, "\n\n"))
	if res.Text == "" {
		res.Text = document
	}
	return res, nil
}
