package models

import "strings"

// TokensPerWord converts word-based length targets into token budgets for
// backends that only accept token limits.
const TokensPerWord = 2

// RewriteInstruction steers instruction-tuned chat models towards plain
// rewriting, the way a seq2seq paraphrase model behaves.
const RewriteInstruction = "You rewrite text. Keep the meaning and the language of the input. Reply with the rewritten text only."

// GenerationParameters fully determines one generation attempt. Values are
// immutable once built; derive a new value instead of mutating a shared one.
type GenerationParameters struct {
	Prefix            string
	NumBeams          int
	NoRepeatNgramSize int
	Temperature       float64
	LengthPenalty     float64
	MinLength         int
	MaxLength         int
}

// MaxTokens returns the token budget implied by MaxLength.
func (p GenerationParameters) MaxTokens() int {
	if p.MaxLength <= 0 {
		return 0
	}
	return p.MaxLength * TokensPerWord
}

// GenerationRequest is the canonical representation of one generation call.
type GenerationRequest struct {
	Model  string
	Input  string
	Params GenerationParameters
}

// Prompt joins the parameter prefix with the trimmed input.
func (r GenerationRequest) Prompt() string {
	return r.Params.Prefix + strings.TrimSpace(r.Input)
}

// GenerationResponse captures a provider response in the unified schema.
type GenerationResponse struct {
	Text         string
	Usage        Usage
	FinishReason string
	ID           string
}

// Usage records token accounting information.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Model identifies a known model with provider metadata.
type Model struct {
	ID       string
	Provider string
	APIStyle string
}
