package paraphrase

import (
	"strings"

	"paratext/internal/models"
)

// Mode selects how aggressively a chunk is rewritten.
type Mode int

const (
	Natural Mode = iota
	Longer
	SameLength
)

// ParseMode maps a request value onto a Mode. Matching is case sensitive;
// unknown values fall back to Natural.
func ParseMode(s string) Mode {
	switch strings.TrimSpace(s) {
	case "longer":
		return Longer
	case "same_length":
		return SameLength
	default:
		return Natural
	}
}

func (m Mode) String() string {
	switch m {
	case Longer:
		return "longer"
	case SameLength:
		return "same_length"
	default:
		return "natural"
	}
}

// ComputeProfile describes the execution context of the generation backend.
type ComputeProfile int

const (
	// Constrained is a CPU-bound backend: smaller chunks, fewer beams.
	Constrained ComputeProfile = iota
	// Throughput is an accelerator-backed backend.
	Throughput
)

func (p ComputeProfile) String() string {
	if p == Throughput {
		return "throughput"
	}
	return "constrained"
}

const defaultPrefix = "paraphrase: "

// scaled returns ⌊words·num/den⌋ without floating point rounding.
func scaled(words, num, den int) int {
	return words * num / den
}

// PrimaryParams is the conservative profile tried first for every chunk.
func PrimaryParams(words int, profile ComputeProfile) models.GenerationParameters {
	p := models.GenerationParameters{
		Prefix:            defaultPrefix,
		NumBeams:          2,
		NoRepeatNgramSize: 3,
		Temperature:       0.6,
		LengthPenalty:     1.0,
		MinLength:         max(8, scaled(words, 6, 10)),
		MaxLength:         max(80, scaled(words, 12, 10)),
	}
	if profile == Throughput {
		p.NumBeams = 4
		p.Temperature = 0.7
	}
	return p
}

// FallbackParams is the more stochastic, longer-budget retry profile.
func FallbackParams(words int) models.GenerationParameters {
	return models.GenerationParameters{
		NumBeams:          1,
		NoRepeatNgramSize: 2,
		Temperature:       0.95,
		LengthPenalty:     0.9,
		MinLength:         max(8, scaled(words, 9, 10)),
		MaxLength:         max(120, scaled(words, 16, 10)),
	}
}

// Params returns the mode-specific primary profile. Natural has none and
// goes straight to guarded generation, reported by ok == false.
func (m Mode) Params(words int, profile ComputeProfile) (params models.GenerationParameters, ok bool) {
	switch m {
	case Longer:
		beams := 3
		if profile == Constrained {
			beams = 2
		}
		return models.GenerationParameters{
			Prefix:            defaultPrefix,
			NumBeams:          beams,
			NoRepeatNgramSize: 2,
			Temperature:       0.85,
			LengthPenalty:     0.9,
			MinLength:         max(20, scaled(words, 105, 100)),
			MaxLength:         max(150, scaled(words, 16, 10)),
		}, true
	case SameLength:
		return models.GenerationParameters{
			Prefix:            defaultPrefix,
			NumBeams:          2,
			NoRepeatNgramSize: 3,
			Temperature:       0.6,
			LengthPenalty:     1.0,
			MinLength:         max(5, scaled(words, 9, 10)),
			MaxLength:         scaled(words, 11, 10) + 10,
		}, true
	default:
		return models.GenerationParameters{}, false
	}
}
