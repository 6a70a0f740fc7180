package paraphrase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQualityGateLooksBad(t *testing.T) {
	gate := DefaultQualityGate()

	tests := []struct {
		name string
		in   string
		bad  bool
	}{
		{name: "empty", in: "", bad: true},
		{name: "sentinel", in: "<extra_id_0> masih ada", bad: true},
		{name: "single word", in: "ok", bad: true},
		{name: "two words", in: "ok fine", bad: false},
		{name: "symbol heavy", in: "!!! ??? ## a b", bad: true},
		{name: "normal sentence", in: "Saya suka makan nasi.", bad: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.bad, gate.LooksBad(tt.in))
		})
	}
}

func TestQualityGateCustomThresholds(t *testing.T) {
	gate := QualityGate{MinWords: 1, MaxSymbolRatio: 0.5}
	require.False(t, gate.LooksBad("ok"))
	require.False(t, gate.LooksBad("a.b,c"))
	require.True(t, gate.LooksBad("..!a"))
}
