package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{
			name:     "trims and drops empties",
			input:    []string{"  a ", "", "   ", "b"},
			expected: []string{"a", "b"},
		},
		{
			name:     "keeps first occurrence",
			input:    []string{"b", "a", "b", " a"},
			expected: []string{"b", "a"},
		},
		{
			name:     "preserves case",
			input:    []string{"0xAb", "0xab"},
			expected: []string{"0xAb", "0xab"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	got := DedupeAndTrimLower([]string{
		" 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed ",
		"",
		"0x0000000000000000000000000000000000000001",
	})
	assert.Equal(t, []string{
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		"0x0000000000000000000000000000000000000001",
	}, got)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList("   "))
	assert.Equal(t, []string{"localhost:9092", "broker:9092"}, SplitList("localhost:9092, broker:9092,,localhost:9092"))
}
