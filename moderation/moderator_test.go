package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// The dictionary uses distinct words to avoid partial collisions
// (e.g. "he" inside "The").
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator([]string{"weasel", "ferret", "stoat"}, replacementChar)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		hits     []string
	}{
		{
			name:     "simple word, spacing preserved",
			input:    "a weasel walked by",
			expected: "a ****** walked by",
			hits:     []string{"weasel"},
		},
		{
			name:     "repeated occurrences",
			input:    "weasel weasel weasel",
			expected: "****** ****** ******",
			hits:     []string{"weasel", "weasel", "weasel"},
		},
		{
			name:     "leet speak with internal punctuation",
			input:    "such a W.3.4.s.3.l here",
			expected: "such a *********** here",
			hits:     []string{"weasel"},
		},
		{
			name:     "uppercase with separator noise",
			input:    "S-T-O-A-T and F.E.R.R.E.T",
			expected: "********* and ***********",
			hits:     []string{"ferret", "stoat"},
		},
		{
			name:     "word adjacent to trailing punctuation",
			input:    "nice ferret!",
			expected: "nice ******!",
			hits:     []string{"ferret"},
		},
		{
			name:     "nothing to censor",
			input:    "perfectly polite message",
			expected: "perfectly polite message",
			hits:     nil,
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
			hits:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			censored, hits := mod.Censor(tt.input)
			require.Equal(t, tt.expected, censored)
			require.Equal(t, tt.hits, hits)
		})
	}
}

func TestModerator_IgnoresNoisePatterns(t *testing.T) {
	req := require.New(t)

	// Pure-noise dictionary entries normalize to nothing and must not
	// poison the automaton.
	mod, err := NewModerator([]string{"...", ",,,", "", "weasel"}, replacementChar)
	req.NoError(err)

	censored, hits := mod.Censor("the weasel is back")
	req.Equal("the ****** is back", censored)
	req.Equal([]string{"weasel"}, hits)

	censored, hits = mod.Censor("hello ...")
	req.Equal("hello ...", censored)
	req.Nil(hits)
}

func TestLoadWordlists(t *testing.T) {
	req := require.New(t)
	words, err := LoadWordlists()
	req.NoError(err)
	req.NotEmpty(words)
	req.Contains(words, "shit")
	req.NotContains(words, "")
}
