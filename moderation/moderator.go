package moderation

import (
	"sort"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator censors banned words in message text before the relay
// stores or broadcasts it. Matching is resilient to casing, accents of
// punctuation noise, and common leet-speak substitutions.
type Moderator struct {
	machine     *goahocorasick.Machine
	replacement rune
}

// NewModerator builds the Aho-Corasick automaton over the normalized
// forms of the banned words.
func NewModerator(words []string, replacement rune) (*Moderator, error) {
	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		if norm := normalize([]rune(w), nil); len(norm) > 0 {
			patterns = append(patterns, norm)
		}
	}
	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{machine: machine, replacement: replacement}, nil
}

// Censor replaces every character of a matched span with the
// replacement rune, preserving the surrounding spacing, and returns
// the normalized forms of the words it hit.
func (m *Moderator) Censor(text string) (string, []string) {
	original := []rune(text)
	var index []int
	normalized := normalize(original, &index)
	if len(normalized) == 0 {
		return text, nil
	}

	spans := m.machine.MultiPatternSearch(normalized, false)
	if len(spans) == 0 {
		return text, nil
	}

	var hits []string
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(index) {
			continue
		}
		hits = append(hits, string(span.Word))

		// Map the normalized span back to the original rune range,
		// replacing noise characters caught in between as well.
		from := index[start]
		to := index[end-1] + 1
		for i := from; i < to; i++ {
			original[i] = m.replacement
		}
	}
	sort.Strings(hits)
	return string(original), hits
}

// normalize lowercases, folds leet-speak digits back to letters, and
// strips punctuation/space/symbol noise. When index is non-nil it
// records, per kept rune, the position in the input it came from.
func normalize(input []rune, index *[]int) []rune {
	out := make([]rune, 0, len(input))
	for i, r := range input {
		folded := foldLeet(r)
		if unicode.IsPunct(folded) || unicode.IsSpace(folded) || unicode.IsSymbol(folded) {
			continue
		}
		out = append(out, unicode.ToLower(folded))
		if index != nil {
			*index = append(*index, i)
		}
	}
	return out
}

func foldLeet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	case '7':
		return 't'
	default:
		return r
	}
}
