// Package search finds case-insensitive occurrences of a query inside the
// text of a single section.
package search

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/starford/quire/internal/apperr"
)

const (
	// MinQueryLength is the shortest accepted query, in runes.
	MinQueryLength = 2
	// SnippetTrail is how many runes after a match are shown in its snippet.
	SnippetTrail = 30
)

// Match is one occurrence of the query. Start and End are rune offsets into
// the searched text, End exclusive.
type Match struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Matched  string `json:"matched"`
	Trailing string `json:"trailing"`
}

// Snippet is the matched text followed by its trailing context.
func (m Match) Snippet() string {
	return m.Matched + m.Trailing
}

// Validate checks a query without running it.
func Validate(query string) error {
	if strings.TrimSpace(query) == "" || len([]rune(query)) < MinQueryLength {
		return fmt.Errorf("search: query %q: %w", query, apperr.ErrInvalidQuery)
	}
	return nil
}

// Find scans text left to right and returns every non-overlapping,
// case-insensitive occurrence of query, ordered by start offset. The query
// is matched literally.
func Find(text, query string) ([]Match, error) {
	if err := Validate(query); err != nil {
		return nil, err
	}

	hay := []rune(text)
	folded := fold(hay)
	needle := fold([]rune(query))

	var out []Match
	for i := 0; i+len(needle) <= len(folded); {
		if !hasPrefixAt(folded, needle, i) {
			i++
			continue
		}
		end := i + len(needle)
		trail := min(end+SnippetTrail, len(hay))
		out = append(out, Match{
			Start:    i,
			End:      end,
			Matched:  string(hay[i:end]),
			Trailing: string(hay[end:trail]),
		})
		i = end
	}
	return out, nil
}

// Summary renders the result line shown after a search.
func Summary(matches []Match) string {
	switch len(matches) {
	case 0:
		return "No match found"
	case 1:
		return "Match on 1 position found"
	}
	return fmt.Sprintf("Matches on %d positions found", len(matches))
}

// fold lower-cases rune by rune so offsets stay aligned with the original.
func fold(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func hasPrefixAt(hay, needle []rune, at int) bool {
	for j, r := range needle {
		if hay[at+j] != r {
			return false
		}
	}
	return true
}
