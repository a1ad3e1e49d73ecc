package insights

import (
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Suggestion is an autocomplete candidate for a line-item description.
type Suggestion struct {
	Description string `json:"description"`
	Distance    int    `json:"distance"`
}

// Suggester ranks known line-item descriptions against partial input.
type Suggester struct {
	mu           sync.RWMutex
	descriptions []string
}

func NewSuggester() *Suggester {
	return &Suggester{}
}

// Build replaces the candidate set. Duplicates are dropped case-insensitively.
func (s *Suggester) Build(descriptions []string) {
	seen := make(map[string]bool, len(descriptions))
	unique := make([]string, 0, len(descriptions))
	for _, d := range descriptions {
		d = strings.TrimSpace(d)
		key := strings.ToUpper(d)
		if d == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, d)
	}
	sort.Strings(unique)

	s.mu.Lock()
	s.descriptions = unique
	s.mu.Unlock()
}

// Suggest returns descriptions that contain the characters of input in
// order, ignoring case and accents, closest first.
func (s *Suggester) Suggest(input string, limit int) []Suggestion {
	input = strings.TrimSpace(input)
	if input == "" {
		return []Suggestion{}
	}

	s.mu.RLock()
	ranks := fuzzy.RankFindNormalizedFold(input, s.descriptions)
	s.mu.RUnlock()

	sort.Stable(ranks)

	if limit > 0 && len(ranks) > limit {
		ranks = ranks[:limit]
	}
	out := make([]Suggestion, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, Suggestion{Description: r.Target, Distance: r.Distance})
	}
	return out
}

func (s *Suggester) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.descriptions)
}
