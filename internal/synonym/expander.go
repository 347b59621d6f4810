// Package synonym implements the Synonym Expander from spec §4.4: an
// in-memory term→group table, loaded at startup, that expands a query
// string into related terms and n-grams.
package synonym

import (
	"context"
	"regexp"
	"strings"
	"sync"
)

// tokenPattern matches CJK runs, Latin runs, or digit runs, mirroring the
// Unicode-category tokenization described in spec §4.4.
var tokenPattern = regexp.MustCompile(`[\x{4e00}-\x{9fff}]+|[a-zA-Z]+|[0-9]+`)

// Loader fetches the synonym table from the store; kept as a narrow
// interface so the expander doesn't need to import the store package
// directly.
type Loader interface {
	Synonyms(ctx context.Context) ([]Group, error)
}

// Group mirrors store.SynonymGroup without creating an import cycle; the
// wiring code that constructs an Expander converts from store.SynonymGroup.
type Group struct {
	Term     string
	Synonyms []string
}

// Expander holds the forward/reverse maps described in spec §3: forward
// (term → group) and reverse (any synonym → group's full synonym list).
type Expander struct {
	mu      sync.RWMutex
	forward map[string][]string
	reverse map[string][]string
}

// NewExpander returns an expander with empty tables; call Refresh to load.
func NewExpander() *Expander {
	return &Expander{forward: map[string][]string{}, reverse: map[string][]string{}}
}

// Refresh reloads the synonym table from groups, replacing the current
// tables atomically (spec §3 "Mutable via a refresh hook").
func (e *Expander) Refresh(groups []Group) {
	forward := make(map[string][]string, len(groups))
	reverse := make(map[string][]string, len(groups)*2)
	for _, g := range groups {
		all := append([]string{g.Term}, g.Synonyms...)
		forward[g.Term] = all
		for _, syn := range all {
			reverse[syn] = all
		}
	}
	e.mu.Lock()
	e.forward = forward
	e.reverse = reverse
	e.mu.Unlock()
}

const maxExpansions = 5

// Expand tokenizes query, derives candidate lookup terms (Latin tokens
// lower-cased; CJK tokens additionally broken into 2-4 length n-grams for
// tokens longer than 2), looks each up in the reverse map, unions every
// synonym of a hit group into the result, and always includes the original
// query. The result is capped at maxExpansions terms.
func (e *Expander) Expand(query string) []string {
	seen := map[string]bool{query: true}
	result := []string{query}

	for _, term := range candidateTerms(query) {
		e.mu.RLock()
		group, ok := e.reverse[term]
		e.mu.RUnlock()
		if !ok {
			continue
		}
		for _, syn := range group {
			if seen[syn] {
				continue
			}
			seen[syn] = true
			result = append(result, syn)
			if len(result) >= maxExpansions {
				return result
			}
		}
	}
	return result
}

// candidateTerms tokenizes query and expands CJK runs into n-grams, per
// spec §4.4.
func candidateTerms(query string) []string {
	var out []string
	for _, tok := range tokenPattern.FindAllString(query, -1) {
		if isLatin(tok) {
			out = append(out, strings.ToLower(tok))
			continue
		}
		out = append(out, tok)
		runes := []rune(tok)
		if len(runes) > 2 {
			for n := 2; n <= 4; n++ {
				for i := 0; i+n <= len(runes); i++ {
					out = append(out, string(runes[i:i+n]))
				}
			}
		}
	}
	return out
}

func isLatin(tok string) bool {
	for _, r := range tok {
		if r > 127 {
			return false
		}
		if r >= '0' && r <= '9' {
			return true // digit runs behave like Latin: lower-cased no-op, looked up verbatim
		}
	}
	return true
}
