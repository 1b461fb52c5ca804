// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package find

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/paper-reader/internal/entitystore"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// SymbolFilter names a rule relating a candidate symbol to a selected one.
type SymbolFilter string

const (
	// FilterExactMatch matches symbols whose normalized TeX is identical.
	FilterExactMatch SymbolFilter = "exact-match"

	// FilterPartialMatch matches symbols that contain the selected symbol,
	// either as a child or as a run of whole TeX tokens.
	FilterPartialMatch SymbolFilter = "partial-match"
)

// DefaultSymbolFilters are active when a symbol search starts.
var DefaultSymbolFilters = []SymbolFilter{FilterExactMatch, FilterPartialMatch}

// StripTexDelimiters removes leading and trailing '$' from tex.
func StripTexDelimiters(tex string) string {
	return strings.TrimRight(strings.TrimLeft(tex, "$"), "$")
}

// NormalizeTex canonicalizes TeX for comparison: NFC, no math delimiters,
// and whitespace kept only where it ends a control word before a letter.
func NormalizeTex(tex string) string {
	return joinTexTokens(TexTokens(tex))
}

// TexTokens splits TeX into control words (\alpha), control symbols (\,),
// and single characters. Math delimiters and whitespace are dropped.
func TexTokens(tex string) []string {
	runes := []rune(StripTexDelimiters(strings.TrimSpace(norm.NFC.String(tex))))
	var tokens []string
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '\\' && i+1 < len(runes) && unicode.IsLetter(runes[i+1]):
			j := i + 1
			for j < len(runes) && unicode.IsLetter(runes[j]) {
				j++
			}
			tokens = append(tokens, string(runes[i:j]))
			i = j
		case r == '\\' && i+1 < len(runes):
			tokens = append(tokens, string(runes[i:i+2]))
			i += 2
		default:
			tokens = append(tokens, string(r))
			i++
		}
	}
	return tokens
}

func joinTexTokens(tokens []string) string {
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 && isControlWord(tokens[i-1]) && startsWithLetter(tok) {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
	}
	return b.String()
}

func isControlWord(tok string) bool {
	return len(tok) > 1 && tok[0] == '\\' && startsWithLetter(tok[1:])
}

func startsWithLetter(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLetter(r)
}

// containsTokens reports whether needle occurs as a contiguous run in hay.
func containsTokens(hay, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(hay) {
		return false
	}
	for i := 0; i+len(needle) <= len(hay); i++ {
		if slices.Equal(hay[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

// NormalizeTermName canonicalizes a term name: NFC, lower case, single spaces.
func NormalizeTermName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(norm.NFC.String(name))), " ")
}

// MatchingSymbols returns the ids of all symbols in store that satisfy at
// least one filter relative to at least one selected symbol. Output follows
// store order, so it does not depend on the order of selected. Selected ids
// that are missing or not symbols are ignored. A nil filter list means
// DefaultSymbolFilters; an empty non-nil list matches nothing.
func MatchingSymbols(selected []string, store entitystore.Store, filters []SymbolFilter) []string {
	if filters == nil {
		filters = DefaultSymbolFilters
	}
	exact, partial := false, false
	for _, f := range filters {
		switch f {
		case FilterExactMatch:
			exact = true
		case FilterPartialMatch:
			partial = true
		}
	}

	var picks []pick
	for _, id := range store.FilterType(selected, types.EntitySymbol) {
		e, _ := store.Get(id)
		tokens := TexTokens(e.Attributes.Tex)
		picks = append(picks, pick{id: id, tex: joinTexTokens(tokens), tokens: tokens})
	}

	matching := []string{}
	if len(picks) == 0 || (!exact && !partial) {
		return matching
	}

	normalized := make(map[string]string)
	tokenized := make(map[string][]string)
	for id, e := range store.All() {
		if e.IsSymbol() {
			tokens := TexTokens(e.Attributes.Tex)
			tokenized[id] = tokens
			normalized[id] = joinTexTokens(tokens)
		}
	}

	for id, e := range store.All() {
		if !e.IsSymbol() {
			continue
		}
		for _, p := range picks {
			if exact && p.exact(id, normalized) {
				matching = append(matching, id)
				break
			}
			if partial && p.containedIn(id, e, normalized, tokenized[id]) {
				matching = append(matching, id)
				break
			}
		}
	}
	return matching
}

// pick is a selected symbol with its normalized TeX.
type pick struct {
	id     string
	tex    string
	tokens []string
}

func (p pick) exact(id string, normalized map[string]string) bool {
	if id == p.id {
		return true
	}
	return p.tex != "" && normalized[id] == p.tex
}

// containedIn reports whether candidate contains p without being an exact
// match for it.
func (p pick) containedIn(id string, candidate types.Entity, normalized map[string]string, tokens []string) bool {
	if p.exact(id, normalized) {
		return false
	}
	for _, childID := range candidate.Relationships["children"].IDs() {
		if _, isSymbol := normalized[childID]; isSymbol && p.exact(childID, normalized) {
			return true
		}
	}
	return containsTokens(tokens, p.tokens)
}

// MatchingTerms returns the ids of all terms in store whose normalized name
// equals the normalized name of at least one selected term, in store order.
func MatchingTerms(selected []string, store entitystore.Store) []string {
	names := make(map[string]bool)
	ids := make(map[string]bool)
	for _, id := range store.FilterType(selected, types.EntityTerm) {
		e, _ := store.Get(id)
		ids[id] = true
		if name := NormalizeTermName(e.Attributes.Name); name != "" {
			names[name] = true
		}
	}

	matching := []string{}
	if len(ids) == 0 {
		return matching
	}
	for id, e := range store.All() {
		if !e.IsTerm() {
			continue
		}
		if ids[id] || names[NormalizeTermName(e.Attributes.Name)] {
			matching = append(matching, id)
		}
	}
	return matching
}

// Equivalent reports whether b should receive an edit made to a when edits
// propagate. Symbols are equivalent when their TeX is identical, terms when
// their names are identical. Entities of different types never are.
func Equivalent(a, b types.Entity) bool {
	switch {
	case a.IsSymbol() && b.IsSymbol():
		return a.Attributes.Tex == b.Attributes.Tex
	case a.IsTerm() && b.IsTerm():
		return a.Attributes.Name == b.Attributes.Name
	}
	return false
}
