// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textfind matches free text against sentence entities when no PDF
// viewer is attached to do it. Queries compile into an Aho-Corasick
// automaton that is run over each sentence's text.
package textfind

import (
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/paper-reader/internal/entitystore"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// Occurrence is one match inside a sentence. Offsets are byte offsets into
// the normalized sentence text.
type Occurrence struct {
	EntityID string `json:"entityId" yaml:"entity_id"`
	Start    int    `json:"start" yaml:"start"`
	End      int    `json:"end" yaml:"end"`
	Pattern  string `json:"pattern" yaml:"pattern"`
}

// Result lists matching sentence ids in store order and every occurrence.
type Result struct {
	EntityIDs   []string     `json:"entityIds" yaml:"entity_ids"`
	Occurrences []Occurrence `json:"occurrences" yaml:"occurrences"`
}

// Matcher is a compiled set of query patterns.
type Matcher struct {
	ac       ahocorasick.AhoCorasick
	patterns []string
}

// Normalize folds text for matching: NFC, lower case, single spaces.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(norm.NFC.String(s))), " ")
}

// Compile builds a matcher for queries. Empty queries are dropped; a matcher
// with no patterns matches nothing.
func Compile(queries ...string) *Matcher {
	seen := map[string]bool{}
	var patterns []string
	for _, q := range queries {
		p := Normalize(q)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		patterns = append(patterns, p)
	}

	m := &Matcher{patterns: patterns}
	if len(patterns) > 0 {
		m.ac = ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
			AsciiCaseInsensitive: true,
			MatchOnlyWholeWords:  false,
			MatchKind:            ahocorasick.LeftMostLongestMatch,
		}).Build(patterns)
	}
	return m
}

// Scan returns the occurrences of the patterns in text.
func (m *Matcher) Scan(entityID, text string) []Occurrence {
	if len(m.patterns) == 0 {
		return nil
	}
	var out []Occurrence
	for _, match := range m.ac.FindAll(Normalize(text)) {
		out = append(out, Occurrence{
			EntityID: entityID,
			Start:    match.Start(),
			End:      match.End(),
			Pattern:  m.patterns[match.Pattern()],
		})
	}
	return out
}

// Sentences scans every sentence entity in store. A sentence's text is its
// Text attribute, falling back to its TeX.
func (m *Matcher) Sentences(store entitystore.Store) Result {
	res := Result{EntityIDs: []string{}}
	for _, id := range store.OfType(types.EntitySentence) {
		e, _ := store.Get(id)
		text := e.Attributes.Text
		if text == "" {
			text = e.Attributes.Tex
		}
		occ := m.Scan(id, text)
		if len(occ) == 0 {
			continue
		}
		res.EntityIDs = append(res.EntityIDs, id)
		res.Occurrences = append(res.Occurrences, occ...)
	}
	return res
}

// Finder answers free-text queries for the reader.
type Finder struct{}

// MatchSentences returns the ids of sentences in store containing query,
// ignoring case and runs of whitespace.
func (Finder) MatchSentences(store entitystore.Store, query string) []string {
	return Compile(query).Sentences(store).EntityIDs
}
