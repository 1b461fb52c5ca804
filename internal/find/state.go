// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package find implements the reader's find state machine. A search is
// inactive, free-text (matching delegated to the viewer or a text matcher),
// symbol (matches computed from selected symbols), or term (matches computed
// from selected terms).
//
// Transitions return new State values; callers perform any navigation the
// transition asks for.
package find

import (
	"slices"
	"time"
)

// Mode tags the active search.
type Mode string

const (
	ModeNone   Mode = ""
	ModeText   Mode = "free-text"
	ModeSymbol Mode = "symbol"
	ModeTerm   Mode = "term"
)

// NoIndex marks an unset match index or count.
const NoIndex = -1

// Query is the mode-specific search input. Text is used in free-text mode,
// SymbolFilters in symbol mode, and EntityID (the clicked term) in term mode.
type Query struct {
	Text          string         `json:"text,omitempty" yaml:"text,omitempty"`
	SymbolFilters []SymbolFilter `json:"symbolFilters,omitempty" yaml:"symbol_filters,omitempty"`
	EntityID      string         `json:"entityId,omitempty" yaml:"entity_id,omitempty"`
}

// State is a find snapshot. When Mode is not ModeNone, MatchedEntities is
// non-nil; when MatchIndex is set it indexes MatchedEntities (or, in
// free-text mode without a matcher, the viewer's matches).
type State struct {
	Mode            Mode      `json:"mode" yaml:"mode"`
	Query           *Query    `json:"query" yaml:"query"`
	MatchedEntities []string  `json:"matchedEntities" yaml:"matched_entities"`
	MatchIndex      int       `json:"matchIndex" yaml:"match_index"`
	MatchCount      int       `json:"matchCount" yaml:"match_count"`
	ActivatedAt     time.Time `json:"activatedAt" yaml:"activated_at"`
}

// Inactive returns the closed find state.
func Inactive() State {
	return State{Mode: ModeNone, MatchIndex: NoIndex, MatchCount: NoIndex}
}

// Active reports whether a search is open.
func (s State) Active() bool { return s.Mode != ModeNone }

// EntitySearch reports whether the mode's matches are entities the reader
// navigates to itself.
func (s State) EntitySearch() bool { return s.Mode == ModeSymbol || s.Mode == ModeTerm }

// StartText opens a free-text search.
func StartText(now time.Time) State {
	return State{
		Mode:            ModeText,
		Query:           &Query{},
		MatchedEntities: []string{},
		MatchIndex:      NoIndex,
		MatchCount:      NoIndex,
		ActivatedAt:     now,
	}
}

// StartSymbol opens a symbol search over matching, focused on clickedID.
func StartSymbol(matching []string, clickedID string, filters []SymbolFilter, now time.Time) State {
	if filters == nil {
		filters = slices.Clone(DefaultSymbolFilters)
	}
	return withMatches(State{
		Mode:        ModeSymbol,
		Query:       &Query{SymbolFilters: filters, EntityID: clickedID},
		ActivatedAt: now,
	}, matching, clickedID)
}

// StartTerm opens a term search over matching, focused on clickedID.
func StartTerm(matching []string, clickedID string, now time.Time) State {
	return withMatches(State{
		Mode:        ModeTerm,
		Query:       &Query{EntityID: clickedID},
		ActivatedAt: now,
	}, matching, clickedID)
}

func withMatches(s State, matching []string, focusID string) State {
	if matching == nil {
		matching = []string{}
	}
	s.MatchedEntities = matching
	s.MatchCount = len(matching)
	s.MatchIndex = slices.Index(matching, focusID)
	return s
}

// WithQuery stores q without recomputing matches.
func (s State) WithQuery(q Query) State {
	s.Query = &q
	return s
}

// WithMatches stores q and a recomputed match set, focusing focusID
// (NoIndex when it is not among the matches).
func (s State) WithMatches(q Query, matching []string, focusID string) State {
	s.Query = &q
	return withMatches(s, matching, focusID)
}

// ValidIndex reports whether i addresses a matched entity.
func (s State) ValidIndex(i int) bool {
	return i >= 0 && i < len(s.MatchedEntities)
}

// WithMatchIndex stores i. In symbol and term modes it also returns the
// entity at i, which the caller navigates to.
func (s State) WithMatchIndex(i int) (State, string, bool) {
	var target string
	ok := false
	if s.EntitySearch() && s.ValidIndex(i) {
		target, ok = s.MatchedEntities[i], true
	}
	s.MatchIndex = i
	return s, target, ok
}

// WithMatchCount stores a match count reported by the viewer.
func (s State) WithMatchCount(n int) State {
	s.MatchCount = n
	return s
}

// Current returns the entity at the current match index.
func (s State) Current() (string, bool) {
	if !s.ValidIndex(s.MatchIndex) {
		return "", false
	}
	return s.MatchedEntities[s.MatchIndex], true
}

// Close returns the inactive state.
func (s State) Close() State { return Inactive() }
