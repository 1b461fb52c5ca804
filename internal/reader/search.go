// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reader

import (
	"github.com/pdiddy/paper-reader/internal/find"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// StartTextSearch opens a free-text search. Matching is left to the viewer
// unless a TextMatcher is configured.
func (r *Reader) StartTextSearch() {
	r.transition(func(s *state, _ *effects) bool {
		s.find = find.StartText(r.now())
		r.metrics.RecordSearch(string(find.ModeText), -1)
		return true
	})
}

// SetFindQuery updates the query of the open search. In symbol mode the
// match set is recomputed from the selected symbols under the query's
// filters, focused on the last selected symbol; with no symbols selected
// nothing changes. In free-text mode with a TextMatcher the matching
// sentences become the match set. Otherwise only the query is stored.
func (r *Reader) SetFindQuery(q find.Query) bool {
	return r.transition(func(s *state, _ *effects) bool {
		switch {
		case s.find.Mode == find.ModeSymbol:
			symbols := s.entities.FilterType(s.selection.EntityIDs, types.EntitySymbol)
			if len(symbols) == 0 {
				return false
			}
			matching := find.MatchingSymbols(symbols, s.entities, q.SymbolFilters)
			s.find = s.find.WithMatches(q, matching, symbols[len(symbols)-1])
			r.metrics.RecordSearch(string(find.ModeSymbol), len(matching))
		case s.find.Mode == find.ModeText && r.textMatcher != nil:
			matching := r.textMatcher.MatchSentences(s.entities, q.Text)
			focus := ""
			if len(matching) > 0 {
				focus = matching[0]
			}
			s.find = s.find.WithMatches(q, matching, focus)
		default:
			s.find = s.find.WithQuery(q)
		}
		return true
	})
}

// SetFindMatchIndex moves the search to match i. In symbol and term modes
// (and free-text mode with a TextMatcher) i must address a match; the
// viewport is navigated to that entity exactly once. In free-text mode
// without a matcher i indexes the viewer's own matches and is stored as is.
// It returns false when i is rejected.
func (r *Reader) SetFindMatchIndex(i int) bool {
	return r.transition(func(s *state, fx *effects) bool {
		if !s.find.Active() {
			return false
		}
		headless := s.find.Mode == find.ModeText && r.textMatcher != nil
		if (s.find.EntitySearch() || headless) && !s.find.ValidIndex(i) {
			return false
		}
		if !s.find.EntitySearch() && !headless && i < find.NoIndex {
			return false
		}

		next, target, ok := s.find.WithMatchIndex(i)
		if headless {
			target, ok = next.Current()
		}
		s.find = next
		if ok {
			if e, found := s.entities.Get(target); found {
				s.jumpTarget = target
				fx.navigate(r, e)
			}
		}
		return true
	})
}

// SetFindMatchCount records the number of matches the viewer found. It only
// applies to free-text searches without a TextMatcher; other modes derive
// the count from their match set.
func (r *Reader) SetFindMatchCount(n int) bool {
	return r.transition(func(s *state, _ *effects) bool {
		if s.find.Mode != find.ModeText || r.textMatcher != nil {
			return false
		}
		s.find = s.find.WithMatchCount(n)
		return true
	})
}

// CloseFindBar closes any search.
func (r *Reader) CloseFindBar() {
	r.transition(func(s *state, _ *effects) bool {
		s.find = s.find.Close()
		return true
	})
}

// Find returns the current find state.
func (r *Reader) Find() find.State {
	var f find.State
	r.read(func(s state) { f = s.find })
	return f
}

// JumpToEntity scrolls the viewport to an entity's first box and makes it
// the jump target. It returns false when the entity is unknown, has no
// boxes, or its page has not been rendered.
func (r *Reader) JumpToEntity(id string) bool {
	e, ok := r.Entity(id)
	if !ok || !r.jumpTo(e) {
		return false
	}
	r.transition(func(s *state, _ *effects) bool {
		s.jumpTarget = id
		return true
	})
	return true
}

// jumpTo navigates to e's first box.
func (r *Reader) jumpTo(e types.Entity) bool {
	box, ok := e.FirstBox()
	if !ok || r.nav == nil {
		r.log.Debug().Str("entity_id", e.ID).Msg("entity cannot be navigated to")
		r.metrics.RecordNavigation(false)
		return false
	}
	if err := r.nav.JumpToBox(box); err != nil {
		r.log.Debug().Str("entity_id", e.ID).Err(err).Msg("navigation failed")
		r.metrics.RecordNavigation(false)
		return false
	}
	r.metrics.RecordNavigation(true)
	return true
}
