// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reader

import (
	"github.com/pdiddy/paper-reader/internal/find"
	"github.com/pdiddy/paper-reader/internal/selection"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// SelectEntity replaces the selection with id alone. It does not start a
// search. Unknown ids are ignored.
func (r *Reader) SelectEntity(id string) bool {
	return r.transition(func(s *state, _ *effects) bool {
		if !s.entities.Has(id) {
			return false
		}
		s.selection = selection.Only(id)
		return true
	})
}

// SelectEntityAnnotation selects a clicked annotation. Without multiselect
// the previous selection is replaced. Selecting a symbol or term then
// starts a symbol or term search over every selected entity of that type;
// selecting anything else clears the jump target. Unknown ids are ignored.
func (r *Reader) SelectEntityAnnotation(entityID, annotationID, spanID string) bool {
	return r.transition(func(s *state, _ *effects) bool {
		e, ok := s.entities.Get(entityID)
		if !ok {
			return false
		}
		target := selection.Target{EntityID: entityID, AnnotationID: annotationID, SpanID: spanID}
		s.selection = s.selection.Select(target, s.ui.Settings.Multiselect)

		switch e.Type {
		case types.EntityTerm:
			terms := s.entities.FilterType(s.selection.EntityIDs, types.EntityTerm)
			matching := find.MatchingTerms(terms, s.entities)
			s.find = find.StartTerm(matching, entityID, r.now())
			r.metrics.RecordSearch(string(find.ModeTerm), len(matching))
		case types.EntitySymbol:
			symbols := s.entities.FilterType(s.selection.EntityIDs, types.EntitySymbol)
			matching := find.MatchingSymbols(symbols, s.entities, nil)
			s.find = find.StartSymbol(matching, entityID, nil, r.now())
			r.metrics.RecordSearch(string(find.ModeSymbol), len(matching))
		default:
			s.jumpTarget = ""
		}
		return true
	})
}

// ClearEntitySelection empties the selection and the jump target and closes
// an open symbol or term search. It does nothing while annotation
// interaction is disabled.
func (r *Reader) ClearEntitySelection() bool {
	return r.transition(func(s *state, _ *effects) bool {
		if !s.ui.Settings.AnnotationInteraction {
			return false
		}
		if s.find.EntitySearch() {
			s.find = s.find.Close()
		}
		s.selection = selection.Empty()
		s.jumpTarget = ""
		return true
	})
}

// Selection returns the current selection.
func (r *Reader) Selection() selection.State {
	var sel selection.State
	r.read(func(s state) { sel = s.selection.Clone() })
	return sel
}
