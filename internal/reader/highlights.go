// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reader

import (
	"github.com/pdiddy/paper-reader/internal/highlights"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// withEngine runs fn against the highlight engine and publishes a snapshot.
// It returns false when no engine is configured.
func (r *Reader) withEngine(fn func(e *highlights.Engine)) bool {
	if r.engine == nil {
		return false
	}
	fn(r.engine)
	r.touch()
	return true
}

// SetHighlightQuantity applies the quantity control.
func (r *Reader) SetHighlightQuantity(value int) bool {
	return r.withEngine(func(e *highlights.Engine) { e.SetQuantity(value) })
}

// ToggleFacet selects or deselects a facet.
func (r *Reader) ToggleFacet(f types.Facet) bool {
	return r.withEngine(func(e *highlights.Engine) { e.ToggleFacet(f) })
}

// SetFacetColor recolors a facet.
func (r *Reader) SetFacetColor(f types.Facet, color string) bool {
	return r.withEngine(func(e *highlights.Engine) { e.SetColor(f, color) })
}

// HideHighlight removes a highlight from the visible set.
func (r *Reader) HideHighlight(id string) bool {
	if r.engine == nil {
		return false
	}
	h, ok := r.engine.Get(id)
	if !ok {
		return false
	}
	return r.withEngine(func(e *highlights.Engine) { e.Hide(h) })
}

// UnhideAllHighlights restores every hidden highlight.
func (r *Reader) UnhideAllHighlights() bool {
	return r.withEngine(func(e *highlights.Engine) { e.UnhideAll() })
}

// ShowAllHighlightsForSection adds or, when active is false, resets the
// highlights of a section.
func (r *Reader) ShowAllHighlightsForSection(section string, active bool) bool {
	return r.withEngine(func(e *highlights.Engine) { e.ShowAllForSection(section, active) })
}

// NextHighlight focuses and navigates to the next visible highlight.
func (r *Reader) NextHighlight() (types.FacetedHighlight, bool) {
	return r.stepHighlight((*highlights.Engine).Next)
}

// PreviousHighlight focuses and navigates to the previous visible highlight.
func (r *Reader) PreviousHighlight() (types.FacetedHighlight, bool) {
	return r.stepHighlight((*highlights.Engine).Previous)
}

func (r *Reader) stepHighlight(step func(*highlights.Engine) (types.FacetedHighlight, bool)) (types.FacetedHighlight, bool) {
	if r.engine == nil {
		return types.FacetedHighlight{}, false
	}
	h, ok := step(r.engine)
	if !ok {
		return h, false
	}
	r.transition(func(s *state, _ *effects) bool {
		s.jumpTarget = h.ID
		return true
	})
	return h, true
}

// SelectHighlight focuses a visible highlight and navigates to it.
func (r *Reader) SelectHighlight(id string) bool {
	if r.engine == nil {
		return false
	}
	ok := r.engine.Focus(id)
	r.transition(func(s *state, _ *effects) bool {
		if ok {
			s.jumpTarget = id
		}
		return true
	})
	return ok
}
