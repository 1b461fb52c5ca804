// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package selection tracks which entities, rendered annotations, and
// annotation spans are selected. The three id lists are ordered sets and
// are always replaced or cleared together.
package selection

import "slices"

// State is an immutable selection snapshot.
type State struct {
	EntityIDs         []string `json:"selectedEntityIds" yaml:"selected_entity_ids"`
	AnnotationIDs     []string `json:"selectedAnnotationIds" yaml:"selected_annotation_ids"`
	AnnotationSpanIDs []string `json:"selectedAnnotationSpanIds" yaml:"selected_annotation_span_ids"`
}

// Empty returns a selection with nothing selected.
func Empty() State {
	return State{EntityIDs: []string{}, AnnotationIDs: []string{}, AnnotationSpanIDs: []string{}}
}

// Only returns a selection holding a single entity and no annotations.
func Only(entityID string) State {
	return State{EntityIDs: []string{entityID}, AnnotationIDs: []string{}, AnnotationSpanIDs: []string{}}
}

// Target identifies one clicked annotation. AnnotationID and SpanID are
// optional; empty values are not recorded.
type Target struct {
	EntityID     string
	AnnotationID string
	SpanID       string
}

// Select returns the selection after target is chosen. With multiselect off
// the previous selection is discarded first; with it on, ids already
// present are not appended again.
func (s State) Select(target Target, multiselect bool) State {
	next := Empty()
	if multiselect {
		next = s.Clone()
	}
	next.EntityIDs = appendUnique(next.EntityIDs, target.EntityID)
	next.AnnotationIDs = appendUnique(next.AnnotationIDs, target.AnnotationID)
	next.AnnotationSpanIDs = appendUnique(next.AnnotationSpanIDs, target.SpanID)
	return next
}

// Without returns the selection with every list cleared when entityID is
// selected, and an unchanged copy otherwise.
func (s State) Without(entityID string) State {
	if !s.Contains(entityID) {
		return s.Clone()
	}
	return Empty()
}

// Contains reports whether entityID is selected.
func (s State) Contains(entityID string) bool {
	return slices.Contains(s.EntityIDs, entityID)
}

// IsEmpty reports whether no entity is selected.
func (s State) IsEmpty() bool { return len(s.EntityIDs) == 0 }

// Last returns the most recently selected entity id.
func (s State) Last() (string, bool) {
	if len(s.EntityIDs) == 0 {
		return "", false
	}
	return s.EntityIDs[len(s.EntityIDs)-1], true
}

// Clone returns a deep copy.
func (s State) Clone() State {
	return State{
		EntityIDs:         append([]string{}, s.EntityIDs...),
		AnnotationIDs:     append([]string{}, s.AnnotationIDs...),
		AnnotationSpanIDs: append([]string{}, s.AnnotationSpanIDs...),
	}
}

func appendUnique(ids []string, id string) []string {
	if id == "" || slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}
