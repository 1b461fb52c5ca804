// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reader

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/pdiddy/paper-reader/internal/api"
	"github.com/pdiddy/paper-reader/internal/find"
	"github.com/pdiddy/paper-reader/internal/selection"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// maxConcurrentPatches bounds the patch fan-out of one update.
const maxConcurrentPatches = 8

// Propagation chooses whether an update is applied to equivalent entities.
type Propagation int

const (
	// PropagationDefault follows the session's propagate-edits setting.
	PropagationDefault Propagation = iota
	PropagationOn
	PropagationOff
)

// UpdateResult lists which targets of an update were patched and which
// failed, both in target order.
type UpdateResult struct {
	Patched []string `json:"patched" yaml:"patched"`
	Failed  []string `json:"failed" yaml:"failed"`
}

// OK reports whether every target was patched.
func (u UpdateResult) OK() bool { return len(u.Failed) == 0 && len(u.Patched) > 0 }

// CreateEntity posts data to the backend. On success the new entity is
// added to the store and becomes the only selection. On failure the store
// is unchanged and ok is false.
func (r *Reader) CreateEntity(ctx context.Context, data types.EntityCreateData) (id string, ok bool) {
	start := time.Now()
	created, err := r.backend.PostEntity(ctx, r.paper.ID, data)
	r.log.LogMutation("create", created.ID, time.Since(start), err)
	r.metrics.RecordMutation("create", time.Since(start), err == nil)
	if err != nil {
		r.notify("Could not create entity.")
		return "", false
	}

	r.transition(func(s *state, _ *effects) bool {
		s.entities = s.entities.Add(created.ID, created)
		s.selection = selection.Only(created.ID)
		return true
	})
	return created.ID, true
}

// ParentBox returns the union of the children's first boxes, placed on the
// page of the first child box and marked as human-authored. It returns
// false when no child has a box.
func ParentBox(children []types.Entity) (types.BoundingBox, bool) {
	var boxes []types.BoundingBox
	for _, c := range children {
		if b, ok := c.FirstBox(); ok {
			boxes = append(boxes, b)
		}
	}
	if len(boxes) == 0 {
		return types.BoundingBox{}, false
	}
	left, top := math.Inf(1), math.Inf(1)
	right, bottom := math.Inf(-1), math.Inf(-1)
	for _, b := range boxes {
		left = min(left, b.Left)
		top = min(top, b.Top)
		right = max(right, b.Right())
		bottom = max(bottom, b.Bottom())
	}
	return types.BoundingBox{
		Left:   left,
		Top:    top,
		Width:  right - left,
		Height: bottom - top,
		Page:   boxes[0].Page,
		Source: types.SourceHumanAnnotation,
	}, true
}

// parentSymbolData builds the create request for a symbol grouping children.
func parentSymbolData(children []types.Entity, box types.BoundingBox) types.EntityCreateData {
	tex := make([]string, 0, len(children))
	refs := make([]types.Ref, 0, len(children))
	sentence := ""
	for _, c := range children {
		tex = append(tex, find.StripTexDelimiters(c.Attributes.Tex))
		refs = append(refs, types.Ref{Type: types.EntitySymbol, ID: c.ID})
		if sentence == "" {
			sentence = c.Relationships["sentence"].ID()
		}
	}
	return types.EntityCreateData{
		Type: types.EntitySymbol,
		Attributes: types.Attributes{
			Source:        types.SourceHumanAnnotation,
			BoundingBoxes: []types.BoundingBox{box},
			Tags:          []string{},
			Tex:           strings.Join(tex, " "),
		},
		Relationships: types.Relationships{
			"children": types.ManyRefs(refs...),
			"sentence": types.OneRef(types.EntitySentence, sentence),
		},
	}
}

// CreateParentSymbol creates a symbol that groups children and links each
// child to it. It returns false when children is empty or has no boxes,
// when the parent cannot be created, or when linking any child fails.
// Links made before a failure are kept.
func (r *Reader) CreateParentSymbol(ctx context.Context, children []types.Entity) bool {
	if len(children) == 0 {
		return false
	}
	box, ok := ParentBox(children)
	if !ok {
		r.log.Debug().Int("children", len(children)).Msg("children have no bounding boxes")
		return false
	}

	parentID, ok := r.CreateEntity(ctx, parentSymbolData(children, box))
	if !ok {
		return false
	}

	for _, child := range children {
		update := types.EntityUpdateData{
			ID:   child.ID,
			Type: types.EntitySymbol,
			Attributes: types.AttributesPatch{
				Source: types.StringPtr(types.SourceHumanAnnotation),
			},
			Relationships: types.Relationships{
				"parent": types.OneRef(types.EntitySymbol, parentID),
			},
		}
		if !r.UpdateEntity(ctx, child, update, PropagationOff) {
			return false
		}
	}
	return true
}

// UpdateEntity patches entity and, when propagation is on, every entity
// equivalent to it. It returns true only if every patch succeeded.
func (r *Reader) UpdateEntity(ctx context.Context, entity types.Entity, data types.EntityUpdateData, p Propagation) bool {
	return r.UpdateEntityDetailed(ctx, entity, data, p).OK()
}

type patchOutcome struct {
	index int
	id    string
	err   error
}

// UpdateEntityDetailed is UpdateEntity reporting per-target outcomes. The
// targets are entity and, with propagation, the other entities in store
// order that are equivalent to it (same TeX for symbols, same name for
// terms). Patches run concurrently. The same delta is then applied to
// every patched entity still in the store; failed targets keep their
// previous snapshot.
func (r *Reader) UpdateEntityDetailed(ctx context.Context, entity types.Entity, data types.EntityUpdateData, p Propagation) UpdateResult {
	targets := r.updateTargets(entity, p)
	start := time.Now()

	results := pool.NewWithResults[patchOutcome]().WithMaxGoroutines(maxConcurrentPatches)
	for i, id := range targets {
		results.Go(func() patchOutcome {
			patch := data
			patch.ID = id
			return patchOutcome{index: i, id: id, err: r.backend.PatchEntity(ctx, r.paper.ID, patch)}
		})
	}
	outcomes := results.Wait()
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].index < outcomes[j].index })

	res := UpdateResult{Patched: []string{}, Failed: []string{}}
	for _, o := range outcomes {
		r.log.LogMutation("update", o.id, time.Since(start), o.err)
		if o.err != nil {
			res.Failed = append(res.Failed, o.id)
			continue
		}
		res.Patched = append(res.Patched, o.id)
	}
	r.metrics.RecordMutation("update", time.Since(start), res.OK())
	r.metrics.RecordPropagated(len(targets) - 1)

	if len(res.Patched) > 0 {
		r.transition(func(s *state, _ *effects) bool {
			for _, id := range res.Patched {
				prev, ok := s.entities.Get(id)
				if !ok {
					continue
				}
				s.entities = s.entities.Update(id, data.Apply(prev))
			}
			return true
		})
	}
	if !res.OK() {
		r.notify("Could not save all changes.")
	}
	return res
}

// updateTargets resolves the ids an update is sent to.
func (r *Reader) updateTargets(entity types.Entity, p Propagation) []string {
	targets := []string{entity.ID}
	r.read(func(s state) {
		propagate := p == PropagationOn || (p == PropagationDefault && s.ui.Settings.PropagateEntityEdits)
		if !propagate {
			return
		}
		for id, other := range s.entities.All() {
			if id != entity.ID && find.Equivalent(entity, other) {
				targets = append(targets, id)
			}
		}
	})
	return targets
}

// DeleteEntity deletes id on the backend, removes it from the store, and
// clears the selection if id was selected. An id the backend no longer
// knows counts as deleted, so repeating a delete is a no-op that still
// reports success.
func (r *Reader) DeleteEntity(ctx context.Context, id string) bool {
	start := time.Now()
	err := r.backend.DeleteEntity(ctx, r.paper.ID, id)
	if errors.Is(err, api.ErrNotFound) {
		r.log.Debug().Str("entity_id", id).Msg("entity already deleted")
		err = nil
	}
	r.log.LogMutation("delete", id, time.Since(start), err)
	r.metrics.RecordMutation("delete", time.Since(start), err == nil)
	if err != nil {
		r.notify("Could not delete entity.")
		return false
	}

	r.transition(func(s *state, _ *effects) bool {
		if !s.entities.Has(id) {
			return false
		}
		s.entities = s.entities.Delete(id)
		s.selection = s.selection.Without(id)
		return true
	})
	return true
}
