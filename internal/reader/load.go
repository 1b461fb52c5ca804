// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reader

import (
	"context"
	"fmt"

	"github.com/pdiddy/paper-reader/internal/entitystore"
	"github.com/pdiddy/paper-reader/internal/find"
	"github.com/pdiddy/paper-reader/internal/selection"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// Load fetches the paper's entities into a fresh store, resetting selection
// and find state, then fetches metadata for the papers its citations point
// to. A load that finishes after a newer one started is discarded and
// returns ErrStaleLoad. A failed metadata fetch is logged and leaves the
// loaded entities in place.
func (r *Reader) Load(ctx context.Context) error {
	r.mu.Lock()
	r.generation++
	gen := r.generation
	r.mu.Unlock()

	entities, err := r.backend.GetEntities(ctx, r.paper.ID)
	if err != nil {
		r.log.Warn().Err(err).Msg("loading entities failed")
		return fmt.Errorf("loading entities for %s: %w", r.paper, err)
	}
	store := entitystore.FromSlice(entities, entitystore.ByID)

	applied := r.transition(func(s *state, _ *effects) bool {
		if r.generation != gen {
			return false
		}
		s.entities = store
		s.loaded = true
		s.papers = map[string]types.Paper{}
		s.selection = selection.Empty()
		s.find = find.Inactive()
		s.jumpTarget = ""
		return true
	})
	if !applied {
		r.log.Debug().Uint64("generation", gen).Msg("discarding stale load")
		return ErrStaleLoad
	}
	r.metrics.RecordLoad(store.Len())
	r.log.Info().Int("entities", store.Len()).Msg("entities loaded")

	ids := citedPaperIDs(store)
	if len(ids) == 0 {
		return nil
	}
	papers, err := r.backend.GetPapers(ctx, ids)
	if err != nil {
		r.log.Warn().Err(err).Int("papers", len(ids)).Msg("fetching cited paper metadata failed")
		return nil
	}
	byID := make(map[string]types.Paper, len(papers))
	for _, p := range papers {
		byID[p.S2ID] = p
	}
	r.transition(func(s *state, _ *effects) bool {
		if r.generation != gen {
			return false
		}
		s.papers = byID
		return true
	})
	return nil
}

// citedPaperIDs returns the distinct paper ids of citation entities in
// store order.
func citedPaperIDs(store entitystore.Store) []string {
	seen := map[string]bool{}
	var ids []string
	for _, id := range store.OfType(types.EntityCitation) {
		e, _ := store.Get(id)
		pid := e.Attributes.PaperID
		if pid == "" || seen[pid] {
			continue
		}
		seen[pid] = true
		ids = append(ids, pid)
	}
	return ids
}
