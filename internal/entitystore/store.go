// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package entitystore holds the client-side relational store of entities:
// an insertion-ordered id list plus an id-to-entity map.
//
// A Store is a value. Add, Update, and Delete return a new Store and never
// modify the receiver, so a snapshot handed to a renderer stays valid while
// later mutations are applied.
package entitystore

import (
	"encoding/json"
	"iter"

	"github.com/pdiddy/paper-reader/pkg/types"
)

// Store is an ordered, immutable collection of entities keyed by id.
// Every id in the order list has exactly one map entry and vice versa.
type Store struct {
	all  []string
	byID map[string]types.Entity
}

// New returns an empty store.
func New() Store {
	return Store{byID: map[string]types.Entity{}}
}

// ByID is the default key function for FromSlice.
func ByID(e types.Entity) string { return e.ID }

// FromSlice builds a store from entities in order, keyed by key. When two
// entities share a key the later snapshot wins and the earlier position is kept.
func FromSlice(entities []types.Entity, key func(types.Entity) string) Store {
	if key == nil {
		key = ByID
	}
	s := Store{
		all:  make([]string, 0, len(entities)),
		byID: make(map[string]types.Entity, len(entities)),
	}
	for _, e := range entities {
		id := key(e)
		if _, exists := s.byID[id]; !exists {
			s.all = append(s.all, id)
		}
		s.byID[id] = e
	}
	return s
}

func (s Store) clone() Store {
	next := Store{
		all:  make([]string, len(s.all), len(s.all)+1),
		byID: make(map[string]types.Entity, len(s.byID)+1),
	}
	copy(next.all, s.all)
	for id, e := range s.byID {
		next.byID[id] = e
	}
	return next
}

// Add returns a store containing entity under id. Adding an id that is
// already present replaces its snapshot in place.
func (s Store) Add(id string, entity types.Entity) Store {
	next := s.clone()
	if _, exists := next.byID[id]; !exists {
		next.all = append(next.all, id)
	}
	next.byID[id] = entity
	return next
}

// Update returns a store with the snapshot for id replaced. Updating an
// absent id returns an equivalent store.
func (s Store) Update(id string, entity types.Entity) Store {
	if _, exists := s.byID[id]; !exists {
		return s.clone()
	}
	next := s.clone()
	next.byID[id] = entity
	return next
}

// Delete returns a store without id. Deleting an absent id returns an
// equivalent store.
func (s Store) Delete(id string) Store {
	next := s.clone()
	if _, exists := next.byID[id]; !exists {
		return next
	}
	delete(next.byID, id)
	for i, other := range next.all {
		if other == id {
			next.all = append(next.all[:i], next.all[i+1:]...)
			break
		}
	}
	return next
}

// Get returns the entity stored under id.
func (s Store) Get(id string) (types.Entity, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// Has reports whether id is present.
func (s Store) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Len returns the number of entities.
func (s Store) Len() int { return len(s.all) }

// IDs returns a copy of the ordered id list.
func (s Store) IDs() []string {
	out := make([]string, len(s.all))
	copy(out, s.all)
	return out
}

// All iterates entities in insertion order.
func (s Store) All() iter.Seq2[string, types.Entity] {
	return func(yield func(string, types.Entity) bool) {
		for _, id := range s.all {
			if !yield(id, s.byID[id]) {
				return
			}
		}
	}
}

// Entities returns every entity in insertion order.
func (s Store) Entities() []types.Entity {
	out := make([]types.Entity, 0, len(s.all))
	for _, id := range s.all {
		out = append(out, s.byID[id])
	}
	return out
}

// OfType returns the ids of entities of type t, in insertion order.
func (s Store) OfType(t types.EntityType) []string {
	var out []string
	for _, id := range s.all {
		if s.byID[id].Type == t {
			out = append(out, id)
		}
	}
	return out
}

// FilterType returns the ids among ids whose entity has type t, preserving
// the order of ids. Unknown ids are skipped.
func (s Store) FilterType(ids []string, t types.EntityType) []string {
	var out []string
	for _, id := range ids {
		if e, ok := s.byID[id]; ok && e.Type == t {
			out = append(out, id)
		}
	}
	return out
}

type wireStore struct {
	All  []string                `json:"all"`
	ByID map[string]types.Entity `json:"byId"`
}

// MarshalJSON encodes the store as {"all": [...], "byId": {...}}.
func (s Store) MarshalJSON() ([]byte, error) {
	w := wireStore{All: s.all, ByID: s.byID}
	if w.All == nil {
		w.All = []string{}
	}
	if w.ByID == nil {
		w.ByID = map[string]types.Entity{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the {"all", "byId"} form. Ids listed in all without
// a map entry are dropped.
func (s *Store) UnmarshalJSON(data []byte) error {
	var w wireStore
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	entities := make([]types.Entity, 0, len(w.All))
	for _, id := range w.All {
		if e, ok := w.ByID[id]; ok {
			e.ID = id
			entities = append(entities, e)
		}
	}
	*s = FromSlice(entities, ByID)
	return nil
}
