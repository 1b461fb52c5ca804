// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package apitest provides an in-memory api.Backend with failure injection.
package apitest

import (
	"context"
	"fmt"
	"sync"

	"github.com/pdiddy/paper-reader/internal/api"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// MemBackend is an in-memory implementation of api.Backend for tests.
// Entities are kept per paper in insertion order.
type MemBackend struct {
	mu       sync.Mutex
	entities map[string][]types.Entity
	papers   map[string]types.Paper
	nextID   int

	// FailPatch, FailDelete, and FailPost make the matching calls fail.
	FailPatch  map[string]bool
	FailDelete map[string]bool
	FailPost   bool
	FailGet    bool

	// Calls counts calls by method name.
	Calls map[string]int

	// Patches records every successful patch in arrival order.
	Patches []types.EntityUpdateData
}

var _ api.Backend = (*MemBackend)(nil)

// NewMemBackend creates a backend seeded with entities for paperID.
func NewMemBackend(paperID string, entities ...types.Entity) *MemBackend {
	b := &MemBackend{
		entities:   map[string][]types.Entity{},
		papers:     map[string]types.Paper{},
		FailPatch:  map[string]bool{},
		FailDelete: map[string]bool{},
		Calls:      map[string]int{},
	}
	b.entities[paperID] = append([]types.Entity(nil), entities...)
	return b
}

// AddPaper registers paper metadata.
func (b *MemBackend) AddPaper(p types.Paper) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.papers[p.S2ID] = p
}

// Entity returns the backend's copy of an entity.
func (b *MemBackend) Entity(paperID, id string) (types.Entity, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entities[paperID] {
		if e.ID == id {
			return e, true
		}
	}
	return types.Entity{}, false
}

func (b *MemBackend) count(method string) {
	b.Calls[method]++
}

// CallCount returns how many times method was called.
func (b *MemBackend) CallCount(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Calls[method]
}

func (b *MemBackend) GetEntities(_ context.Context, paperID string) ([]types.Entity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count("GetEntities")
	if b.FailGet {
		return nil, fmt.Errorf("get entities: %w", api.ErrRequestFailed)
	}
	return append([]types.Entity(nil), b.entities[paperID]...), nil
}

func (b *MemBackend) PostEntity(_ context.Context, paperID string, data types.EntityCreateData) (types.Entity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count("PostEntity")
	if b.FailPost {
		return types.Entity{}, fmt.Errorf("post entity: %w", api.ErrRequestFailed)
	}
	b.nextID++
	e := types.Entity{
		ID:            fmt.Sprintf("new-%d", b.nextID),
		Type:          data.Type,
		Attributes:    data.Attributes,
		Relationships: data.Relationships.Clone(),
	}
	b.entities[paperID] = append(b.entities[paperID], e)
	return e, nil
}

func (b *MemBackend) PatchEntity(_ context.Context, paperID string, data types.EntityUpdateData) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count("PatchEntity")
	if b.FailPatch[data.ID] {
		return fmt.Errorf("patch %s: %w", data.ID, api.ErrRequestFailed)
	}
	for i, e := range b.entities[paperID] {
		if e.ID == data.ID {
			b.entities[paperID][i] = data.Apply(e)
			b.Patches = append(b.Patches, data)
			return nil
		}
	}
	return fmt.Errorf("patch %s: %w", data.ID, api.ErrNotFound)
}

func (b *MemBackend) DeleteEntity(_ context.Context, paperID, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count("DeleteEntity")
	if b.FailDelete[id] {
		return fmt.Errorf("delete %s: %w", id, api.ErrRequestFailed)
	}
	list := b.entities[paperID]
	for i, e := range list {
		if e.ID == id {
			b.entities[paperID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete %s: %w", id, api.ErrNotFound)
}

func (b *MemBackend) GetPapers(_ context.Context, s2IDs []string) ([]types.Paper, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count("GetPapers")
	var out []types.Paper
	for _, id := range s2IDs {
		if p, ok := b.papers[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
