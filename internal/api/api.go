// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api defines the entity backend contract and an HTTP client for it.
// Request and response bodies use a {"data": ...} envelope.
package api

import (
	"context"
	"errors"

	"github.com/pdiddy/paper-reader/pkg/types"
)

var (
	// ErrNotFound is returned when the backend has no record for the request.
	ErrNotFound = errors.New("not found")

	// ErrRequestFailed is returned for any other non-success response.
	ErrRequestFailed = errors.New("request failed")
)

// Backend is the entity API the reader synchronizes with. Every call is
// fallible; callers leave their in-memory state untouched on error.
type Backend interface {
	// GetEntities returns every entity of a paper.
	GetEntities(ctx context.Context, paperID string) ([]types.Entity, error)

	// PostEntity creates an entity and returns it with its assigned id.
	PostEntity(ctx context.Context, paperID string, data types.EntityCreateData) (types.Entity, error)

	// PatchEntity applies data to the entity named by data.ID.
	PatchEntity(ctx context.Context, paperID string, data types.EntityUpdateData) error

	// DeleteEntity removes an entity.
	DeleteEntity(ctx context.Context, paperID, id string) error

	// GetPapers returns metadata for the given Semantic Scholar ids.
	GetPapers(ctx context.Context, s2IDs []string) ([]types.Paper, error)
}

// Envelope wraps every request and response body.
type Envelope[T any] struct {
	Data T `json:"data"`
}

// ErrorBody is the body of a failed response.
type ErrorBody struct {
	Error string `json:"error"`
}
