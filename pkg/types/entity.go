// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-reader core:
// entities and their geometry, paper metadata, faceted highlights, and
// configuration.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EntityType names the kind of an entity. The set is closed for the types
// the reader knows how to render; unknown types are carried through as-is.
type EntityType string

const (
	EntityCitation EntityType = "citation"
	EntitySymbol   EntityType = "symbol"
	EntityTerm     EntityType = "term"
	EntityEquation EntityType = "equation"
	EntitySentence EntityType = "sentence"
	EntityBox      EntityType = "box"
)

// SourceHumanAnnotation marks geometry and attributes authored in the reader
// rather than produced by the extraction pipeline.
const SourceHumanAnnotation = "human-annotation"

// BoundingBox locates a region on a page. Left, Top, Width, and Height are
// ratios of the page dimensions; Page is zero-based.
type BoundingBox struct {
	Left   float64 `json:"left" yaml:"left"`
	Top    float64 `json:"top" yaml:"top"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Page   int     `json:"page" yaml:"page"`
	Source string  `json:"source,omitempty" yaml:"source,omitempty"`
}

// Right returns the right edge of the box.
func (b BoundingBox) Right() float64 { return b.Left + b.Width }

// Bottom returns the bottom edge of the box.
func (b BoundingBox) Bottom() float64 { return b.Top + b.Height }

// Attributes holds the type-specific fields of an entity. Fields that do not
// apply to an entity's type are left at their zero value.
type Attributes struct {
	Version       int           `json:"version" yaml:"version"`
	Source        string        `json:"source,omitempty" yaml:"source,omitempty"`
	BoundingBoxes []BoundingBox `json:"bounding_boxes" yaml:"bounding_boxes"`
	Tags          []string      `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Tex is the TeX of a symbol, equation, or sentence.
	Tex string `json:"tex,omitempty" yaml:"tex,omitempty"`

	// Name is the surface form of a term.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// TermType classifies a term (e.g. "nlp-term", "glossary").
	TermType string `json:"term_type,omitempty" yaml:"term_type,omitempty"`

	// Definitions lists definitions attached to a term or symbol.
	Definitions []string `json:"definitions,omitempty" yaml:"definitions,omitempty"`

	// Text is the plain text of a sentence.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// PaperID is the Semantic Scholar id of the paper a citation points to.
	PaperID string `json:"paper_id,omitempty" yaml:"paper_id,omitempty"`
}

// Ref points at another entity. An empty ID encodes a null reference.
type Ref struct {
	Type EntityType `json:"type" yaml:"type"`
	ID   string     `json:"id" yaml:"id"`
}

// Relation is either a single reference (possibly null) or a list of
// references. On the wire it is an object, null, or an array.
type Relation struct {
	One    *Ref
	Many   []Ref
	IsMany bool
}

// OneRef builds a single-valued relation.
func OneRef(t EntityType, id string) Relation {
	return Relation{One: &Ref{Type: t, ID: id}}
}

// ManyRefs builds a list-valued relation.
func ManyRefs(refs ...Ref) Relation {
	return Relation{Many: refs, IsMany: true}
}

// ID returns the id of a single-valued relation, or "" when the relation is
// null or list-valued.
func (r Relation) ID() string {
	if r.IsMany || r.One == nil {
		return ""
	}
	return r.One.ID
}

// IDs returns every referenced id in order.
func (r Relation) IDs() []string {
	if !r.IsMany {
		if id := r.ID(); id != "" {
			return []string{id}
		}
		return nil
	}
	ids := make([]string, 0, len(r.Many))
	for _, ref := range r.Many {
		ids = append(ids, ref.ID)
	}
	return ids
}

// MarshalJSON encodes the relation as an object, null, or array.
func (r Relation) MarshalJSON() ([]byte, error) {
	if r.IsMany {
		if r.Many == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(r.Many)
	}
	if r.One == nil || r.One.ID == "" {
		if r.One == nil {
			return []byte("null"), nil
		}
		return json.Marshal(struct {
			Type EntityType `json:"type"`
			ID   *string    `json:"id"`
		}{Type: r.One.Type})
	}
	return json.Marshal(r.One)
}

// UnmarshalJSON accepts an object, null, or array.
func (r *Relation) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*r = Relation{}
		return nil
	case len(trimmed) > 0 && trimmed[0] == '[':
		var many []Ref
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return fmt.Errorf("decoding relation list: %w", err)
		}
		*r = Relation{Many: many, IsMany: true}
		return nil
	default:
		var raw struct {
			Type EntityType `json:"type"`
			ID   *string    `json:"id"`
		}
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("decoding relation: %w", err)
		}
		ref := &Ref{Type: raw.Type}
		if raw.ID != nil {
			ref.ID = *raw.ID
		}
		*r = Relation{One: ref}
		return nil
	}
}

// Relationships maps relationship names (parent, children, sentence, ...)
// to relations.
type Relationships map[string]Relation

// Clone returns a shallow copy of the map.
func (r Relationships) Clone() Relationships {
	if r == nil {
		return nil
	}
	out := make(Relationships, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Entity is an immutable snapshot of an addressable object in a paper.
type Entity struct {
	ID            string        `json:"id" yaml:"id"`
	Type          EntityType    `json:"type" yaml:"type"`
	Attributes    Attributes    `json:"attributes" yaml:"attributes"`
	Relationships Relationships `json:"relationships" yaml:"relationships"`
}

// FirstBox returns the first bounding box of the entity.
func (e Entity) FirstBox() (BoundingBox, bool) {
	if len(e.Attributes.BoundingBoxes) == 0 {
		return BoundingBox{}, false
	}
	return e.Attributes.BoundingBoxes[0], true
}

// IsSymbol reports whether the entity is a symbol.
func (e Entity) IsSymbol() bool { return e.Type == EntitySymbol }

// IsTerm reports whether the entity is a term.
func (e Entity) IsTerm() bool { return e.Type == EntityTerm }

// IsCitation reports whether the entity is a citation.
func (e Entity) IsCitation() bool { return e.Type == EntityCitation }

// EntityCreateData is the body of a create request. The backend assigns the id.
type EntityCreateData struct {
	Type          EntityType    `json:"type" yaml:"type"`
	Attributes    Attributes    `json:"attributes" yaml:"attributes"`
	Relationships Relationships `json:"relationships" yaml:"relationships"`
}

// AttributesPatch is a sparse attribute delta. Nil fields are left unchanged
// when the patch is applied.
type AttributesPatch struct {
	Source        *string       `json:"source,omitempty"`
	BoundingBoxes []BoundingBox `json:"bounding_boxes,omitempty"`
	Tags          []string      `json:"tags,omitempty"`
	Tex           *string       `json:"tex,omitempty"`
	Name          *string       `json:"name,omitempty"`
	TermType      *string       `json:"term_type,omitempty"`
	Definitions   []string      `json:"definitions,omitempty"`
	Text          *string       `json:"text,omitempty"`
	PaperID       *string       `json:"paper_id,omitempty"`
}

// Apply shallow-merges the patch over a and returns the result.
func (p AttributesPatch) Apply(a Attributes) Attributes {
	if p.Source != nil {
		a.Source = *p.Source
	}
	if p.BoundingBoxes != nil {
		a.BoundingBoxes = append([]BoundingBox(nil), p.BoundingBoxes...)
	}
	if p.Tags != nil {
		a.Tags = append([]string(nil), p.Tags...)
	}
	if p.Tex != nil {
		a.Tex = *p.Tex
	}
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.TermType != nil {
		a.TermType = *p.TermType
	}
	if p.Definitions != nil {
		a.Definitions = append([]string(nil), p.Definitions...)
	}
	if p.Text != nil {
		a.Text = *p.Text
	}
	if p.PaperID != nil {
		a.PaperID = *p.PaperID
	}
	return a
}

// EntityUpdateData is the body of a patch request.
type EntityUpdateData struct {
	ID            string          `json:"id"`
	Type          EntityType      `json:"type"`
	Attributes    AttributesPatch `json:"attributes"`
	Relationships Relationships   `json:"relationships,omitempty"`
}

// Apply returns a copy of e with the update's attributes and relationships
// shallow-merged over the previous snapshot.
func (u EntityUpdateData) Apply(e Entity) Entity {
	next := e
	next.Attributes = u.Attributes.Apply(e.Attributes)
	rels := e.Relationships.Clone()
	if rels == nil && len(u.Relationships) > 0 {
		rels = make(Relationships, len(u.Relationships))
	}
	for k, v := range u.Relationships {
		rels[k] = v
	}
	next.Relationships = rels
	return next
}

// StringPtr returns a pointer to s, for building patches.
func StringPtr(s string) *string { return &s }
