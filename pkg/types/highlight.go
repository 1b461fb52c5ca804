// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Facet is a semantic skimming category.
type Facet string

const (
	FacetObjective Facet = "objective"
	FacetNovelty   Facet = "novelty"
	FacetMethod    Facet = "method"
	FacetResult    Facet = "result"
)

// Facets lists every facet in display order.
var Facets = []Facet{FacetObjective, FacetNovelty, FacetMethod, FacetResult}

// Valid reports whether f is one of the known facets.
func (f Facet) Valid() bool {
	for _, known := range Facets {
		if f == known {
			return true
		}
	}
	return false
}

// SectionDelimiter separates levels of a hierarchical section path.
const SectionDelimiter = "@@"

// SectionKey returns the last segment of an "@@"-delimited section path.
func SectionKey(section string) string {
	parts := strings.Split(section, SectionDelimiter)
	return strings.TrimSpace(parts[len(parts)-1])
}

// Section is a heading in the highlight corpus.
type Section struct {
	ID     string        `json:"id" yaml:"id"`
	Text   string        `json:"text" yaml:"text"`
	Boxes  []BoundingBox `json:"boxes" yaml:"boxes"`
	Parent string        `json:"parent,omitempty" yaml:"parent,omitempty"`
}

// RawHighlight is a scored, labeled sentence from the highlight corpus.
type RawHighlight struct {
	ID      string        `json:"id" yaml:"id"`
	Text    string        `json:"text" yaml:"text"`
	Section string        `json:"section" yaml:"section"`
	Label   Facet         `json:"label" yaml:"label"`
	Score   float64       `json:"score" yaml:"score"`
	Boxes   []BoundingBox `json:"boxes" yaml:"boxes"`
}

// HighlightCorpus is the precomputed highlight data for one paper.
type HighlightCorpus struct {
	Sections   []Section      `json:"sections" yaml:"sections"`
	Highlights []RawHighlight `json:"highlights" yaml:"highlights"`
}

// FacetedHighlight is a highlight ready for display.
type FacetedHighlight struct {
	ID      string        `json:"id" yaml:"id"`
	Text    string        `json:"text" yaml:"text"`
	Section string        `json:"section" yaml:"section"`
	Label   Facet         `json:"label" yaml:"label"`
	Score   float64       `json:"score" yaml:"score"`
	Boxes   []BoundingBox `json:"boxes" yaml:"boxes"`
	Color   string        `json:"color" yaml:"color"`
}

// FirstBox returns the first box of the highlight.
func (h FacetedHighlight) FirstBox() (BoundingBox, bool) {
	if len(h.Boxes) == 0 {
		return BoundingBox{}, false
	}
	return h.Boxes[0], true
}
