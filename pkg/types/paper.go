// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// PaperID identifies the document open in the reader.
type PaperID struct {
	// Type is the id namespace, e.g. "arxiv".
	Type string `json:"type" yaml:"type"`

	// ID is the identifier within the namespace (e.g. "2102.09039").
	ID string `json:"id" yaml:"id"`
}

// String renders the id as "type:id".
func (p PaperID) String() string {
	if p.Type == "" {
		return p.ID
	}
	return p.Type + ":" + p.ID
}

// ParsePaperID parses "type:id". A value without a namespace is an arXiv id.
func ParsePaperID(s string) PaperID {
	s = strings.TrimSpace(s)
	if typ, id, ok := strings.Cut(s, ":"); ok && typ != "" && id != "" {
		return PaperID{Type: typ, ID: id}
	}
	return PaperID{Type: "arxiv", ID: s}
}

// Author is a paper author as returned by the paper metadata endpoint.
type Author struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Paper holds metadata for a paper referenced by a citation.
type Paper struct {
	// S2ID is the Semantic Scholar id, the key citations refer to.
	S2ID string `json:"s2Id" yaml:"s2_id"`

	// ArxivID is set when the paper is on arXiv.
	ArxivID string `json:"arxivId,omitempty" yaml:"arxiv_id,omitempty"`

	Title    string   `json:"title" yaml:"title"`
	Authors  []Author `json:"authors" yaml:"authors"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	URL      string   `json:"url,omitempty" yaml:"url,omitempty"`
	Venue    string   `json:"venue,omitempty" yaml:"venue,omitempty"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"`

	CitationVelocity         int `json:"citationVelocity,omitempty" yaml:"citation_velocity,omitempty"`
	InfluentialCitationCount int `json:"influentialCitationCount,omitempty" yaml:"influential_citation_count,omitempty"`
}
