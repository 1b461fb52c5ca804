// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package viewer tracks the pages the PDF viewer has rendered and turns a
// bounding box into a scroll destination. The viewer itself is external;
// it reports document and page events and accepts ScrollPageIntoView calls.
package viewer

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pdiddy/paper-reader/pkg/types"
)

var (
	// ErrNoViewer is returned when navigation is attempted before a viewer is attached.
	ErrNoViewer = errors.New("viewer not attached")

	// ErrPageNotRendered is returned when the target page has not been rendered yet.
	ErrPageNotRendered = errors.New("page not rendered")

	// ErrNoBoxes is returned when the navigation target has no geometry.
	ErrNoBoxes = errors.New("no bounding boxes")
)

// Scroll offsets applied to the top-left of the target box, in PDF points.
const (
	ScrollOffsetX = -200
	ScrollOffsetY = 100
)

// PageView describes a rendered page: its size in PDF points at scale 1
// and the current zoom.
type PageView struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Scale  float64 `json:"scale"`
}

// Page is a rendered page as last reported by the viewer.
type Page struct {
	Number     int       `json:"number"`
	RenderedAt time.Time `json:"renderedAt"`
	View       PageView  `json:"view"`
}

// DocumentLoaded is sent by the viewer when a document finishes loading.
type DocumentLoaded struct {
	Fingerprint string `json:"fingerprint"`
	PageCount   int    `json:"pageCount"`
}

// PageRendered is sent by the viewer each time a page is (re)rendered.
type PageRendered struct {
	PageNumber int       `json:"pageNumber"`
	Timestamp  time.Time `json:"timestamp"`
	View       PageView  `json:"view"`
}

// Destination is an explicit "XYZ" destination on a one-based page.
type Destination struct {
	PageNumber int     `json:"pageNumber"`
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// Viewer is the navigation primitive the external PDF viewer exposes.
type Viewer interface {
	ScrollPageIntoView(dest Destination) error
}

// Navigator is the shared navigate-to-location capability. It is safe for
// concurrent use.
type Navigator struct {
	mu       sync.RWMutex
	viewer   Viewer
	document *DocumentLoaded
	pages    map[int]Page
}

// NewNavigator returns a navigator driving v. v may be nil until Attach.
func NewNavigator(v Viewer) *Navigator {
	return &Navigator{viewer: v, pages: map[int]Page{}}
}

// Attach sets the viewer navigation is sent to.
func (n *Navigator) Attach(v Viewer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.viewer = v
}

// HandleDocumentLoaded records the loaded document and forgets pages from
// any previous one.
func (n *Navigator) HandleDocumentLoaded(ev DocumentLoaded) {
	n.mu.Lock()
	defer n.mu.Unlock()
	doc := ev
	n.document = &doc
	n.pages = map[int]Page{}
}

// HandlePageRendered records a page render.
func (n *Navigator) HandlePageRendered(ev PageRendered) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pages[ev.PageNumber] = Page{Number: ev.PageNumber, RenderedAt: ev.Timestamp, View: ev.View}
}

// Document returns the loaded document, if any.
func (n *Navigator) Document() (DocumentLoaded, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.document == nil {
		return DocumentLoaded{}, false
	}
	return *n.document, true
}

// Pages returns rendered pages ordered by page number.
func (n *Navigator) Pages() []Page {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Page, 0, len(n.pages))
	for _, p := range n.pages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Destination computes where the viewer should scroll to show box. Box
// pages are zero-based; viewer pages are one-based.
func (n *Navigator) Destination(box types.BoundingBox) (Destination, error) {
	n.mu.RLock()
	page, ok := n.pages[box.Page+1]
	n.mu.RUnlock()
	if !ok {
		return Destination{}, fmt.Errorf("page %d: %w", box.Page+1, ErrPageNotRendered)
	}
	x, y := ToPDFPoint(page.View, box)
	return Destination{
		PageNumber: box.Page + 1,
		Name:       "XYZ",
		X:          x + ScrollOffsetX,
		Y:          y + ScrollOffsetY,
	}, nil
}

// JumpToBox scrolls the viewer to box.
func (n *Navigator) JumpToBox(box types.BoundingBox) error {
	n.mu.RLock()
	v := n.viewer
	n.mu.RUnlock()
	if v == nil {
		return ErrNoViewer
	}
	dest, err := n.Destination(box)
	if err != nil {
		return err
	}
	if err := v.ScrollPageIntoView(dest); err != nil {
		return fmt.Errorf("scrolling to page %d: %w", dest.PageNumber, err)
	}
	return nil
}

// JumpToBoxes scrolls to the first of boxes.
func (n *Navigator) JumpToBoxes(boxes []types.BoundingBox) error {
	if len(boxes) == 0 {
		return ErrNoBoxes
	}
	return n.JumpToBox(boxes[0])
}

// Recorder is a Viewer that remembers every destination it was sent. It
// stands in for a real viewer in headless runs and tests.
type Recorder struct {
	mu           sync.Mutex
	Destinations []Destination
}

// ScrollPageIntoView records dest.
func (r *Recorder) ScrollPageIntoView(dest Destination) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Destinations = append(r.Destinations, dest)
	return nil
}

// Calls returns a copy of the recorded destinations.
func (r *Recorder) Calls() []Destination {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Destination(nil), r.Destinations...)
}
