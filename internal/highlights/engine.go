// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package highlights computes the faceted skimming highlights shown over a
// paper. It indexes a precomputed corpus, keeps the top-scoring highlights
// of each facet under a quantity budget, and tracks which facets are
// selected, which highlights the reader hid, and which one has focus.
package highlights

import (
	"errors"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/pdiddy/paper-reader/internal/logger"
	"github.com/pdiddy/paper-reader/internal/metrics"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// ErrNoCorpus is returned when no highlight data exists for a paper.
var ErrNoCorpus = errors.New("no highlight corpus for paper")

// abstractSection is excluded from the corpus.
const abstractSection = "abstract"

// Navigator scrolls the viewport to a highlight.
type Navigator interface {
	JumpToBoxes(boxes []types.BoundingBox) error
}

// Engine owns every derived highlight collection. It is safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	corpus    types.HighlightCorpus
	threshold float64
	colors    map[types.Facet]string

	quantity    int
	multipliers map[types.Facet]float64
	selected    []types.Facet
	hidden      map[string]bool

	allByID    map[string]types.FacetedHighlight
	bySection  map[string][]string
	highlights []types.FacetedHighlight
	focusedID  string

	nav     Navigator
	log     *logger.Logger
	metrics *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithNavigator sets the navigator used by Next, Previous, and Focus.
func WithNavigator(n Navigator) Option { return func(e *Engine) { e.nav = n } }

// WithLogger sets the engine's logger.
func WithLogger(l *logger.Logger) Option { return func(e *Engine) { e.log = l } }

// WithMetrics sets the engine's metrics.
func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// New creates an engine over corpus and computes the initial highlight set.
func New(corpus types.HighlightCorpus, cfg types.HighlightConfig, opts ...Option) *Engine {
	defaults := types.DefaultHighlightConfig()
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = defaults.ScoreThreshold
	}
	colors := make(map[types.Facet]string, len(defaults.Colors))
	for f, c := range defaults.Colors {
		colors[f] = c
	}
	for f, c := range cfg.Colors {
		colors[f] = c
	}

	e := &Engine{
		corpus:      corpus,
		threshold:   cfg.ScoreThreshold,
		colors:      colors,
		quantity:    clampQuantity(cfg.Quantity),
		multipliers: Multipliers(clampQuantity(cfg.Quantity)),
		selected:    slices.Clone(types.Facets),
		hidden:      map[string]bool{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logger.OrNop(e.log).Component("highlights")

	e.mu.Lock()
	e.init()
	e.mu.Unlock()
	return e
}

func clampQuantity(q int) int {
	return max(0, min(100, q))
}

// Multipliers returns the per-facet budget multipliers for a quantity
// setting: quantity/100, with objective and novelty scaled by 1.5.
func Multipliers(quantity int) map[types.Facet]float64 {
	base := float64(quantity) / 100
	return map[types.Facet]float64{
		types.FacetObjective: base * 1.5,
		types.FacetNovelty:   base * 1.5,
		types.FacetMethod:    base,
		types.FacetResult:    base,
	}
}

// Init recomputes the highlight set from the corpus.
func (e *Engine) Init() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.init()
}

func (e *Engine) init() {
	e.allByID = make(map[string]types.FacetedHighlight, len(e.corpus.Highlights))
	e.bySection = map[string][]string{}

	byFacet := map[types.Facet][]types.FacetedHighlight{}
	for _, raw := range e.corpus.Highlights {
		key := types.SectionKey(raw.Section)
		if strings.EqualFold(key, abstractSection) {
			continue
		}
		h := types.FacetedHighlight{
			ID:      raw.ID,
			Text:    raw.Text,
			Section: raw.Section,
			Label:   raw.Label,
			Score:   raw.Score,
			Boxes:   raw.Boxes,
			Color:   e.colors[raw.Label],
		}
		if _, dup := e.allByID[h.ID]; !dup {
			e.bySection[key] = append(e.bySection[key], h.ID)
		}
		e.allByID[h.ID] = h
	}

	for _, id := range e.corpusOrder() {
		h := e.allByID[id]
		if h.Score >= e.threshold {
			byFacet[h.Label] = append(byFacet[h.Label], h)
		}
	}

	var result []types.FacetedHighlight
	for _, facet := range types.Facets {
		candidates := byFacet[facet]
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].Score != candidates[j].Score {
				return candidates[i].Score > candidates[j].Score
			}
			return candidates[i].ID < candidates[j].ID
		})
		keep := int(math.Round(e.multipliers[facet] * float64(len(candidates))))
		keep = max(0, min(keep, len(candidates)))
		result = append(result, candidates[:keep]...)
	}
	sortForDisplay(result)
	e.highlights = result

	if e.focusedID != "" && !e.isVisible(e.focusedID) {
		e.focusedID = ""
	}
	e.metrics.RecordHighlights(len(e.visible()))
	e.log.Debug().
		Int("corpus", len(e.allByID)).
		Int("computed", len(e.highlights)).
		Int("quantity", e.quantity).
		Msg("highlights recomputed")
}

// corpusOrder returns highlight ids in corpus order without duplicates.
func (e *Engine) corpusOrder() []string {
	seen := make(map[string]bool, len(e.allByID))
	out := make([]string, 0, len(e.allByID))
	for _, raw := range e.corpus.Highlights {
		if _, ok := e.allByID[raw.ID]; ok && !seen[raw.ID] {
			seen[raw.ID] = true
			out = append(out, raw.ID)
		}
	}
	return out
}

// sortForDisplay orders highlights by page, then top offset, then left
// offset, then id, using each highlight's first box. Highlights without
// boxes sort last.
func sortForDisplay(hs []types.FacetedHighlight) {
	sort.SliceStable(hs, func(i, j int) bool {
		a, aok := hs[i].FirstBox()
		b, bok := hs[j].FirstBox()
		if aok != bok {
			return aok
		}
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Top != b.Top {
			return a.Top < b.Top
		}
		if a.Left != b.Left {
			return a.Left < b.Left
		}
		return hs[i].ID < hs[j].ID
	})
}

// SetQuantity applies a new quantity setting: it recomputes multipliers,
// reselects any facet whose multiplier was zero, and recomputes highlights.
func (e *Engine) SetQuantity(value int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	value = clampQuantity(value)
	previous := e.multipliers
	e.quantity = value
	e.multipliers = Multipliers(value)
	for _, facet := range types.Facets {
		if previous[facet] == 0 && !slices.Contains(e.selected, facet) {
			e.selected = append(e.selected, facet)
		}
	}
	e.init()
}

// Quantity returns the current quantity setting.
func (e *Engine) Quantity() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quantity
}

// FacetMultipliers returns a copy of the current multipliers.
func (e *Engine) FacetMultipliers() map[types.Facet]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[types.Facet]float64, len(e.multipliers))
	for f, m := range e.multipliers {
		out[f] = m
	}
	return out
}

// Filter returns the highlights among hs whose facet is selected and that
// have not been hidden. It does not modify engine state.
func (e *Engine) Filter(hs []types.FacetedHighlight) []types.FacetedHighlight {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter(hs)
}

func (e *Engine) filter(hs []types.FacetedHighlight) []types.FacetedHighlight {
	out := make([]types.FacetedHighlight, 0, len(hs))
	for _, h := range hs {
		if slices.Contains(e.selected, h.Label) && !e.hidden[h.ID] {
			out = append(out, h)
		}
	}
	return out
}

// Computed returns the highlight set before facet and hidden filtering.
func (e *Engine) Computed() []types.FacetedHighlight {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.highlights)
}

// Visible returns the filtered highlights in display order.
func (e *Engine) Visible() []types.FacetedHighlight {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visible()
}

func (e *Engine) visible() []types.FacetedHighlight {
	return e.filter(e.highlights)
}

func (e *Engine) isVisible(id string) bool {
	for _, h := range e.visible() {
		if h.ID == id {
			return true
		}
	}
	return false
}

// Get returns a highlight from the full corpus index.
func (e *Engine) Get(id string) (types.FacetedHighlight, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.allByID[id]
	return h, ok
}

// SelectedFacets returns the selected facets.
func (e *Engine) SelectedFacets() []types.Facet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.selected)
}

// ToggleFacet selects facet if it is deselected and deselects it otherwise.
// It returns whether the facet is now selected.
func (e *Engine) ToggleFacet(facet types.Facet) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := slices.Index(e.selected, facet); i >= 0 {
		e.selected = slices.Delete(e.selected, i, i+1)
		if e.focusedID != "" && !e.isVisible(e.focusedID) {
			e.focusedID = ""
		}
		return false
	}
	e.selected = append(e.selected, facet)
	return true
}

// Hide removes h from the visible set. The corpus index keeps it.
func (e *Engine) Hide(h types.FacetedHighlight) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hidden[h.ID] = true
	if e.focusedID == h.ID {
		e.focusedID = ""
	}
}

// UnhideAll clears the hidden set.
func (e *Engine) UnhideAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hidden = map[string]bool{}
}

// SetColor recolors a facet and recomputes highlights.
func (e *Engine) SetColor(facet types.Facet, color string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.colors[facet] = color
	e.init()
}

// ShowAllForSection adds every highlight of section (by its last path
// segment) to the computed set when active. Deactivating recomputes the
// whole set, which also drops highlights added for other sections.
func (e *Engine) ShowAllForSection(section string, active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !active {
		e.init()
		return
	}

	present := make(map[string]bool, len(e.highlights))
	for _, h := range e.highlights {
		present[h.ID] = true
	}
	for _, id := range e.bySection[types.SectionKey(section)] {
		if !present[id] {
			present[id] = true
			e.highlights = append(e.highlights, e.allByID[id])
		}
	}
	sortForDisplay(e.highlights)
	e.metrics.RecordHighlights(len(e.visible()))
}

// Sections returns the section keys that have highlights, sorted.
func (e *Engine) Sections() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.bySection))
	for k := range e.bySection {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SectionGroup is the set of visible highlights under one section.
type SectionGroup struct {
	Section    string                   `json:"section" yaml:"section"`
	Highlights []types.FacetedHighlight `json:"highlights" yaml:"highlights"`
}

// BySection groups visible highlights by section key, sections in order of
// first appearance in display order.
func (e *Engine) BySection() []SectionGroup {
	e.mu.Lock()
	defer e.mu.Unlock()
	var groups []SectionGroup
	index := map[string]int{}
	for _, h := range e.visible() {
		key := types.SectionKey(h.Section)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, SectionGroup{Section: key})
		}
		groups[i].Highlights = append(groups[i].Highlights, h)
	}
	return groups
}

// Focused returns the focused highlight.
func (e *Engine) Focused() (types.FacetedHighlight, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.focusedID == "" {
		return types.FacetedHighlight{}, false
	}
	h, ok := e.allByID[e.focusedID]
	return h, ok
}

// Focus focuses the visible highlight id and navigates to it. It returns
// false when id is not visible or navigation fails.
func (e *Engine) Focus(id string) bool {
	e.mu.Lock()
	var target types.FacetedHighlight
	found := false
	for _, h := range e.visible() {
		if h.ID == id {
			target, found = h, true
			break
		}
	}
	if found {
		e.focusedID = id
	}
	e.mu.Unlock()

	if !found {
		return false
	}
	return e.navigate(target)
}

// Next focuses the visible highlight after the focused one, wrapping
// around, or the first one when nothing has focus.
func (e *Engine) Next() (types.FacetedHighlight, bool) {
	return e.step(1)
}

// Previous focuses the visible highlight before the focused one, wrapping
// around, or the last one when nothing has focus.
func (e *Engine) Previous() (types.FacetedHighlight, bool) {
	return e.step(-1)
}

func (e *Engine) step(delta int) (types.FacetedHighlight, bool) {
	e.mu.Lock()
	visible := e.visible()
	if len(visible) == 0 {
		e.mu.Unlock()
		return types.FacetedHighlight{}, false
	}
	current := slices.IndexFunc(visible, func(h types.FacetedHighlight) bool { return h.ID == e.focusedID })
	var next int
	switch {
	case current < 0 && delta > 0:
		next = 0
	case current < 0:
		next = len(visible) - 1
	default:
		next = ((current+delta)%len(visible) + len(visible)) % len(visible)
	}
	target := visible[next]
	e.focusedID = target.ID
	e.mu.Unlock()

	e.navigate(target)
	return target, true
}

func (e *Engine) navigate(h types.FacetedHighlight) bool {
	if e.nav == nil {
		return false
	}
	if err := e.nav.JumpToBoxes(h.Boxes); err != nil {
		e.log.Debug().Str("highlight_id", h.ID).Err(err).Msg("navigation to highlight failed")
		e.metrics.RecordNavigation(false)
		return false
	}
	e.metrics.RecordNavigation(true)
	return true
}
