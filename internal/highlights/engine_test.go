// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package highlights

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-reader/pkg/types"
)

// --- test helpers ---

type fakeNav struct {
	jumps [][]types.BoundingBox
	err   error
}

func (f *fakeNav) JumpToBoxes(boxes []types.BoundingBox) error {
	if f.err != nil {
		return f.err
	}
	f.jumps = append(f.jumps, boxes)
	return nil
}

func raw(id string, label types.Facet, score float64, section string, page int, top, left float64) types.RawHighlight {
	return types.RawHighlight{
		ID:      id,
		Text:    "sentence " + id,
		Section: section,
		Label:   label,
		Score:   score,
		Boxes:   []types.BoundingBox{{Left: left, Top: top, Width: 0.1, Height: 0.01, Page: page}},
	}
}

func sampleCorpus() types.HighlightCorpus {
	return types.HighlightCorpus{
		Highlights: []types.RawHighlight{
			raw("a1", types.FacetObjective, 0.999, "Abstract", 0, 0.05, 0.1),
			raw("o1", types.FacetObjective, 0.99, "Intro @@ Motivation", 2, 0.1, 0.1),
			raw("o2", types.FacetObjective, 0.98, "Intro", 0, 0.5, 0.1),
			raw("o3", types.FacetObjective, 0.95, "Intro", 0, 0.2, 0.5),
			raw("o4", types.FacetObjective, 0.91, "Experiments @@ Results", 1, 0.6, 0.1),
			raw("o5", types.FacetObjective, 0.5, "Results", 3, 0.5, 0.1),
			raw("m1", types.FacetMethod, 0.97, "Method", 1, 0.3, 0.1),
			raw("m2", types.FacetMethod, 0.93, "Method", 1, 0.9, 0.1),
			raw("n1", types.FacetNovelty, 0.96, "Intro", 0, 0.2, 0.1),
			raw("r1", types.FacetResult, 0.92, "Results", 3, 0.1, 0.1),
			raw("r2", types.FacetResult, 0.94, "Results", 2, 0.05, 0.1),
		},
	}
}

func ids(hs []types.FacetedHighlight) []string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		out = append(out, h.ID)
	}
	return out
}

func newEngine(t *testing.T, nav Navigator) *Engine {
	t.Helper()
	opts := []Option{}
	if nav != nil {
		opts = append(opts, WithNavigator(nav))
	}
	return New(sampleCorpus(), types.DefaultHighlightConfig(), opts...)
}

// --- Init ---

func TestInit_SelectsTopPerFacetAndSorts(t *testing.T) {
	e := newEngine(t, nil)
	// objective: round(0.75*4)=3, novelty: round(0.75)=1,
	// method: round(0.5*2)=1, result: round(0.5*2)=1.
	assert.Equal(t, []string{"n1", "o3", "o2", "m1", "r2", "o1"}, ids(e.Computed()))
	assert.Equal(t, ids(e.Computed()), ids(e.Visible()))
}

func TestInit_ExcludesAbstract(t *testing.T) {
	e := newEngine(t, nil)
	_, ok := e.Get("a1")
	assert.False(t, ok)
	assert.NotContains(t, e.Sections(), "Abstract")
}

func TestInit_AssignsFacetColors(t *testing.T) {
	e := newEngine(t, nil)
	h, ok := e.Get("m1")
	require.True(t, ok)
	assert.Equal(t, types.DefaultHighlightConfig().Colors[types.FacetMethod], h.Color)
}

func TestInit_AboveThresholdOnly(t *testing.T) {
	e := newEngine(t, nil)
	e.SetQuantity(100)
	for _, h := range e.Computed() {
		assert.GreaterOrEqual(t, h.Score, 0.9, h.ID)
	}
	// objective multiplier 1.5 is capped at the candidate count.
	assert.ElementsMatch(t, []string{"o1", "o2", "o3", "o4", "n1", "m1", "m2", "r1", "r2"}, ids(e.Computed()))
}

func TestInit_EmptyCorpus(t *testing.T) {
	e := New(types.HighlightCorpus{}, types.DefaultHighlightConfig())
	assert.Empty(t, e.Visible())
	_, ok := e.Next()
	assert.False(t, ok)
}

// --- quantity ---

func TestMultipliers(t *testing.T) {
	m := Multipliers(50)
	assert.InDelta(t, 0.75, m[types.FacetObjective], 1e-9)
	assert.InDelta(t, 0.75, m[types.FacetNovelty], 1e-9)
	assert.InDelta(t, 0.5, m[types.FacetMethod], 1e-9)
	assert.InDelta(t, 0.5, m[types.FacetResult], 1e-9)
}

func TestSetQuantity_ZeroEmptiesComputed(t *testing.T) {
	e := newEngine(t, nil)
	e.SetQuantity(0)
	assert.Empty(t, e.Computed())
	assert.Equal(t, 0, e.Quantity())
}

func TestSetQuantity_ReselectsFacetsFromZero(t *testing.T) {
	e := newEngine(t, nil)
	assert.False(t, e.ToggleFacet(types.FacetMethod))
	e.SetQuantity(0)
	assert.NotContains(t, e.SelectedFacets(), types.FacetMethod)

	e.SetQuantity(50)
	assert.Contains(t, e.SelectedFacets(), types.FacetMethod)
	assert.Contains(t, ids(e.Visible()), "m1")
}

func TestSetQuantity_ZeroThenFullRestoresMultipliers(t *testing.T) {
	e := newEngine(t, nil)
	e.SetQuantity(100)
	full := ids(e.Computed())

	e.SetQuantity(0)
	for _, m := range e.FacetMultipliers() {
		assert.Zero(t, m)
	}

	e.SetQuantity(100)
	assert.Equal(t, Multipliers(100), e.FacetMultipliers())
	assert.InDelta(t, 1.5, e.FacetMultipliers()[types.FacetObjective], 1e-9)
	assert.InDelta(t, 1.5, e.FacetMultipliers()[types.FacetNovelty], 1e-9)
	assert.InDelta(t, 1.0, e.FacetMultipliers()[types.FacetMethod], 1e-9)
	assert.InDelta(t, 1.0, e.FacetMultipliers()[types.FacetResult], 1e-9)
	assert.ElementsMatch(t, types.Facets, e.SelectedFacets())
	assert.Equal(t, full, ids(e.Computed()))
}

func TestSetQuantity_Clamps(t *testing.T) {
	e := newEngine(t, nil)
	e.SetQuantity(250)
	assert.Equal(t, 100, e.Quantity())
	e.SetQuantity(-4)
	assert.Equal(t, 0, e.Quantity())
}

// --- filtering ---

func TestFilter_IsPure(t *testing.T) {
	e := newEngine(t, nil)
	e.ToggleFacet(types.FacetObjective)
	computed := e.Computed()

	first := e.Filter(computed)
	second := e.Filter(computed)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"n1", "m1", "r2"}, ids(first))
	assert.Len(t, e.Computed(), 6)
}

func TestToggleFacet(t *testing.T) {
	e := newEngine(t, nil)
	assert.False(t, e.ToggleFacet(types.FacetMethod))
	assert.NotContains(t, ids(e.Visible()), "m1")
	assert.Contains(t, ids(e.Computed()), "m1")
	assert.True(t, e.ToggleFacet(types.FacetMethod))
	assert.Contains(t, ids(e.Visible()), "m1")
}

func TestHide_SurvivesRecomputeUntilUnhide(t *testing.T) {
	e := newEngine(t, nil)
	h, _ := e.Get("o3")
	e.Hide(h)
	assert.NotContains(t, ids(e.Visible()), "o3")
	assert.Contains(t, ids(e.Computed()), "o3")

	e.Init()
	assert.NotContains(t, ids(e.Visible()), "o3")

	e.UnhideAll()
	assert.Contains(t, ids(e.Visible()), "o3")
}

func TestSetColor(t *testing.T) {
	e := newEngine(t, nil)
	e.SetColor(types.FacetMethod, "red")
	for _, h := range e.Computed() {
		if h.Label == types.FacetMethod {
			assert.Equal(t, "red", h.Color)
		}
	}
}

// --- sections ---

func TestShowAllForSection_AddsWithoutDuplicates(t *testing.T) {
	e := newEngine(t, nil)
	e.ShowAllForSection("Results", true)

	got := ids(e.Computed())
	for _, id := range []string{"o4", "o5", "r1", "r2"} {
		assert.Contains(t, got, id)
	}
	seen := map[string]bool{}
	for _, id := range got {
		assert.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
	}
	assert.Equal(t, []string{"n1", "o3", "o2", "m1", "o4", "r2", "o1", "r1", "o5"}, got)

	e.ShowAllForSection("Results", true)
	assert.Equal(t, got, ids(e.Computed()))
}

func TestShowAllForSection_DeactivateRecomputes(t *testing.T) {
	e := newEngine(t, nil)
	before := ids(e.Computed())
	e.ShowAllForSection("Results", true)
	e.ShowAllForSection("Method", true)
	e.ShowAllForSection("Results", false)
	assert.Equal(t, before, ids(e.Computed()))
}

func TestBySection(t *testing.T) {
	e := newEngine(t, nil)
	groups := e.BySection()
	require.NotEmpty(t, groups)
	assert.Equal(t, "Intro", groups[0].Section)
	assert.Equal(t, []string{"n1", "o3", "o2"}, ids(groups[0].Highlights))
}

// --- navigation ---

func TestNextPrevious_Wraps(t *testing.T) {
	nav := &fakeNav{}
	e := newEngine(t, nav)

	h, ok := e.Next()
	require.True(t, ok)
	assert.Equal(t, "n1", h.ID)
	h, _ = e.Next()
	assert.Equal(t, "o3", h.ID)
	h, _ = e.Previous()
	assert.Equal(t, "n1", h.ID)
	h, _ = e.Previous()
	assert.Equal(t, "o1", h.ID)
	h, _ = e.Next()
	assert.Equal(t, "n1", h.ID)

	assert.Len(t, nav.jumps, 5)
	focused, ok := e.Focused()
	require.True(t, ok)
	assert.Equal(t, "n1", focused.ID)
}

func TestPrevious_FromNothingIsLast(t *testing.T) {
	e := newEngine(t, &fakeNav{})
	h, ok := e.Previous()
	require.True(t, ok)
	assert.Equal(t, "o1", h.ID)
}

func TestFocus(t *testing.T) {
	nav := &fakeNav{}
	e := newEngine(t, nav)
	assert.True(t, e.Focus("m1"))
	h, _ := e.Next()
	assert.Equal(t, "r2", h.ID)

	assert.False(t, e.Focus("m2"), "not visible")
}

func TestFocus_NavigationFailure(t *testing.T) {
	e := newEngine(t, &fakeNav{err: errors.New("no viewer")})
	assert.False(t, e.Focus("m1"))
	focused, ok := e.Focused()
	require.True(t, ok)
	assert.Equal(t, "m1", focused.ID)
}

func TestHide_ClearsFocus(t *testing.T) {
	e := newEngine(t, &fakeNav{})
	h, _ := e.Next()
	e.Hide(h)
	_, ok := e.Focused()
	assert.False(t, ok)
	next, _ := e.Next()
	assert.Equal(t, "o3", next.ID)
}

// --- corpus files ---

func TestLoadCorpus_JSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "corpus.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"p1":{"sections":[],"highlights":[
		{"id":"h1","text":"t","section":"Intro","label":"method","score":0.95,
		 "boxes":[{"left":0.1,"top":0.2,"width":0.3,"height":0.05,"page":0}]}]}}`), 0o644))

	c, err := LoadCorpus(jsonPath, "p1")
	require.NoError(t, err)
	require.Len(t, c.Highlights, 1)
	assert.Equal(t, types.FacetMethod, c.Highlights[0].Label)
	assert.InDelta(t, 0.2, c.Highlights[0].Boxes[0].Top, 1e-9)

	yamlPath := filepath.Join(dir, "corpus.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`p2:
  highlights:
    - id: h2
      section: Results
      label: result
      score: 0.99
      boxes:
        - {left: 0.1, top: 0.4, width: 0.2, height: 0.05, page: 3}
`), 0o644))
	c, err = LoadCorpus(yamlPath, "p2")
	require.NoError(t, err)
	require.Len(t, c.Highlights, 1)
	assert.Equal(t, 3, c.Highlights[0].Boxes[0].Page)

	_, err = LoadCorpus(yamlPath, "missing")
	assert.ErrorIs(t, err, ErrNoCorpus)
}

func TestMergeDirectory(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("p1.json", `[{"text":"a","section":"Intro"},{"text":"b","section":""}]`)
	write("p2.json", `[{"text":"c","section":"Method"}]`)
	write("p3.json", `[{"text":"d","section":"Method"}]`)
	write("notes.txt", `ignored`)

	res, err := MergeDirectory(dir, MergeOptions{Papers: []string{"p1", "p2"}, DropEmptySections: true}, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Papers)
	assert.Equal(t, 2, res.Entries)
	assert.Equal(t, 13, res.NextID)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"p1":[{"id":"10","text":"a","section":"Intro"}],"p2":[{"id":"12","text":"c","section":"Method"}]}`, string(data))

	// A second run skips its own output file.
	res, err = MergeDirectory(dir, MergeOptions{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Papers)
}
