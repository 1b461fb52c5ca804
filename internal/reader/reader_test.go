// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reader

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-reader/internal/api/apitest"
	"github.com/pdiddy/paper-reader/internal/find"
	"github.com/pdiddy/paper-reader/internal/highlights"
	"github.com/pdiddy/paper-reader/internal/metrics"
	"github.com/pdiddy/paper-reader/internal/textfind"
	"github.com/pdiddy/paper-reader/internal/viewer"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// --- test helpers ---

const paperID = "p1"

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func box(left, top, width, height float64, page int) types.BoundingBox {
	return types.BoundingBox{Left: left, Top: top, Width: width, Height: height, Page: page}
}

func symbol(id, tex string, boxes ...types.BoundingBox) types.Entity {
	return types.Entity{
		ID:         id,
		Type:       types.EntitySymbol,
		Attributes: types.Attributes{Tex: tex, BoundingBoxes: boxes},
	}
}

func term(id, name string, boxes ...types.BoundingBox) types.Entity {
	return types.Entity{
		ID:         id,
		Type:       types.EntityTerm,
		Attributes: types.Attributes{Name: name, BoundingBoxes: boxes},
	}
}

func sentence(id, text string) types.Entity {
	return types.Entity{
		ID:         id,
		Type:       types.EntitySentence,
		Attributes: types.Attributes{Text: text, BoundingBoxes: []types.BoundingBox{box(0.1, 0.1, 0.5, 0.02, 0)}},
	}
}

func citation(id, s2ID string) types.Entity {
	return types.Entity{ID: id, Type: types.EntityCitation, Attributes: types.Attributes{PaperID: s2ID}}
}

type harness struct {
	r       *Reader
	backend *apitest.MemBackend
	rec     *viewer.Recorder
	nav     *viewer.Navigator
}

func newHarness(t *testing.T, cfg types.ReaderConfig, entities ...types.Entity) harness {
	t.Helper()
	return newHarnessWith(t, cfg, nil, entities...)
}

func newHarnessWith(t *testing.T, cfg types.ReaderConfig, tweak func(*Options), entities ...types.Entity) harness {
	t.Helper()
	backend := apitest.NewMemBackend(paperID, entities...)
	rec := &viewer.Recorder{}
	nav := viewer.NewNavigator(rec)
	nav.HandleDocumentLoaded(viewer.DocumentLoaded{Fingerprint: "abc", PageCount: 3})
	for page := 1; page <= 3; page++ {
		nav.HandlePageRendered(viewer.PageRendered{
			PageNumber: page,
			Timestamp:  fixedNow,
			View:       viewer.PageView{Width: 612, Height: 792, Scale: 1},
		})
	}

	opts := Options{
		Paper:     types.PaperID{Type: "arxiv", ID: paperID},
		Backend:   backend,
		Navigator: nav,
		Config:    cfg,
		Metrics:   metrics.New(),
		Now:       func() time.Time { return fixedNow },
	}
	if tweak != nil {
		tweak(&opts)
	}
	r := New(opts)
	require.NoError(t, r.Load(context.Background()))
	return harness{r: r, backend: backend, rec: rec, nav: nav}
}

func sampleEntities() []types.Entity {
	return []types.Entity{
		symbol("s1", "$x$", box(0, 0, 10, 10, 0)),
		symbol("s2", "$y$", box(5, 5, 10, 10, 0)),
		symbol("s3", "$x$", box(0.2, 0.2, 0.1, 0.1, 1)),
		term("t1", "attention", box(0.3, 0.3, 0.1, 0.05, 0)),
		term("t2", "attention", box(0.3, 0.6, 0.1, 0.05, 2)),
		sentence("sen1", "Attention is computed per head."),
		symbol("s4", "x_i", box(0.5, 0.5, 0.1, 0.1, 2)),
	}
}

func defaultHarness(t *testing.T) harness {
	t.Helper()
	return newHarness(t, types.DefaultReaderConfig(), sampleEntities()...)
}

// --- loading ---

func TestLoad_PopulatesStoreInOrder(t *testing.T) {
	h := defaultHarness(t)
	snap := h.r.Snapshot()
	assert.True(t, snap.Loaded)
	assert.Equal(t, []string{"s1", "s2", "s3", "t1", "t2", "sen1", "s4"}, snap.Entities.IDs())
	assert.True(t, snap.Selection.IsEmpty())
	assert.False(t, snap.Find.Active())
}

func TestLoad_FetchesCitedPapers(t *testing.T) {
	backend := apitest.NewMemBackend(paperID, citation("c1", "S2A"), citation("c2", "S2A"), citation("c3", ""))
	backend.AddPaper(types.Paper{S2ID: "S2A", Title: "Attention Is All You Need"})
	r := New(Options{Paper: types.PaperID{Type: "arxiv", ID: paperID}, Backend: backend})

	require.NoError(t, r.Load(context.Background()))
	assert.Equal(t, "Attention Is All You Need", r.Papers()["S2A"].Title)
	assert.Equal(t, 1, backend.CallCount("GetPapers"))
}

func TestLoad_FailureLeavesStoreEmpty(t *testing.T) {
	backend := apitest.NewMemBackend(paperID, sampleEntities()...)
	backend.FailGet = true
	r := New(Options{Paper: types.PaperID{ID: paperID}, Backend: backend})

	err := r.Load(context.Background())
	require.Error(t, err)
	assert.False(t, r.Snapshot().Loaded)
	assert.Equal(t, 0, r.Snapshot().Entities.Len())
}

// gatedBackend blocks the first GetEntities call until released.
type gatedBackend struct {
	*apitest.MemBackend
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedBackend) GetEntities(ctx context.Context, paper string) ([]types.Entity, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
		return []types.Entity{symbol("stale", "z")}, nil
	}
	return g.MemBackend.GetEntities(ctx, paper)
}

func TestLoad_DiscardsStaleResult(t *testing.T) {
	g := &gatedBackend{
		MemBackend: apitest.NewMemBackend(paperID, sampleEntities()...),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	r := New(Options{Paper: types.PaperID{ID: paperID}, Backend: g})

	errs := make(chan error, 1)
	go func() { errs <- r.Load(context.Background()) }()
	<-g.entered

	require.NoError(t, r.Load(context.Background()))
	close(g.release)

	assert.ErrorIs(t, <-errs, ErrStaleLoad)
	assert.False(t, r.Snapshot().Entities.Has("stale"))
	assert.True(t, r.Snapshot().Entities.Has("s1"))
}

// --- selection ---

func TestSelectEntity(t *testing.T) {
	h := defaultHarness(t)
	assert.True(t, h.r.SelectEntity("sen1"))
	assert.Equal(t, []string{"sen1"}, h.r.Selection().EntityIDs)
	assert.False(t, h.r.Find().Active())

	assert.False(t, h.r.SelectEntity("missing"))
	assert.Equal(t, []string{"sen1"}, h.r.Selection().EntityIDs)
}

func TestSelectEntityAnnotation_UnknownIsNoop(t *testing.T) {
	h := defaultHarness(t)
	before := h.r.Snapshot().Version
	assert.False(t, h.r.SelectEntityAnnotation("missing", "a", "sp"))
	assert.Equal(t, before, h.r.Snapshot().Version)
}

func TestSelectEntityAnnotation_SymbolStartsSearch(t *testing.T) {
	h := defaultHarness(t)
	require.True(t, h.r.SelectEntityAnnotation("s3", "ann-s3", "span-s3"))

	f := h.r.Find()
	assert.Equal(t, find.ModeSymbol, f.Mode)
	assert.Equal(t, []string{"s1", "s3", "s4"}, f.MatchedEntities)
	assert.Equal(t, 1, f.MatchIndex)
	assert.Equal(t, 3, f.MatchCount)
	assert.Equal(t, fixedNow, f.ActivatedAt)
	assert.Equal(t, find.DefaultSymbolFilters, f.Query.SymbolFilters)

	sel := h.r.Selection()
	assert.Equal(t, []string{"s3"}, sel.EntityIDs)
	assert.Equal(t, []string{"ann-s3"}, sel.AnnotationIDs)
	assert.Equal(t, []string{"span-s3"}, sel.AnnotationSpanIDs)
}

func TestSelectEntityAnnotation_TermStartsSearch(t *testing.T) {
	h := defaultHarness(t)
	require.True(t, h.r.SelectEntityAnnotation("t2", "a", "sp"))

	f := h.r.Find()
	assert.Equal(t, find.ModeTerm, f.Mode)
	assert.Equal(t, []string{"t1", "t2"}, f.MatchedEntities)
	assert.Equal(t, 1, f.MatchIndex)
}

func TestSelectEntityAnnotation_OtherClearsJumpTarget(t *testing.T) {
	h := defaultHarness(t)
	require.True(t, h.r.JumpToEntity("s1"))
	assert.Equal(t, "s1", h.r.Snapshot().JumpTarget)

	require.True(t, h.r.SelectEntityAnnotation("sen1", "a", "sp"))
	assert.Empty(t, h.r.Snapshot().JumpTarget)
	assert.False(t, h.r.Find().Active())
}

func TestSelectEntityAnnotation_SingleSelectReplaces(t *testing.T) {
	h := defaultHarness(t)
	h.r.SetMultiselect(true)
	h.r.SelectEntityAnnotation("s1", "a1", "sp1")
	h.r.SelectEntityAnnotation("s2", "a2", "sp2")
	require.Len(t, h.r.Selection().EntityIDs, 2)

	h.r.SetMultiselect(false)
	h.r.SelectEntityAnnotation("t1", "a3", "sp3")
	sel := h.r.Selection()
	assert.Len(t, sel.EntityIDs, 1)
	assert.Len(t, sel.AnnotationIDs, 1)
	assert.Len(t, sel.AnnotationSpanIDs, 1)
}

func TestSelectEntityAnnotation_MultiselectSearchesAllSymbols(t *testing.T) {
	h := defaultHarness(t)
	h.r.SetMultiselect(true)
	h.r.SelectEntityAnnotation("s2", "a2", "sp2")
	h.r.SelectEntityAnnotation("s1", "a1", "sp1")
	h.r.SelectEntityAnnotation("s1", "a1", "sp1")

	assert.Equal(t, []string{"s2", "s1"}, h.r.Selection().EntityIDs)
	f := h.r.Find()
	assert.Equal(t, []string{"s1", "s2", "s3", "s4"}, f.MatchedEntities)
	assert.Equal(t, 0, f.MatchIndex)
}

func TestClearEntitySelection(t *testing.T) {
	h := defaultHarness(t)
	h.r.SelectEntityAnnotation("s1", "a", "sp")
	require.True(t, h.r.ClearEntitySelection())

	assert.True(t, h.r.Selection().IsEmpty())
	assert.False(t, h.r.Find().Active())
	assert.Empty(t, h.r.Snapshot().JumpTarget)
}

func TestClearEntitySelection_KeepsTextSearch(t *testing.T) {
	h := defaultHarness(t)
	h.r.SelectEntity("sen1")
	h.r.StartTextSearch()
	require.True(t, h.r.ClearEntitySelection())
	assert.Equal(t, find.ModeText, h.r.Find().Mode)
}

func TestClearEntitySelection_NoopWhenInteractionDisabled(t *testing.T) {
	h := defaultHarness(t)
	h.r.SelectEntityAnnotation("s1", "a", "sp")
	h.r.SetAnnotationInteraction(false)

	assert.False(t, h.r.ClearEntitySelection())
	assert.Equal(t, []string{"s1"}, h.r.Selection().EntityIDs)
	assert.Equal(t, find.ModeSymbol, h.r.Find().Mode)
}

// --- find ---

func TestStartTextSearch(t *testing.T) {
	h := defaultHarness(t)
	h.r.StartTextSearch()
	f := h.r.Find()
	assert.Equal(t, find.ModeText, f.Mode)
	assert.NotNil(t, f.MatchedEntities)
	assert.Equal(t, fixedNow, f.ActivatedAt)
}

func TestSetFindQuery_SymbolRecomputes(t *testing.T) {
	h := defaultHarness(t)
	h.r.SelectEntityAnnotation("s3", "a", "sp")

	require.True(t, h.r.SetFindQuery(find.Query{SymbolFilters: []find.SymbolFilter{find.FilterExactMatch}}))
	f := h.r.Find()
	assert.Equal(t, []string{"s1", "s3"}, f.MatchedEntities)
	assert.Equal(t, 1, f.MatchIndex)
	assert.Equal(t, 2, f.MatchCount)

	require.True(t, h.r.SetFindQuery(find.Query{SymbolFilters: []find.SymbolFilter{}}))
	f = h.r.Find()
	assert.Empty(t, f.MatchedEntities)
	assert.Equal(t, find.NoIndex, f.MatchIndex)
}

func TestSetFindQuery_TextStoresQueryOnly(t *testing.T) {
	h := defaultHarness(t)
	h.r.StartTextSearch()
	require.True(t, h.r.SetFindQuery(find.Query{Text: "attention"}))
	f := h.r.Find()
	assert.Equal(t, "attention", f.Query.Text)
	assert.Empty(t, f.MatchedEntities)
}

func TestSetFindQuery_HeadlessTextMatches(t *testing.T) {
	h := newHarnessWith(t, types.DefaultReaderConfig(), func(o *Options) {
		o.TextMatcher = textfind.Finder{}
	}, sampleEntities()...)
	h.r.StartTextSearch()
	require.True(t, h.r.SetFindQuery(find.Query{Text: "ATTENTION"}))

	f := h.r.Find()
	assert.Equal(t, []string{"sen1"}, f.MatchedEntities)
	assert.Equal(t, 0, f.MatchIndex)
	assert.Equal(t, 1, f.MatchCount)

	require.True(t, h.r.SetFindMatchIndex(0))
	assert.Len(t, h.rec.Calls(), 1)
	assert.False(t, h.r.SetFindMatchCount(5))
}

func TestSetFindMatchIndex_NavigatesExactlyOnce(t *testing.T) {
	h := defaultHarness(t)
	h.r.SelectEntityAnnotation("s1", "a", "sp")
	require.Empty(t, h.rec.Calls())

	require.True(t, h.r.SetFindMatchIndex(2))
	calls := h.rec.Calls()
	require.Len(t, calls, 1)
	// s4 lies on zero-based page 2.
	assert.Equal(t, 3, calls[0].PageNumber)
	assert.Equal(t, 2, h.r.Find().MatchIndex)
	assert.Equal(t, "s4", h.r.Snapshot().JumpTarget)
}

func TestSetFindMatchIndex_RejectsInvalid(t *testing.T) {
	h := defaultHarness(t)
	h.r.SelectEntityAnnotation("s1", "a", "sp")
	before := h.r.Find().MatchIndex

	assert.False(t, h.r.SetFindMatchIndex(10))
	assert.False(t, h.r.SetFindMatchIndex(-1))
	assert.Equal(t, before, h.r.Find().MatchIndex)
	assert.Empty(t, h.rec.Calls())
}

func TestSetFindMatchIndex_TextModeDoesNotNavigate(t *testing.T) {
	h := defaultHarness(t)
	h.r.StartTextSearch()
	require.True(t, h.r.SetFindMatchCount(4))
	require.True(t, h.r.SetFindMatchIndex(2))

	f := h.r.Find()
	assert.Equal(t, 2, f.MatchIndex)
	assert.Equal(t, 4, f.MatchCount)
	assert.Empty(t, h.rec.Calls())
}

func TestSetFindMatchIndex_InactiveRejected(t *testing.T) {
	h := defaultHarness(t)
	assert.False(t, h.r.SetFindMatchIndex(0))
}

func TestSetFindMatchCount_IgnoredInEntityModes(t *testing.T) {
	h := defaultHarness(t)
	h.r.SelectEntityAnnotation("s1", "a", "sp")
	assert.False(t, h.r.SetFindMatchCount(99))
	assert.Equal(t, 3, h.r.Find().MatchCount)
}

func TestCloseFindBar(t *testing.T) {
	h := defaultHarness(t)
	h.r.SelectEntityAnnotation("t1", "a", "sp")
	h.r.CloseFindBar()
	f := h.r.Find()
	assert.Equal(t, find.Inactive(), f)
	assert.Nil(t, f.Query)
}

// --- navigation ---

func TestJumpToEntity(t *testing.T) {
	h := defaultHarness(t)
	assert.True(t, h.r.JumpToEntity("t2"))
	require.Len(t, h.rec.Calls(), 1)
	assert.Equal(t, 3, h.rec.Calls()[0].PageNumber)

	assert.False(t, h.r.JumpToEntity("missing"))
}

func TestJumpToEntity_NoBoxes(t *testing.T) {
	h := newHarness(t, types.DefaultReaderConfig(), symbol("bare", "x"))
	assert.False(t, h.r.JumpToEntity("bare"))
	assert.Empty(t, h.r.Snapshot().JumpTarget)
}

func TestJumpToEntity_PageNotRendered(t *testing.T) {
	h := newHarness(t, types.DefaultReaderConfig(), symbol("far", "x", box(0.1, 0.1, 0.1, 0.1, 9)))
	assert.False(t, h.r.JumpToEntity("far"))
}

// --- subscriptions and settings ---

func TestSubscribe(t *testing.T) {
	h := defaultHarness(t)
	var got []Snapshot
	unsubscribe := h.r.Subscribe(func(s Snapshot) { got = append(got, s) })

	h.r.SelectEntity("s1")
	require.Len(t, got, 1)
	assert.Equal(t, []string{"s1"}, got[0].Selection.EntityIDs)

	unsubscribe()
	unsubscribe()
	h.r.SelectEntity("s2")
	assert.Len(t, got, 1)
}

func TestSnapshot_EncodesJSON(t *testing.T) {
	h := defaultHarness(t)
	h.r.SelectEntity("s1")
	data, err := json.Marshal(h.r.Snapshot())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	entities := decoded["entities"].(map[string]any)
	assert.Len(t, entities["all"], 7)
	assert.Equal(t, []any{"s1"}, decoded["selection"].(map[string]any)["selectedEntityIds"])
}

func TestToggleEntityEditing_OpensDrawer(t *testing.T) {
	h := defaultHarness(t)
	h.r.ToggleEntityEditing()
	snap := h.r.Snapshot()
	assert.Equal(t, DrawerOpen, snap.UI.Drawer)
	assert.True(t, snap.Capabilities.EditEntities)

	h.r.ToggleEntityEditing()
	snap = h.r.Snapshot()
	assert.Equal(t, DrawerOpen, snap.UI.Drawer)
	assert.False(t, snap.Capabilities.EditEntities)

	h.r.CloseDrawer()
	assert.Equal(t, DrawerClosed, h.r.Snapshot().UI.Drawer)
}

func TestCapabilities(t *testing.T) {
	h := defaultHarness(t)
	c := h.r.Capabilities()
	assert.True(t, c.ShowAnnotations)
	assert.True(t, c.SelectAnnotations)
	assert.False(t, c.ShowHighlights, "no engine configured")

	h.r.HideAnnotations()
	h.r.ToggleCopySentenceOnClick()
	c = h.r.Capabilities()
	assert.False(t, c.SelectAnnotations)
	assert.False(t, c.CopySentence)

	h.r.ShowAnnotations()
	assert.True(t, h.r.Capabilities().CopySentence)
}

func TestCreationSettings(t *testing.T) {
	h := defaultHarness(t)
	h.r.ToggleEntityCreation()
	h.r.SetEntityCreationType(types.EntitySymbol)
	h.r.SetAreaSelectionMethod(SelectByRectangle)
	snap := h.r.Snapshot()
	assert.True(t, snap.Capabilities.CreateEntities)
	assert.Equal(t, types.EntitySymbol, snap.UI.CreationType)
	assert.Equal(t, SelectByRectangle, snap.UI.AreaSelectionMethod)
}

func TestSnackbar(t *testing.T) {
	h := defaultHarness(t)
	h.r.ShowSnackbar("Copied.")
	sb := h.r.Snapshot().UI.Snackbar
	assert.True(t, sb.Open)
	assert.Equal(t, "Copied.", sb.Message)
	assert.Equal(t, fixedNow, sb.ActivatedAt)

	h.r.CloseSnackbar()
	assert.Equal(t, Snackbar{}, h.r.Snapshot().UI.Snackbar)
}

// --- highlights ---

func highlightCorpus() types.HighlightCorpus {
	return types.HighlightCorpus{Highlights: []types.RawHighlight{
		{ID: "h1", Section: "Intro", Label: types.FacetMethod, Score: 0.95, Boxes: []types.BoundingBox{box(0.1, 0.5, 0.2, 0.02, 0)}},
		{ID: "h2", Section: "Intro", Label: types.FacetMethod, Score: 0.99, Boxes: []types.BoundingBox{box(0.1, 0.2, 0.2, 0.02, 1)}},
		{ID: "h3", Section: "Results", Label: types.FacetResult, Score: 0.97, Boxes: []types.BoundingBox{box(0.1, 0.1, 0.2, 0.02, 0)}},
	}}
}

func TestHighlights_NavigationAndSnapshot(t *testing.T) {
	var engine *highlights.Engine
	h := newHarnessWith(t, types.DefaultReaderConfig(), func(o *Options) {
		engine = highlights.New(highlightCorpus(), types.HighlightConfig{Quantity: 100}, highlights.WithNavigator(o.Navigator.(*viewer.Navigator)))
		o.Highlights = engine
	}, sampleEntities()...)

	snap := h.r.Snapshot()
	require.True(t, snap.Capabilities.ShowHighlights)
	assert.Len(t, snap.Highlights, 3)

	hl, ok := h.r.NextHighlight()
	require.True(t, ok)
	assert.Equal(t, "h3", hl.ID)
	snap = h.r.Snapshot()
	assert.Equal(t, "h3", snap.JumpTarget)
	assert.Equal(t, "h3", snap.FocusedHighlight)
	assert.Len(t, h.rec.Calls(), 1)

	require.True(t, h.r.HideHighlight("h1"))
	assert.Len(t, h.r.Snapshot().Highlights, 2)
	require.True(t, h.r.UnhideAllHighlights())
	assert.Len(t, h.r.Snapshot().Highlights, 3)

	require.True(t, h.r.ToggleFacet(types.FacetResult))
	assert.Len(t, h.r.Snapshot().Highlights, 2)

	require.True(t, h.r.SelectHighlight("h2"))
	assert.Equal(t, "h2", h.r.Snapshot().JumpTarget)
	assert.False(t, h.r.SelectHighlight("h3"), "facet deselected")

	require.True(t, h.r.SetHighlightQuantity(0))
	assert.Empty(t, h.r.Snapshot().Highlights)
	require.True(t, h.r.ShowAllHighlightsForSection("Intro", true))
	assert.Len(t, h.r.Snapshot().Highlights, 2)
	require.True(t, h.r.SetFacetColor(types.FacetMethod, "#000"))
}

func TestHighlights_WithoutEngine(t *testing.T) {
	h := defaultHarness(t)
	_, ok := h.r.NextHighlight()
	assert.False(t, ok)
	assert.False(t, h.r.SetHighlightQuantity(10))
	assert.False(t, h.r.HideHighlight("h1"))
}
