// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reader is the root controller of a paper reading session. It owns
// the entity store, selection, find state, and UI toggles, and exposes one
// method per reader operation. Every state change goes through a single
// transition step that stores the new state, runs the side effects the
// transition requested (viewport navigation), and publishes a Snapshot to
// subscribers.
//
// Network calls to the backend are made outside the controller's lock.
// Their results are applied in a later transition, so a mutation that
// completes after a newer load is applied to whatever store is current.
package reader

import (
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/pdiddy/paper-reader/internal/api"
	"github.com/pdiddy/paper-reader/internal/entitystore"
	"github.com/pdiddy/paper-reader/internal/find"
	"github.com/pdiddy/paper-reader/internal/highlights"
	"github.com/pdiddy/paper-reader/internal/logger"
	"github.com/pdiddy/paper-reader/internal/metrics"
	"github.com/pdiddy/paper-reader/internal/selection"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// ErrStaleLoad is returned by Load when a newer Load started before it
// finished. The stale result is discarded.
var ErrStaleLoad = errors.New("load superseded by a newer load")

// Navigator scrolls the viewport to a bounding box.
type Navigator interface {
	JumpToBox(box types.BoundingBox) error
}

// TextMatcher finds sentences containing a free-text query. It stands in
// for the viewer's built-in find when no viewer is attached.
type TextMatcher interface {
	MatchSentences(store entitystore.Store, query string) []string
}

// Options configures a Reader.
type Options struct {
	Paper       types.PaperID
	Backend     api.Backend
	Navigator   Navigator
	Highlights  *highlights.Engine
	TextMatcher TextMatcher
	Config      types.ReaderConfig
	Log         *logger.Logger
	Metrics     *metrics.Metrics

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// DrawerMode is the state of the side drawer.
type DrawerMode string

const (
	DrawerClosed DrawerMode = "closed"
	DrawerOpen   DrawerMode = "open"
)

// AreaSelectionMethod is how a new entity's region is chosen.
type AreaSelectionMethod string

const (
	SelectByText      AreaSelectionMethod = "text-selection"
	SelectByRectangle AreaSelectionMethod = "rectangular-selection"
)

// Snackbar is a transient notification.
type Snackbar struct {
	Open        bool      `json:"open" yaml:"open"`
	Message     string    `json:"message,omitempty" yaml:"message,omitempty"`
	ActivatedAt time.Time `json:"activatedAt" yaml:"activated_at"`
}

// UIState holds the session's toggles and transient UI.
type UIState struct {
	Settings            types.ReaderConfig  `json:"settings" yaml:"settings"`
	CreationType        types.EntityType    `json:"entityCreationType" yaml:"entity_creation_type"`
	AreaSelectionMethod AreaSelectionMethod `json:"areaSelectionMethod" yaml:"area_selection_method"`
	Drawer              DrawerMode          `json:"drawerMode" yaml:"drawer_mode"`
	Snackbar            Snackbar            `json:"snackbar" yaml:"snackbar"`
}

// Capabilities are the derived flags the rendering layer consults. They
// are computed once per transition from the settings.
type Capabilities struct {
	ShowAnnotations   bool `json:"showAnnotations" yaml:"show_annotations"`
	SelectAnnotations bool `json:"selectAnnotations" yaml:"select_annotations"`
	CreateEntities    bool `json:"createEntities" yaml:"create_entities"`
	EditEntities      bool `json:"editEntities" yaml:"edit_entities"`
	ShowHighlights    bool `json:"showHighlights" yaml:"show_highlights"`
	CopySentence      bool `json:"copySentence" yaml:"copy_sentence"`
	Multiselect       bool `json:"multiselect" yaml:"multiselect"`
}

func deriveCapabilities(cfg types.ReaderConfig, hasHighlights bool) Capabilities {
	return Capabilities{
		ShowAnnotations:   cfg.AnnotationsShowing,
		SelectAnnotations: cfg.AnnotationsShowing && cfg.AnnotationInteraction,
		CreateEntities:    cfg.EntityCreation,
		EditEntities:      cfg.EntityEditing,
		ShowHighlights:    cfg.FacetedHighlights && hasHighlights,
		CopySentence:      cfg.CopySentenceOnClick && cfg.AnnotationsShowing,
		Multiselect:       cfg.Multiselect,
	}
}

// state is everything a transition may change.
type state struct {
	entities   entitystore.Store
	loaded     bool
	papers     map[string]types.Paper
	selection  selection.State
	find       find.State
	jumpTarget string
	ui         UIState
}

// Snapshot is a read-only view of the reader after a transition.
type Snapshot struct {
	Version          uint64                   `json:"version" yaml:"version"`
	Paper            types.PaperID            `json:"paper" yaml:"paper"`
	Loaded           bool                     `json:"loaded" yaml:"loaded"`
	Entities         entitystore.Store        `json:"entities" yaml:"-"`
	Papers           map[string]types.Paper   `json:"papers" yaml:"papers"`
	Selection        selection.State          `json:"selection" yaml:"selection"`
	Find             find.State               `json:"find" yaml:"find"`
	JumpTarget       string                   `json:"jumpTarget,omitempty" yaml:"jump_target,omitempty"`
	UI               UIState                  `json:"ui" yaml:"ui"`
	Capabilities     Capabilities             `json:"capabilities" yaml:"capabilities"`
	Highlights       []types.FacetedHighlight `json:"highlights" yaml:"highlights"`
	FocusedHighlight string                   `json:"focusedHighlight,omitempty" yaml:"focused_highlight,omitempty"`
}

// Reader is a paper reading session. It is safe for concurrent use.
type Reader struct {
	paper       types.PaperID
	backend     api.Backend
	nav         Navigator
	engine      *highlights.Engine
	textMatcher TextMatcher
	log         *logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time

	mu          sync.Mutex
	st          state
	version     uint64
	generation  uint64
	subscribers map[int]func(Snapshot)
	nextSubID   int
}

// New creates a reader with an empty store. Call Load to fetch entities.
func New(opts Options) *Reader {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := logger.OrNop(opts.Log).Component("reader").With("paper", opts.Paper.String())
	return &Reader{
		paper:       opts.Paper,
		backend:     opts.Backend,
		nav:         opts.Navigator,
		engine:      opts.Highlights,
		textMatcher: opts.TextMatcher,
		log:         log,
		metrics:     opts.Metrics,
		now:         now,
		st: state{
			entities:  entitystore.New(),
			papers:    map[string]types.Paper{},
			selection: selection.Empty(),
			find:      find.Inactive(),
			ui: UIState{
				Settings:            opts.Config,
				CreationType:        types.EntityTerm,
				AreaSelectionMethod: SelectByText,
				Drawer:              DrawerClosed,
			},
		},
		subscribers: map[int]func(Snapshot){},
	}
}

// Paper returns the paper the session reads.
func (r *Reader) Paper() types.PaperID { return r.paper }

// Highlights returns the highlight engine, or nil when none is configured.
func (r *Reader) Highlights() *highlights.Engine { return r.engine }

// effects collects the side effects a transition requests. They run after
// the new state is stored and the lock is released.
type effects struct {
	fns []func()
}

func (fx *effects) add(fn func()) { fx.fns = append(fx.fns, fn) }

// navigate requests a jump to an entity's first box.
func (fx *effects) navigate(r *Reader, e types.Entity) {
	fx.add(func() { r.jumpTo(e) })
}

// transition applies fn to a copy of the state. When fn reports a change
// the copy replaces the state, requested effects run, and subscribers
// receive the new snapshot.
func (r *Reader) transition(fn func(s *state, fx *effects) bool) bool {
	r.mu.Lock()
	next := r.st
	var fx effects
	if !fn(&next, &fx) {
		r.mu.Unlock()
		return false
	}
	r.st = next
	r.version++
	snap := r.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(r.subscribers))
	for _, id := range slices.Sorted(maps.Keys(r.subscribers)) {
		subs = append(subs, r.subscribers[id])
	}
	r.mu.Unlock()

	for _, f := range fx.fns {
		f()
	}
	for _, sub := range subs {
		sub(snap)
	}
	return true
}

// touch publishes a snapshot after state held outside the controller (the
// highlight engine) changed.
func (r *Reader) touch() {
	r.transition(func(*state, *effects) bool { return true })
}

// read runs fn on the current state under the lock.
func (r *Reader) read(fn func(s state)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.st)
}

// Snapshot returns the current state.
func (r *Reader) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Reader) snapshotLocked() Snapshot {
	snap := Snapshot{
		Version:      r.version,
		Paper:        r.paper,
		Loaded:       r.st.loaded,
		Entities:     r.st.entities,
		Papers:       maps.Clone(r.st.papers),
		Selection:    r.st.selection.Clone(),
		Find:         r.st.find,
		JumpTarget:   r.st.jumpTarget,
		UI:           r.st.ui,
		Capabilities: deriveCapabilities(r.st.ui.Settings, r.engine != nil),
		Highlights:   []types.FacetedHighlight{},
	}
	if r.engine != nil && snap.Capabilities.ShowHighlights {
		snap.Highlights = r.engine.Visible()
		if h, ok := r.engine.Focused(); ok {
			snap.FocusedHighlight = h.ID
		}
	}
	return snap
}

// Subscribe registers fn to receive a snapshot after every transition.
// Subscribers are called in registration order, outside the lock.
func (r *Reader) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.subscribers[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subscribers, id)
			r.mu.Unlock()
		})
	}
}

// Entity returns an entity from the current store.
func (r *Reader) Entity(id string) (types.Entity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.entities.Get(id)
}

// Papers returns cited-paper metadata keyed by Semantic Scholar id.
func (r *Reader) Papers() map[string]types.Paper {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.st.papers)
}
