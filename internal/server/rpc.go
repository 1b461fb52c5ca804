// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pdiddy/paper-reader/internal/find"
	"github.com/pdiddy/paper-reader/internal/reader"
	"github.com/pdiddy/paper-reader/internal/viewer"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

type rpcRequest struct {
	ID     any             `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     any       `json:"id"`
	Result any       `json:"result,omitempty"`
	Error  *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return e.Message }

func invalidParams(format string, args ...any) error {
	return &rpcError{Code: codeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

// okResult is the result of operations that report success as a boolean.
type okResult struct {
	OK bool `json:"ok"`
}

type rpcHandler func(ctx context.Context, s *session, params json.RawMessage) (any, error)

// withParams decodes params into P before calling fn. Absent params decode
// as the zero value.
func withParams[P any](fn func(ctx context.Context, s *session, p P) (any, error)) rpcHandler {
	return func(ctx context.Context, s *session, raw json.RawMessage) (any, error) {
		var p P
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, invalidParams("decoding params: %v", err)
			}
		}
		return fn(ctx, s, p)
	}
}

// action wraps a reader operation that takes no params and reports nothing.
func action(fn func(r *reader.Reader)) rpcHandler {
	return func(_ context.Context, s *session, _ json.RawMessage) (any, error) {
		fn(s.reader)
		return okResult{OK: true}, nil
	}
}

// check wraps a reader operation that takes no params and reports success.
func check(fn func(r *reader.Reader) bool) rpcHandler {
	return func(_ context.Context, s *session, _ json.RawMessage) (any, error) {
		return okResult{OK: fn(s.reader)}, nil
	}
}

type idParams struct {
	ID string `json:"id"`
}

type enabledParams struct {
	Enabled bool `json:"enabled"`
}

type annotationParams struct {
	EntityID     string `json:"entityId"`
	AnnotationID string `json:"annotationId"`
	SpanID       string `json:"spanId"`
}

type indexParams struct {
	Index int `json:"index"`
}

type countParams struct {
	Count int `json:"count"`
}

type childrenParams struct {
	Children []string `json:"children"`
}

type updateParams struct {
	ID        string                 `json:"id"`
	Data      types.EntityUpdateData `json:"data"`
	Propagate *bool                  `json:"propagate,omitempty"`
}

type updateResult struct {
	OK bool `json:"ok"`
	reader.UpdateResult
}

type createResult struct {
	OK bool   `json:"ok"`
	ID string `json:"id,omitempty"`
}

type facetParams struct {
	Facet types.Facet `json:"facet"`
	Color string      `json:"color,omitempty"`
}

type quantityParams struct {
	Value int `json:"value"`
}

type sectionParams struct {
	Section string `json:"section"`
	Active  bool   `json:"active"`
}

type highlightResult struct {
	OK        bool                    `json:"ok"`
	Highlight *types.FacetedHighlight `json:"highlight,omitempty"`
}

func stepResult(h types.FacetedHighlight, ok bool) (any, error) {
	if !ok {
		return highlightResult{}, nil
	}
	return highlightResult{OK: true, Highlight: &h}, nil
}

func (s *session) entity(id string) (types.Entity, error) {
	e, ok := s.reader.Entity(id)
	if !ok {
		return types.Entity{}, invalidParams("unknown entity %q", id)
	}
	return e, nil
}

var methods = map[string]rpcHandler{
	// Session.
	"load": func(ctx context.Context, s *session, _ json.RawMessage) (any, error) {
		err := s.reader.Load(ctx)
		if errors.Is(err, reader.ErrStaleLoad) {
			return okResult{OK: false}, nil
		}
		if err != nil {
			return nil, err
		}
		return okResult{OK: true}, nil
	},
	"snapshot": func(_ context.Context, s *session, _ json.RawMessage) (any, error) {
		return s.reader.Snapshot(), nil
	},
	"capabilities": func(_ context.Context, s *session, _ json.RawMessage) (any, error) {
		return s.reader.Capabilities(), nil
	},

	// Selection.
	"selectEntity": withParams(func(_ context.Context, s *session, p idParams) (any, error) {
		return okResult{OK: s.reader.SelectEntity(p.ID)}, nil
	}),
	"selectEntityAnnotation": withParams(func(_ context.Context, s *session, p annotationParams) (any, error) {
		return okResult{OK: s.reader.SelectEntityAnnotation(p.EntityID, p.AnnotationID, p.SpanID)}, nil
	}),
	"clearEntitySelection": check((*reader.Reader).ClearEntitySelection),

	// Find.
	"startTextSearch": action((*reader.Reader).StartTextSearch),
	"setFindQuery": withParams(func(_ context.Context, s *session, q find.Query) (any, error) {
		return okResult{OK: s.reader.SetFindQuery(q)}, nil
	}),
	"setFindMatchIndex": withParams(func(_ context.Context, s *session, p indexParams) (any, error) {
		return okResult{OK: s.reader.SetFindMatchIndex(p.Index)}, nil
	}),
	"setFindMatchCount": withParams(func(_ context.Context, s *session, p countParams) (any, error) {
		return okResult{OK: s.reader.SetFindMatchCount(p.Count)}, nil
	}),
	"closeFindBar": action((*reader.Reader).CloseFindBar),
	"jumpToEntity": withParams(func(_ context.Context, s *session, p idParams) (any, error) {
		return okResult{OK: s.reader.JumpToEntity(p.ID)}, nil
	}),

	// Mutations.
	"createEntity": withParams(func(ctx context.Context, s *session, data types.EntityCreateData) (any, error) {
		if data.Type == "" {
			return nil, invalidParams("entity type is required")
		}
		id, ok := s.reader.CreateEntity(ctx, data)
		return createResult{OK: ok, ID: id}, nil
	}),
	"createParentSymbol": withParams(func(ctx context.Context, s *session, p childrenParams) (any, error) {
		children := make([]types.Entity, 0, len(p.Children))
		for _, id := range p.Children {
			e, err := s.entity(id)
			if err != nil {
				return nil, err
			}
			children = append(children, e)
		}
		return okResult{OK: s.reader.CreateParentSymbol(ctx, children)}, nil
	}),
	"updateEntity": withParams(func(ctx context.Context, s *session, p updateParams) (any, error) {
		e, err := s.entity(p.ID)
		if err != nil {
			return nil, err
		}
		prop := reader.PropagationDefault
		if p.Propagate != nil {
			prop = reader.PropagationOff
			if *p.Propagate {
				prop = reader.PropagationOn
			}
		}
		if p.Data.Type == "" {
			p.Data.Type = e.Type
		}
		res := s.reader.UpdateEntityDetailed(ctx, e, p.Data, prop)
		return updateResult{OK: res.OK(), UpdateResult: res}, nil
	}),
	"deleteEntity": withParams(func(ctx context.Context, s *session, p idParams) (any, error) {
		return okResult{OK: s.reader.DeleteEntity(ctx, p.ID)}, nil
	}),

	// Faceted highlights.
	"setHighlightQuantity": withParams(func(_ context.Context, s *session, p quantityParams) (any, error) {
		return okResult{OK: s.reader.SetHighlightQuantity(p.Value)}, nil
	}),
	"toggleFacet": withParams(func(_ context.Context, s *session, p facetParams) (any, error) {
		return okResult{OK: s.reader.ToggleFacet(p.Facet)}, nil
	}),
	"setFacetColor": withParams(func(_ context.Context, s *session, p facetParams) (any, error) {
		return okResult{OK: s.reader.SetFacetColor(p.Facet, p.Color)}, nil
	}),
	"hideHighlight": withParams(func(_ context.Context, s *session, p idParams) (any, error) {
		return okResult{OK: s.reader.HideHighlight(p.ID)}, nil
	}),
	"unhideAllHighlights": check((*reader.Reader).UnhideAllHighlights),
	"showAllHighlightsForSection": withParams(func(_ context.Context, s *session, p sectionParams) (any, error) {
		return okResult{OK: s.reader.ShowAllHighlightsForSection(p.Section, p.Active)}, nil
	}),
	"nextHighlight": func(_ context.Context, s *session, _ json.RawMessage) (any, error) {
		return stepResult(s.reader.NextHighlight())
	},
	"previousHighlight": func(_ context.Context, s *session, _ json.RawMessage) (any, error) {
		return stepResult(s.reader.PreviousHighlight())
	},
	"selectHighlight": withParams(func(_ context.Context, s *session, p idParams) (any, error) {
		return okResult{OK: s.reader.SelectHighlight(p.ID)}, nil
	}),

	// Settings and transient UI.
	"setMultiselect": withParams(func(_ context.Context, s *session, p enabledParams) (any, error) {
		s.reader.SetMultiselect(p.Enabled)
		return okResult{OK: true}, nil
	}),
	"setPropagateEntityEdits": withParams(func(_ context.Context, s *session, p enabledParams) (any, error) {
		s.reader.SetPropagateEntityEdits(p.Enabled)
		return okResult{OK: true}, nil
	}),
	"setAnnotationInteraction": withParams(func(_ context.Context, s *session, p enabledParams) (any, error) {
		s.reader.SetAnnotationInteraction(p.Enabled)
		return okResult{OK: true}, nil
	}),
	"showAnnotations":           action((*reader.Reader).ShowAnnotations),
	"hideAnnotations":           action((*reader.Reader).HideAnnotations),
	"toggleEntityCreation":      action((*reader.Reader).ToggleEntityCreation),
	"toggleEntityEditing":       action((*reader.Reader).ToggleEntityEditing),
	"toggleCopySentenceOnClick": action((*reader.Reader).ToggleCopySentenceOnClick),
	"setEntityCreationType": withParams(func(_ context.Context, s *session, p struct {
		Type types.EntityType `json:"type"`
	}) (any, error) {
		if p.Type == "" {
			return nil, invalidParams("type is required")
		}
		s.reader.SetEntityCreationType(p.Type)
		return okResult{OK: true}, nil
	}),
	"setAreaSelectionMethod": withParams(func(_ context.Context, s *session, p struct {
		Method reader.AreaSelectionMethod `json:"method"`
	}) (any, error) {
		switch p.Method {
		case reader.SelectByText, reader.SelectByRectangle:
		default:
			return nil, invalidParams("unknown area selection method %q", p.Method)
		}
		s.reader.SetAreaSelectionMethod(p.Method)
		return okResult{OK: true}, nil
	}),
	"openDrawer":  action((*reader.Reader).OpenDrawer),
	"closeDrawer": action((*reader.Reader).CloseDrawer),
	"showSnackbar": withParams(func(_ context.Context, s *session, p struct {
		Message string `json:"message"`
	}) (any, error) {
		s.reader.ShowSnackbar(p.Message)
		return okResult{OK: true}, nil
	}),
	"closeSnackbar": action((*reader.Reader).CloseSnackbar),

	// Viewer notifications.
	"documentLoaded": withParams(func(_ context.Context, s *session, ev viewer.DocumentLoaded) (any, error) {
		s.nav.HandleDocumentLoaded(ev)
		return okResult{OK: true}, nil
	}),
	"pageRendered": withParams(func(_ context.Context, s *session, ev viewer.PageRendered) (any, error) {
		if ev.PageNumber < 1 {
			return nil, invalidParams("pageNumber must be positive")
		}
		if doc, ok := s.nav.Document(); ok && doc.PageCount > 0 && ev.PageNumber > doc.PageCount {
			return nil, invalidParams("pageNumber %d beyond document's %d pages", ev.PageNumber, doc.PageCount)
		}
		s.nav.HandlePageRendered(ev)
		return okResult{OK: true}, nil
	}),
	"viewerState": func(_ context.Context, s *session, _ json.RawMessage) (any, error) {
		res := viewerState{Pages: s.nav.Pages()}
		if doc, ok := s.nav.Document(); ok {
			res.Document = &doc
		}
		return res, nil
	},
}

// viewerState reports what the client's viewer has told the session.
type viewerState struct {
	Document *viewer.DocumentLoaded `json:"document"`
	Pages    []viewer.Page          `json:"pages"`
}

// dispatch runs one request against the session's reader.
func (s *session) dispatch(ctx context.Context, req rpcRequest) rpcResponse {
	h, ok := methods[req.Method]
	if !ok {
		return rpcResponse{
			ID:    req.ID,
			Error: &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("unknown method: %s", req.Method)},
		}
	}
	result, err := h(ctx, s, req.Params)
	if err != nil {
		var rerr *rpcError
		if errors.As(err, &rerr) {
			return rpcResponse{ID: req.ID, Error: rerr}
		}
		s.log.Warn().Err(err).Str("method", req.Method).Msg("request failed")
		return rpcResponse{ID: req.ID, Error: &rpcError{Code: codeServerError, Message: err.Error()}}
	}
	return rpcResponse{ID: req.ID, Result: result}
}
