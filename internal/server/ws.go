// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pdiddy/paper-reader/internal/logger"
	"github.com/pdiddy/paper-reader/internal/reader"
	"github.com/pdiddy/paper-reader/internal/viewer"
	"github.com/pdiddy/paper-reader/pkg/types"
)

const writeWait = 10 * time.Second

// Event is a message the server pushes without a request.
type Event struct {
	Event       string              `json:"event"`
	Snapshot    *reader.Snapshot    `json:"snapshot,omitempty"`
	Destination *viewer.Destination `json:"destination,omitempty"`
	Message     string              `json:"message,omitempty"`
}

// Event names.
const (
	EventState  = "state"
	EventScroll = "scroll"
	EventError  = "error"
)

// session is one websocket connection driving one reader.
type session struct {
	conn   *websocket.Conn
	reader *reader.Reader
	nav    *viewer.Navigator
	log    *logger.Logger

	writeMu sync.Mutex
}

// send writes one JSON message. Writes from the read loop, subscribers,
// and navigation are serialized.
func (s *session) send(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := s.conn.WriteJSON(v); err != nil {
		s.log.Debug().Err(err).Msg("websocket write failed")
		return err
	}
	return nil
}

// clientViewer forwards navigation to the connected client as scroll events.
type clientViewer struct {
	s *session
}

func (v clientViewer) ScrollPageIntoView(dest viewer.Destination) error {
	if err := v.s.send(Event{Event: EventScroll, Destination: &dest}); err != nil {
		return fmt.Errorf("sending scroll event: %w", err)
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.newReader == nil {
		s.writeError(w, fmt.Errorf("reader sessions are not enabled: %w", errBadRequest))
		return
	}
	raw := r.URL.Query().Get("paper")
	if raw == "" {
		s.writeError(w, fmt.Errorf("paper query parameter is required: %w", errBadRequest))
		return
	}
	paper := types.ParsePaperID(raw)

	nav := viewer.NewNavigator(nil)
	rd, err := s.newReader(paper, nav)
	if err != nil {
		s.writeError(w, fmt.Errorf("starting session for %s: %w", paper, err))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	s.metrics.RecordWSConnection(1)
	defer s.metrics.RecordWSConnection(-1)

	sess := &session{
		conn:   conn,
		reader: rd,
		nav:    nav,
		log:    s.log.With("paper", paper.String()),
	}
	nav.Attach(clientViewer{s: sess})

	unsubscribe := rd.Subscribe(func(snap reader.Snapshot) {
		_ = sess.send(Event{Event: EventState, Snapshot: &snap})
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess.log.Info().Msg("session opened")
	if err := rd.Load(ctx); err != nil && !errors.Is(err, reader.ErrStaleLoad) {
		_ = sess.send(Event{Event: EventError, Message: err.Error()})
	}
	sess.serve(ctx)
	sess.log.Info().Msg("session closed")
}

// serve reads requests until the connection closes.
func (s *session) serve(ctx context.Context) {
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}
		var req rpcRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			_ = s.send(rpcResponse{Error: &rpcError{Code: codeParseError, Message: err.Error()}})
			continue
		}
		_ = s.send(s.dispatch(ctx, req))
	}
}
