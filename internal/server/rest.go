// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/paper-reader/internal/api"
	"github.com/pdiddy/paper-reader/pkg/types"
)

const maxBodyBytes = 4 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData[T any](w http.ResponseWriter, status int, data T) {
	writeJSON(w, status, api.Envelope[T]{Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, api.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, api.ErrRequestFailed):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, api.ErrorBody{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

func decodeBody[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var env api.Envelope[T]
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&env); err != nil {
		return env.Data, fmt.Errorf("decoding body: %v: %w", err, errBadRequest)
	}
	return env.Data, nil
}

func (s *Server) handleGetEntities(w http.ResponseWriter, r *http.Request) {
	entities, err := s.backend.GetEntities(r.Context(), r.PathValue("paper"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entities == nil {
		entities = []types.Entity{}
	}
	writeData(w, http.StatusOK, entities)
}

func (s *Server) handlePostEntity(w http.ResponseWriter, r *http.Request) {
	data, err := decodeBody[types.EntityCreateData](w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if data.Type == "" {
		s.writeError(w, fmt.Errorf("entity type is required: %w", errBadRequest))
		return
	}
	e, err := s.backend.PostEntity(r.Context(), r.PathValue("paper"), data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, e)
}

func (s *Server) handlePatchEntity(w http.ResponseWriter, r *http.Request) {
	data, err := decodeBody[types.EntityUpdateData](w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id := r.PathValue("id")
	if data.ID == "" {
		data.ID = id
	}
	if data.ID != id {
		s.writeError(w, fmt.Errorf("body id %s does not match path id %s: %w", data.ID, id, errBadRequest))
		return
	}
	if err := s.backend.PatchEntity(r.Context(), r.PathValue("paper"), data); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeleteEntity(r.Context(), r.PathValue("paper"), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetPapers(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, v := range r.URL.Query()["id"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	papers, err := s.backend.GetPapers(r.Context(), ids)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if papers == nil {
		papers = []types.Paper{}
	}
	writeData(w, http.StatusOK, papers)
}
