package setlist

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body ReorderRequest
	if !decodeBody(w, r, &body) {
		return
	}
	body.UnitID = strings.TrimSpace(body.UnitID)
	if body.UnitID == "" {
		writeError(w, http.StatusBadRequest, "unitId is required")
		return
	}
	sl, err := s.engine.Reorder(r.Context(), actor, chi.URLParam(r, "id"), body)
	if err != nil {
		s.writeEngineError(w, "reorder", err)
		return
	}
	s.respondView(w, r, http.StatusOK, sl)
}

func (s *Server) handleGesture(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body GestureCommit
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.UnitID) == "" {
		writeError(w, http.StatusBadRequest, "unitId is required")
		return
	}
	sl, err := s.engine.CommitGesture(r.Context(), actor, chi.URLParam(r, "id"), body)
	if err != nil {
		s.writeEngineError(w, "gesture reorder", err)
		return
	}
	s.respondView(w, r, http.StatusOK, sl)
}
