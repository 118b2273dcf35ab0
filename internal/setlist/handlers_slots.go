package setlist

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleUpdateSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	index, ok := slotIndexParam(w, r)
	if !ok {
		return
	}
	var body FlexibleSlot
	if !decodeBody(w, r, &body) {
		return
	}
	sl, err := s.engine.UpdateSlot(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "cardId"), index, body)
	if err != nil {
		s.writeEngineError(w, "update slot", err)
		return
	}
	s.respondView(w, r, http.StatusOK, sl)
}

func (s *Server) handleAddSlotMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	index, ok := slotIndexParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Nickname string `json:"nickname"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	sl, err := s.engine.AddSlotMember(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "cardId"), index, body.Nickname)
	if err != nil {
		s.writeEngineError(w, "add slot member", err)
		return
	}
	s.respondView(w, r, http.StatusOK, sl)
}

func (s *Server) handleRemoveSlotMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	index, ok := slotIndexParam(w, r)
	if !ok {
		return
	}
	sl, err := s.engine.RemoveSlotMember(r.Context(), actor,
		chi.URLParam(r, "id"), chi.URLParam(r, "cardId"), index, chi.URLParam(r, "nickname"))
	if err != nil {
		s.writeEngineError(w, "remove slot member", err)
		return
	}
	s.respondView(w, r, http.StatusOK, sl)
}

func (s *Server) handleResetSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	index, ok := slotIndexParam(w, r)
	if !ok {
		return
	}
	sl, err := s.engine.ResetSlot(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "cardId"), index)
	if err != nil {
		s.writeEngineError(w, "reset slot", err)
		return
	}
	s.respondView(w, r, http.StatusOK, sl)
}

func (s *Server) handleSetSlotCompleted(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	index, ok := slotIndexParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Completed *bool `json:"completed"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Completed == nil {
		writeError(w, http.StatusBadRequest, "completed is required")
		return
	}
	sl, err := s.engine.SetSlotCompleted(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "cardId"), index, *body.Completed)
	if err != nil {
		s.writeEngineError(w, "set slot completed", err)
		return
	}
	s.respondView(w, r, http.StatusOK, sl)
}
