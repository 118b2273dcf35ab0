package setlist

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body NewSong
	if !decodeBody(w, r, &body) {
		return
	}
	song, err := s.engine.AddSong(r.Context(), actor, chi.URLParam(r, "id"), body)
	if err != nil {
		s.writeEngineError(w, "add song", err)
		return
	}
	writeJSON(w, http.StatusCreated, song)
}

func (s *Server) handleCreateFlexibleCard(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body struct {
		OwnerNickname string `json:"ownerNickname"`
		TotalSlots    int    `json:"totalSlots"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	card, err := s.engine.CreateFlexibleCard(r.Context(), actor, chi.URLParam(r, "id"), body.OwnerNickname, body.TotalSlots)
	if err != nil {
		s.writeEngineError(w, "create flexible card", err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (s *Server) handleCreateRequestCard(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	card, err := s.engine.CreateRequestCard(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, "create request card", err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (s *Server) handleAddRequestSong(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body struct {
		Title string `json:"title"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	rs, err := s.engine.AddRequestSong(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "cardId"), body.Title)
	if err != nil {
		s.writeEngineError(w, "add request song", err)
		return
	}
	writeJSON(w, http.StatusCreated, rs)
}

func (s *Server) handleRemoveRequestSong(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	sl, err := s.engine.RemoveRequestSong(r.Context(), actor,
		chi.URLParam(r, "id"), chi.URLParam(r, "cardId"), chi.URLParam(r, "songId"))
	if err != nil {
		s.writeEngineError(w, "remove request song", err)
		return
	}
	s.respondView(w, r, http.StatusOK, sl)
}

func (s *Server) handlePlaceUnit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	sl, err := s.engine.Place(r.Context(), actor, chi.URLParam(r, "id"), kind, chi.URLParam(r, "unitId"))
	if err != nil {
		s.writeEngineError(w, "place unit", err)
		return
	}
	s.respondView(w, r, http.StatusOK, sl)
}

func (s *Server) handleCompleteUnit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	sl, err := s.engine.Complete(r.Context(), actor, chi.URLParam(r, "id"), kind, chi.URLParam(r, "unitId"))
	if err != nil {
		s.writeEngineError(w, "complete unit", err)
		return
	}
	s.respondView(w, r, http.StatusOK, sl)
}

func (s *Server) handleDeleteUnit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	sl, err := s.engine.DeleteUnit(r.Context(), actor, chi.URLParam(r, "id"), kind, chi.URLParam(r, "unitId"))
	if err != nil {
		s.writeEngineError(w, "delete unit", err)
		return
	}
	s.respondView(w, r, http.StatusOK, sl)
}
