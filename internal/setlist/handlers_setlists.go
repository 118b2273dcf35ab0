package setlist

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// respondView answers with the composed view of sl.
func (s *Server) respondView(w http.ResponseWriter, r *http.Request, status int, sl *SetList) {
	writeJSON(w, status, s.engine.viewOf(r.Context(), sl))
}

func (s *Server) handleListSetLists(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r); !ok {
		return
	}
	out, err := s.engine.List(r.Context())
	if err != nil {
		s.writeEngineError(w, "list setlists", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSetList(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body struct {
		Name         string   `json:"name"`
		Participants []string `json:"participants"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	sl, err := s.engine.Create(r.Context(), actor, body.Name, body.Participants)
	if err != nil {
		s.writeEngineError(w, "create setlist", err)
		return
	}
	writeJSON(w, http.StatusCreated, sl)
}

func (s *Server) handleGetSetList(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r); !ok {
		return
	}
	v, err := s.engine.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, "get setlist", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDeleteSetList(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := s.engine.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		s.writeEngineError(w, "delete setlist", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivateSetList(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	sl, err := s.engine.Activate(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, "activate setlist", err)
		return
	}
	s.respondView(w, r, http.StatusOK, sl)
}

func (s *Server) handleFinishSetList(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	sl, err := s.engine.Finish(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, "finish setlist", err)
		return
	}
	s.respondView(w, r, http.StatusOK, sl)
}

func (s *Server) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body struct {
		Nickname string `json:"nickname"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	sl, err := s.engine.AddParticipant(r.Context(), actor, chi.URLParam(r, "id"), body.Nickname)
	if err != nil {
		s.writeEngineError(w, "add participant", err)
		return
	}
	s.respondView(w, r, http.StatusOK, sl)
}

func (s *Server) handleRemoveParticipant(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	sl, err := s.engine.RemoveParticipant(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "nickname"))
	if err != nil {
		s.writeEngineError(w, "remove participant", err)
		return
	}
	s.respondView(w, r, http.StatusOK, sl)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r); !ok {
		return
	}
	stats, err := s.engine.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
