package setlist

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"setlist-service/internal/logger"
)

type Server struct {
	engine *Engine
	log    *logger.Logger
	auth   func(http.Handler) http.Handler
	ws     http.Handler
}

// NewServer wires the HTTP surface. auth resolves the actor for every route
// except /health; ws, when set, is served at /ws behind auth.
func NewServer(engine *Engine, log *logger.Logger, auth func(http.Handler) http.Handler, ws http.Handler) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{engine: engine, log: log, auth: auth, ws: ws}
}

func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.auth != nil {
			r.Use(s.auth)
		}

		r.Get("/setlists", s.handleListSetLists)
		r.Post("/setlists", s.handleCreateSetList)
		r.Get("/setlists/{id}", s.handleGetSetList)
		r.Delete("/setlists/{id}", s.handleDeleteSetList)
		r.Post("/setlists/{id}/activate", s.handleActivateSetList)
		r.Post("/setlists/{id}/finish", s.handleFinishSetList)

		r.Post("/setlists/{id}/participants", s.handleAddParticipant)
		r.Delete("/setlists/{id}/participants/{nickname}", s.handleRemoveParticipant)

		r.Post("/setlists/{id}/songs", s.handleAddSong)
		r.Post("/setlists/{id}/flexible-cards", s.handleCreateFlexibleCard)
		r.Post("/setlists/{id}/request-cards", s.handleCreateRequestCard)
		r.Post("/setlists/{id}/request-cards/{cardId}/songs", s.handleAddRequestSong)
		r.Delete("/setlists/{id}/request-cards/{cardId}/songs/{songId}", s.handleRemoveRequestSong)

		r.Post("/setlists/{id}/units/{kind}/{unitId}/place", s.handlePlaceUnit)
		r.Post("/setlists/{id}/units/{kind}/{unitId}/complete", s.handleCompleteUnit)
		r.Delete("/setlists/{id}/units/{kind}/{unitId}", s.handleDeleteUnit)

		// Reordering
		r.Patch("/setlists/{id}/queue", s.handleReorder)
		r.Post("/setlists/{id}/queue/gesture", s.handleGesture)

		r.Put("/setlists/{id}/flexible-cards/{cardId}/slots/{index}", s.handleUpdateSlot)
		r.Post("/setlists/{id}/flexible-cards/{cardId}/slots/{index}/members", s.handleAddSlotMember)
		r.Delete("/setlists/{id}/flexible-cards/{cardId}/slots/{index}/members/{nickname}", s.handleRemoveSlotMember)
		r.Post("/setlists/{id}/flexible-cards/{cardId}/slots/{index}/reset", s.handleResetSlot)
		r.Post("/setlists/{id}/flexible-cards/{cardId}/slots/{index}/completed", s.handleSetSlotCompleted)

		r.Get("/setlists/{id}/stats", s.handleStats)

		if s.ws != nil {
			r.Method(http.MethodGet, "/ws", s.ws)
		}
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "setlist-service",
	})
}
