package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"setlist-service/internal/logger"
	"setlist-service/internal/setlist"
)

// Source is the part of the engine the websocket server reads from.
type Source interface {
	View(ctx context.Context, id string) (*setlist.View, error)
	Subscribe(ctx context.Context, id string, onChange func(*setlist.View)) (func(), error)
}

const (
	eventSnapshot = "setlist.snapshot"
	eventUpdated  = "setlist.updated"
)

type envelope struct {
	Type    string        `json:"type"`
	Payload *setlist.View `json:"payload"`
}

// Server upgrades /ws?setlistId= connections and keeps one engine
// subscription per watched setlist.
type Server struct {
	hub      *Hub
	source   Source
	log      *logger.Logger
	ctx      context.Context
	upgrader websocket.Upgrader

	mu       sync.Mutex
	watchers map[string]*watch
}

type watch struct {
	refs        int
	unsubscribe func()
}

// NewServer builds the websocket endpoint. allowedOrigin "*" accepts any
// origin; anything else must match the Origin header exactly.
func NewServer(ctx context.Context, hub *Hub, source Source, log *logger.Logger, allowedOrigin string) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		hub:      hub,
		source:   source,
		log:      log.With("component", "RealtimeServer"),
		ctx:      ctx,
		watchers: make(map[string]*watch),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return allowedOrigin == "" || allowedOrigin == "*" || origin == "" || origin == allowedOrigin
		},
	}
	return s
}

func encode(eventType string, v *setlist.View) ([]byte, error) {
	return json.Marshal(envelope{Type: eventType, Payload: v})
}

// acquire subscribes to id on the first watcher.
func (s *Server) acquire(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.watchers[id]; ok {
		w.refs++
		return nil
	}
	unsubscribe, err := s.source.Subscribe(s.ctx, id, func(v *setlist.View) {
		data, err := encode(eventUpdated, v)
		if err != nil {
			s.log.Warn("realtime: encode view", "setlistId", id, "error", err)
			return
		}
		s.hub.Broadcast(id, data)
	})
	if err != nil {
		return err
	}
	s.watchers[id] = &watch{refs: 1, unsubscribe: unsubscribe}
	return nil
}

// release drops the subscription when the last watcher leaves.
func (s *Server) release(id string) {
	s.mu.Lock()
	w, ok := s.watchers[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	w.refs--
	if w.refs > 0 {
		s.mu.Unlock()
		return
	}
	delete(s.watchers, id)
	s.mu.Unlock()
	w.unsubscribe()
}

// Watching reports how many connections watch id.
func (s *Server) Watching(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.watchers[id]; ok {
		return w.refs
	}
	return 0
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("setlistId")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing setlistId")
		return
	}

	view, err := s.source.View(r.Context(), id)
	if errors.Is(err, setlist.ErrNotFound) {
		writeError(w, http.StatusNotFound, "setlist not found")
		return
	}
	if err != nil {
		s.log.Error("realtime: load setlist", "setlistId", id, "error", err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	snapshot, err := encode(eventSnapshot, view)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode error")
		return
	}

	if err := s.acquire(id); err != nil {
		s.log.Error("realtime: subscribe", "setlistId", id, "error", err)
		writeError(w, http.StatusServiceUnavailable, "subscription unavailable")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("realtime: ws upgrade", "error", err)
		s.release(id)
		return
	}

	var once sync.Once
	client := &Client{
		hub:       s.hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		setlistID: id,
		onClose:   func() { once.Do(func() { s.release(id) }) },
	}
	client.send <- snapshot

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		_ = conn.Close()
		client.onClose()
		return
	}

	go client.writePump()
	go client.readPump()
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
	})
}
