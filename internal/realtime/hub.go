package realtime

import (
	"context"
)

type roomMessage struct {
	setlistID string
	data      []byte
}

// Hub owns the connected clients, grouped by the setlist they watch.
type Hub struct {
	// Registered clients per setlist id.
	rooms map[string]map[*Client]bool

	// Messages to fan out to one room.
	broadcast chan roomMessage

	register   chan *Client
	unregister chan *Client

	// closed when Run returns
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan roomMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Broadcast queues data for every client watching setlistID.
func (h *Hub) Broadcast(setlistID string, data []byte) {
	select {
	case h.broadcast <- roomMessage{setlistID: setlistID, data: data}:
	case <-h.done:
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) drop(c *Client) {
	room, ok := h.rooms[c.setlistID]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.setlistID)
	}
	close(c.send)
	_ = c.conn.Close()
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, room := range h.rooms {
				for c := range room {
					h.drop(c)
				}
			}
			return

		case c := <-h.register:
			if h.rooms[c.setlistID] == nil {
				h.rooms[c.setlistID] = make(map[*Client]bool)
			}
			h.rooms[c.setlistID][c] = true

		case c := <-h.unregister:
			h.drop(c)

		case msg := <-h.broadcast:
			for c := range h.rooms[msg.setlistID] {
				select {
				case c.send <- msg.data:
				default:
					// slow consumer
					h.drop(c)
				}
			}
		}
	}
}
