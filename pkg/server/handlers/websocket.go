package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// upgrader upgrades change-stream requests to WebSocket connections
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ChangeStream streams a table's change events over a WebSocket. Each
// event is one JSON message; the stream ends when the client disconnects.
func (h *Handlers) ChangeStream(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	if _, err := h.getTable(name); err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}
	defer conn.Close()

	events, cancel := h.db.Events().Subscribe(name)
	defer cancel()

	// Drain client frames so close is noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("change stream %s: write failed: %v", name, err)
				return
			}
		case <-done:
			return
		}
	}
}
