package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mpatra/handrange/internal/ranging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// reading is the wire format of one live distance reading.
type reading struct {
	DistanceCM float64 `json:"distance_cm"`
	DistanceM  float64 `json:"distance_m"`
	PixelWidth float64 `json:"pixel_width"`
	NearRange  bool    `json:"near_range"`
	Timestamp  int64   `json:"timestamp"`
}

// ReadingsHub broadcasts each frame's distance estimate to connected
// WebSocket clients. It implements the measurement loop's publisher.
type ReadingsHub struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewReadingsHub creates an empty hub.
func NewReadingsHub() *ReadingsHub {
	return &ReadingsHub{
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *ReadingsHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Publish sends one estimate to every connected client. With no clients
// it is a no-op, so the measurement loop pays nothing for an idle hub.
func (h *ReadingsHub) Publish(est ranging.Estimate) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(reading{
		DistanceCM: est.CM,
		DistanceM:  est.M,
		PixelWidth: est.PixelWidth,
		NearRange:  est.NearRange(),
		Timestamp:  time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}

	for conn := range h.clients {
		conn.WriteMessage(websocket.TextMessage, msg)
	}
}
