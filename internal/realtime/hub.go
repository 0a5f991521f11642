// Package realtime verteilt Audio-Hinweise und Zustandsänderungen per
// WebSocket an verbundene Oberflächen.
package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"lernabenteuer/internal/logger"
	"lernabenteuer/internal/navigation"
	"lernabenteuer/internal/quiz"
)

type Event string

const (
	EventCue   Event = "cue"
	EventState Event = "state"
)

// Message ist das Nachrichtenformat auf dem Socket
type Message struct {
	Event Event `json:"event"`
	Data  any   `json:"data,omitempty"`
}

const (
	outboundBuffer = 16
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
)

// Client ist eine verbundene Oberfläche
type Client struct {
	ID       uuid.UUID
	Outbound chan Message
	done     chan struct{}
	once     sync.Once
}

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// Hub hält alle Clients und verteilt Nachrichten ohne zu blockieren.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]bool
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		log:     log.With("component", "RealtimeHub"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// NewClient registriert einen Client
func (h *Hub) NewClient() *Client {
	c := &Client{
		ID:       uuid.New(),
		Outbound: make(chan Message, outboundBuffer),
		done:     make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	h.log.Debug("Client verbunden", "clientID", c.ID)
	return c
}

// RemoveClient meldet einen Client ab
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
	h.log.Debug("Client getrennt", "clientID", c.ID)
}

// ClientCount liefert die Anzahl verbundener Clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast verteilt eine Nachricht; volle Puffer verlieren die Nachricht.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.Outbound <- msg:
		default:
			h.log.Warn("Nachricht verworfen, Puffer voll", "clientID", c.ID, "event", msg.Event)
		}
	}
}

// Cue erfüllt quiz.CueSink
func (h *Hub) Cue(cue quiz.Cue) {
	h.Broadcast(Message{Event: EventCue, Data: cue})
}

// PublishState verteilt einen Navigationszustand
func (h *Hub) PublishState(state navigation.State) {
	h.Broadcast(Message{Event: EventState, Data: state})
}

// ServeWS hebt die Verbindung auf WebSocket an und schreibt bis zum Abbruch.
// initial wird als erste Nachricht gesendet, falls gesetzt.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, initial *Message) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket-Upgrade fehlgeschlagen", "error", err)
		return
	}
	defer conn.Close()

	client := h.NewClient()
	defer h.RemoveClient(client)

	// Lesen nur für Pong und Verbindungsende
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer client.close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if initial != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(initial); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-client.done:
			return
		case <-r.Context().Done():
			return
		case msg := <-client.Outbound:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("Schreiben fehlgeschlagen", "clientID", client.ID, "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
