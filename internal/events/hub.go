package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

// Conn abstracts a websocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one websocket connection watching one patient's events.
type Client struct {
	ID        string
	PatientID string
	Send      chan []byte
	conn      Conn
}

// Hub fans bus events out to websocket clients, keyed by patient id.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  zerolog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger.With().Str("component", "events_hub").Logger(),
	}
}

// Attach subscribes the hub to bus and returns the unsubscribe handle.
func (h *Hub) Attach(bus *Bus) func() {
	return bus.Subscribe(h.Broadcast)
}

// NewClient builds a client for patientID around conn.
func NewClient(patientID string, conn Conn) *Client {
	return &Client{
		ID:        uuid.New().String(),
		PatientID: patientID,
		Send:      make(chan []byte, sendBuffer),
		conn:      conn,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.PatientID] == nil {
		h.clients[client.PatientID] = make(map[*Client]struct{})
	}
	h.clients[client.PatientID][client] = struct{}{}
}

// Unregister removes a client and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.clients[client.PatientID]
	if !ok {
		return
	}
	if _, ok := subscribers[client]; !ok {
		return
	}
	delete(subscribers, client)
	if len(subscribers) == 0 {
		delete(h.clients, client.PatientID)
	}
	close(client.Send)
}

// Broadcast sends e to every client watching e.PatientID. Slow clients
// whose buffer is full miss the event.
func (h *Hub) Broadcast(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[e.PatientID] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn().Str("client_id", client.ID).Msg("client buffer full, event dropped")
		}
	}
}

// ClientCount returns the number of clients watching patientID.
func (h *Hub) ClientCount(patientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[patientID])
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Serve upgrades the request, registers a client for patientID and blocks
// until the connection closes. allowedOrigin is checked against the Origin
// header; an empty value accepts any origin.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, patientID, allowedOrigin string) error {
	up := upgrader
	up.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return allowedOrigin == "" || origin == "" || origin == allowedOrigin
	}

	ws, err := up.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(patientID, ws)
	h.Register(client)
	h.logger.Debug().Str("client_id", client.ID).Str("patient_id", patientID).Msg("client connected")

	go h.writePump(client, ws)
	h.readPump(client)
	return nil
}

// readPump drains inbound frames until the peer goes away. Clients only
// listen; anything they send is discarded.
func (h *Hub) readPump(client *Client) {
	defer func() {
		h.Unregister(client)
		client.conn.Close()
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(client *Client, ws *websocket.Conn) {
	defer ws.Close()

	for message := range client.Send {
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	ws.WriteMessage(websocket.CloseMessage, []byte{})
}
