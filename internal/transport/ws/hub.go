package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Interview observer event envelope types are defined by the interview
// service; the hub only transports them.

// Message is the WebSocket envelope format
type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages read-only observer connections per interview session.
type Hub struct {
	// sessionID -> set of observer connections
	observers map[string]map[*Connection]struct{}

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// Connection represents one observer WebSocket connection
type Connection struct {
	SessionID string
	Send      chan []byte
	Hub       *Hub
}

// BroadcastMessage is a message to fan out to a session's observers
type BroadcastMessage struct {
	SessionID string
	Message   *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		observers:  make(map[string]map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.observers[conn.SessionID] == nil {
				h.observers[conn.SessionID] = make(map[*Connection]struct{})
			}
			h.observers[conn.SessionID][conn] = struct{}{}
			h.mu.Unlock()
			log.Printf("Observer connected to session %s", conn.SessionID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.observers[conn.SessionID]; ok {
				if _, ok := conns[conn]; ok {
					delete(conns, conn)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.observers, conn.SessionID)
					}
					log.Printf("Observer disconnected from session %s", conn.SessionID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Message)
			if err != nil {
				log.Printf("Failed to marshal ws message: %v", err)
				continue
			}
			h.mu.RLock()
			for conn := range h.observers[msg.SessionID] {
				select {
				case conn.Send <- data:
				default:
					// Slow observer; drop the event rather than block
					// the hub.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds an observer connection to the hub.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes an observer connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToObservers implements service.Broadcaster.
func (h *Hub) BroadcastToObservers(sessionID string, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal ws payload: %v", err)
		return
	}
	h.broadcast <- &BroadcastMessage{
		SessionID: sessionID,
		Message:   &Message{Event: event, Payload: data},
	}
}
