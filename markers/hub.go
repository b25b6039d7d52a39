package markers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Marker command types understood by the map client
const (
	CommandAdd     = "addMarker"
	CommandMove    = "moveMarker"
	CommandAnimate = "animateMarker"
	CommandRemove  = "removeMarker"
)

const (
	writeWait = 10 * time.Second
	// sendBuffer is how many commands may queue for one client before it is
	// dropped as too slow
	sendBuffer = 256
)

// Command is one marker instruction sent to the map
type Command struct {
	Type  string  `json:"type"`
	ID    string  `json:"id"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label,omitempty"`
}

// client is one map connection. Commands are queued on send and written by
// the client's own writer goroutine.
type client struct {
	conn *websocket.Conn
	send chan Command
}

// Hub is a Surface backed by websocket clients. Every command goes to every
// connected client and new clients are sent the current markers first.
// Sending never waits on a client; a client whose queue is full is dropped.
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.SugaredLogger

	mu      sync.Mutex
	clients map[*client]struct{}
	markers map[string]Command
}

// NewHub returns a Hub with no clients
func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log:     log,
		clients: map[*client]struct{}{},
		markers: map[string]Command{},
	}
}

// ServeHTTP upgrades the request and keeps the client registered until it
// goes away
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorw("websocket upgrade error", "error", err)
		return
	}

	h.mu.Lock()
	c := &client{conn: conn, send: make(chan Command, len(h.markers)+sendBuffer)}
	for _, cmd := range h.markers {
		c.send <- cmd
	}
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.log.Infow("map client connected", "clients", total)

	go h.writePump(c)

	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}

	h.drop(c)
	conn.Close()
	h.log.Infow("map client disconnected")
}

// writePump writes queued commands until the queue is closed
func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for cmd := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(cmd); err != nil {
			h.log.Errorw("failed to send marker command", "error", err)
			h.drop(c)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// drop unregisters c and closes its queue. It is safe to call more than once.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c)
}

// remove must be called with h.mu held
func (h *Hub) remove(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.remove(c)
	}
}

func (h *Hub) send(cmd Command) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cmd.Type == CommandRemove {
		delete(h.markers, cmd.ID)
	} else {
		h.markers[cmd.ID] = cmd
	}
	for c := range h.clients {
		select {
		case c.send <- cmd:
		default:
			h.log.Warnw("dropping slow map client", "queued", len(c.send))
			h.remove(c)
		}
	}
}

// AddOrUpdateMarker places or replaces a marker
func (h *Hub) AddOrUpdateMarker(id string, lat, lng float64, label string) {
	h.send(Command{Type: CommandAdd, ID: id, Lat: lat, Lng: lng, Label: label})
}

// MoveMarker places a marker and re-centres the map on it
func (h *Hub) MoveMarker(id string, lat, lng float64, label string) {
	h.send(Command{Type: CommandMove, ID: id, Lat: lat, Lng: lng, Label: label})
}

// AnimateMarker slides an existing marker to a new position
func (h *Hub) AnimateMarker(id string, lat, lng float64, label string) {
	h.send(Command{Type: CommandAnimate, ID: id, Lat: lat, Lng: lng, Label: label})
}

// RemoveMarker takes a marker off the map
func (h *Hub) RemoveMarker(id string) {
	h.send(Command{Type: CommandRemove, ID: id})
}
