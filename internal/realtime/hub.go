package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"growwly/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	upgrader   websocket.Upgrader

	// OnClients, when set, observes the connected client count.
	OnClients func(n int)
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	tables map[Table]bool
}

func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader:   websocket.Upgrader{CheckOrigin: checkOrigin},
	}
}

// Run dispatches events until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.observe()
			return

		case client := <-h.register:
			h.clients[client] = true
			h.observe()
			logger.Debug("realtime client connected", "clients", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.observe()
				logger.Debug("realtime client disconnected", "clients", len(h.clients))
			}

		case ev := <-h.broadcast:
			message, err := json.Marshal(ev)
			if err != nil {
				logger.Error("marshal realtime event", "table", ev.Table, "error", err)
				continue
			}
			for client := range h.clients {
				if !client.tables[ev.Table] {
					continue
				}
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
					h.observe()
				}
			}
		}
	}
}

func (h *Hub) observe() {
	if h.OnClients != nil {
		h.OnClients(len(h.clients))
	}
}

// Publish queues ev for delivery. It gives up when ctx ends or the hub
// has stopped.
func (h *Hub) Publish(ctx context.Context, ev Event) {
	select {
	case h.broadcast <- ev:
	case <-h.done:
	case <-ctx.Done():
	}
}

// ServeWS upgrades the request and subscribes the connection to the tables
// named by repeated `table` query parameters (all tables when omitted).
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	tables := map[Table]bool{}
	for _, name := range r.URL.Query()["table"] {
		t, err := ParseTable(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		tables[t] = true
	}
	if len(tables) == 0 {
		tables = map[Table]bool{TableProgress: true, TableChat: true, TableInteractions: true}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		tables: tables,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read failed", "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
