package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Siasom1/gorrillazz-minter/log"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the monitor is a local operator tool; any origin may watch
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// WebSocketHub owns every client connection. All writes happen on the Run
// goroutine.
type WebSocketHub struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan WSMessage
	done       chan struct{}
	count      atomic.Int64
	logger     *log.Logger
}

func NewWebSocketHub(logger *log.Logger) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan WSMessage, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *WebSocketHub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			c.Close()
		}
		h.count.Store(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.clients[conn] = true
			h.count.Store(int64(len(h.clients)))

		case conn := <-h.unregister:
			h.drop(conn)

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.Error("encode ws message", "type", msg.Type, "error", err.Error())
				continue
			}
			for c := range h.clients {
				_ = c.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
					h.drop(c)
				}
			}
		}
	}
}

func (h *WebSocketHub) drop(conn *websocket.Conn) {
	if _, ok := h.clients[conn]; !ok {
		return
	}
	delete(h.clients, conn)
	conn.Close()
	h.count.Store(int64(len(h.clients)))
}

// Broadcast queues msg for every client; it drops the message rather than
// block when the hub is backed up.
func (h *WebSocketHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("monitor backlog full, dropping message", "type", msg.Type)
	}
}

// Clients is the number of connected watchers.
func (h *WebSocketHub) Clients() int {
	return int(h.count.Load())
}

func (h *WebSocketHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err.Error())
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	// watchers only listen; reading detects the close
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				select {
				case h.unregister <- conn:
				case <-h.done:
				}
				return
			}
		}
	}()
}
