package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/interfaces"
)

const (
	// Time allowed to write a message to the peer.
	wsWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	wsPongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than wsPongWait.
	wsPingPeriod = (wsPongWait * 9) / 10

	// Maximum message size allowed from peer. Clients only send pongs.
	wsReadLimit = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WebSocketHandler streams crawl progress events to connected clients.
type WebSocketHandler struct {
	events interfaces.EventService
	logger arbor.ILogger
}

func NewWebSocketHandler(events interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		events: events,
		logger: logger,
	}
}

// HandleWebSocket upgrades the connection and pushes crawl events until
// the client disconnects or the event service shuts down.
// GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	events, unsubscribe := h.events.Subscribe()
	defer func() {
		unsubscribe()
		conn.Close()
	}()

	h.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("WebSocket client connected")

	go h.writePump(conn, events)

	// Read loop keeps the connection alive and detects client disconnects.
	// Pongs refresh the read deadline; any other traffic is discarded.
	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Msg("WebSocket read error")
			}
			break
		}
	}

	h.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("WebSocket client disconnected")
}

// writePump forwards subscribed events to the client and pings on a
// ticker to keep intermediaries from closing the connection.
func (h *WebSocketHandler) writePump(conn *websocket.Conn, events <-chan interfaces.CrawlEvent) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				// Event service closed the subscription.
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
