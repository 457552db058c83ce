package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NestNote/CradleLog/internal/models"
)

// Websocket timing and size limits.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 50 * time.Second
	maxMessageSize = 512
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wsClient is one websocket consumer of a room feed.
type wsClient struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	roomID string
}

// ServeRoom upgrades the request to a websocket and streams the room's
// message inserts until the peer disconnects. Messages sent by the client
// over the socket are ignored; sends go through the HTTP API.
func (h *Hub) ServeRoom(w http.ResponseWriter, r *http.Request, roomID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Hub.ServeRoom: upgrade failed", "room", roomID, "error", err)
		return err
	}

	client := &wsClient{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		roomID: roomID,
	}

	unsubscribe, err := h.Subscribe(roomID, func(msg models.ChatMessage) {
		data, marshalErr := json.Marshal(msg)
		if marshalErr != nil {
			slog.Error("Hub.ServeRoom: marshal failed", "room", roomID, "error", marshalErr)
			return
		}
		select {
		case client.send <- data:
		case <-client.done:
			// Handler snapshots taken before unsubscribe may still fire.
		default:
			// Slow consumer; drop rather than block the publisher.
			slog.Warn("Hub.ServeRoom: send buffer full, dropping", "room", roomID)
		}
	})
	if err != nil {
		conn.Close()
		return err
	}

	slog.Info("Hub.ServeRoom: websocket subscribed", "room", roomID)
	go client.writePump()
	go client.readPump(unsubscribe)
	return nil
}

// readPump discards inbound frames and tears the subscription down when the
// peer goes away.
func (c *wsClient) readPump(unsubscribe func()) {
	defer func() {
		unsubscribe()
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("Hub.readPump: unexpected close", "room", c.roomID, "error", err)
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
