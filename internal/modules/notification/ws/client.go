package ws

import (
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// Канал односторонний, от клиента ждем только служебные фреймы.
	maxMessageSize = 512
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Заменить на проверку реальных Origins в production
		return true
	},
}

type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID uint
	Log    *slog.Logger
}

// ServeWS апгрейдит соединение и подключает клиента к хабу.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Error("failed to upgrade connection", "error", err)
		return
	}

	client := &Client{
		Hub:    h,
		Conn:   conn,
		Send:   make(chan []byte, 64),
		UserID: userID,
		Log:    h.Log.With(slog.Uint64("userID", uint64(userID))),
	}
	h.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// ReadPump читает входящие фреймы только ради pong/close: полезной
// нагрузки от клиента в операционном канале нет.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		if err := c.Conn.Close(); err != nil {
			if !strings.Contains(err.Error(), "use of closed network connection") {
				c.Log.Warn("Error closing connection in ReadPump defer", "error", err)
			}
		}
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { _ = c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				c.Log.Warn("ReadPump: unexpected close error", "error", err)
			}
			break
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			if !strings.Contains(err.Error(), "use of closed network connection") {
				c.Log.Warn("Error closing connection in WritePump defer", "error", err)
			}
		}
	}()
	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Log.Error("WritePump: failed to write message", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
