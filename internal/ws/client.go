package ws

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds how long a slow reader may stall an event write.
const writeWait = 10 * time.Second

// Client represents a websocket board-feed connection.
type Client struct {
	conn *websocket.Conn
	log  *slog.Logger
}

// NewClient constructs a client wrapper.
func NewClient(conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{conn: conn, log: logger}
}

// Send writes a board event to the websocket connection. A failed or
// timed-out write closes the connection; the hub evicts the client on
// the returned error.
func (c *Client) Send(payload []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Warn("websocket send failed", "error", err)
		_ = c.conn.Close()
		return err
	}
	return nil
}

// Close terminates the connection.
func (c *Client) Close() {
	_ = c.conn.Close()
}
