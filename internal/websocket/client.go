package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client is one dashboard connection, pinned to a workspace.
type Client struct {
	hub         *Hub
	conn        *ws.Conn
	workspaceID int64
	send        chan []byte
}

// Handler upgrades connections and runs them as hub clients. The workspace
// id is resolved by the caller (from the authenticated request context).
func Handler(hub *Hub, workspaceFromRequest func(*http.Request) (int64, bool), logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID, ok := workspaceFromRequest(r)
		if !ok {
			http.Error(w, "workspace required", http.StatusBadRequest)
			return
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		c := &Client{
			hub:         hub,
			conn:        conn,
			workspaceID: workspaceID,
			send:        make(chan []byte, sendBufferSize),
		}
		c.run(r.Context())
	}
}

// run blocks until the connection closes.
func (c *Client) run(ctx context.Context) {
	c.hub.register(c)
	defer c.hub.unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump discards inbound frames; the stream is one-way. Returning on
// error triggers cleanup.
func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
