package server

import (
	"time"

	"portfolio-dashboard/src/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // browsers only send small commands
)

// -----------------------------------------------------------------------------

// Client is one browser watching the dashboard. The hub owns send and closes
// it when the client is dropped.
type Client struct {
	hub  *DashboardServer
	conn *websocket.Conn
	send chan *models.MDashboardMessage
}

// -----------------------------------------------------------------------------

// readPump handles snapshot commands and notices when the browser goes away.
// Pongs extend the read deadline; a silent browser is dropped after pongWait.
func (c *Client) readPump() {
	defer c.leave()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("Dashboard client read failed: %v", err)
			}
			return
		}
		c.hub.HandleClientMessage(c, message)
	}
}

// leave unregisters the client unless the hub has already shut down.
func (c *Client) leave() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
	c.conn.Close()
	c.hub.Logger.Debug("Dashboard client %s left", c.conn.RemoteAddr())
}

// -----------------------------------------------------------------------------

// writePump forwards dashboard messages as JSON frames and keeps the
// connection alive with pings. A closed send channel ends the session.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.write(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.Logger.Info("Dashboard %s update not delivered: %v", message.Type, err)
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(messageType int, payload []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, payload)
}
