package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	sendQueueSize  = 16
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	id         uuid.UUID
	hub        *Hub
	keepalive  *Keepalive
	dispatcher *Dispatcher
	conn       *websocket.Conn
	send       chan []byte

	mu        sync.Mutex // guards send and closed
	closed    bool
	closeOnce sync.Once
}

func newClient(hub *Hub, keepalive *Keepalive, dispatcher *Dispatcher, conn *websocket.Conn) *Client {
	return &Client{
		id:         uuid.New(),
		hub:        hub,
		keepalive:  keepalive,
		dispatcher: dispatcher,
		conn:       conn,
		send:       make(chan []byte, sendQueueSize),
	}
}

// ID identifies the connection for liveness tracking and logs.
func (c *Client) ID() uuid.UUID {
	return c.id
}

// Ping sends a liveness probe as a websocket control frame.
func (c *Client) Ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Close tears the connection down and removes it from the hub.
func (c *Client) Close() {
	c.close()
}

// trySend queues msg without blocking. It reports false when the client is
// closed or its queue is full.
func (c *Client) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close is a thread-safe method to clean up the client's resources.
// It ensures that the unregister and connection close operations happen exactly once.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		log.WithFields(log.Fields{"conn": c.id, "remoteAddr": c.conn.RemoteAddr()}).Debug("closing client connection")
		c.keepalive.Untrack(c.id)
		c.hub.Unregister(c)
		c.closeConn()
	})
}

// closeConn stops the write pump and closes the socket, which ends the read pump.
func (c *Client) closeConn() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	if err := c.conn.Close(); err != nil {
		// This error is expected if the other end has already hung up.
		log.WithError(err).WithField("conn", c.id).Debug("error while closing client connection")
	}
}

// readPump forwards client requests to the dispatcher and acknowledges pongs.
func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.keepalive.Ack(c.id)
		return nil
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).WithField("conn", c.id).Debug("client read error, triggering disconnect")
			}
			return
		}
		c.dispatcher.Dispatch(msgType, data)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	defer c.close()

	for message := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			log.WithError(err).WithField("conn", c.id).Warn("failed to set write deadline")
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.WithError(err).WithField("conn", c.id).Debug("client write error")
			return
		}
	}
}
