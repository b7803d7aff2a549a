package websocket

import (
	"bytes"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"remcli/internal/infrastructure"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Default time allowed to read the next pong message from the peer
	defaultPongWait = 60 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Outbound buffer per client; a client this far behind gets dropped
	sendBufferSize = 256
)

// Browser clients send an application-level heartbeat alongside protocol
// pings.
var heartbeatFrame = []byte(`{"type":"heartbeat"}`)

// Client couples one WebSocket connection to the hub. The hub fills the
// send channel; the write pump drains it onto the wire.
type Client struct {
	hub  *Hub
	conn Conn
	send chan []byte

	id          string
	remoteAddr  string
	connectedAt time.Time

	// Keepalive timing, resolved from the hub's config
	pongWait   time.Duration
	pingPeriod time.Duration

	logger *slog.Logger
}

func newClient(hub *Hub, conn Conn, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	id := uuid.New().String()

	pongWait := hub.cfg.PongWait
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	pingPeriod := hub.cfg.PingPeriod
	if pingPeriod <= 0 || pingPeriod >= pongWait {
		// Pings must outpace the pong deadline
		pingPeriod = pongWait * 9 / 10
	}

	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		id:          id,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		pongWait:    pongWait,
		pingPeriod:  pingPeriod,
		logger: logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
		),
	}
}

// readPump consumes inbound frames until the connection drops, keeping
// the read deadline fresh on every pong. Progress flows one way, so the
// only inbound payload acted on is the heartbeat; everything else is
// discarded.
func (c *Client) readPump() {
	defer func() {
		c.logger.Info("websocket client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)))
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("unexpected websocket close",
					slog.String("error", err.Error()))
			}
			return
		}
		if bytes.Equal(bytes.TrimSpace(message), heartbeatFrame) {
			c.logger.Debug("heartbeat received")
		}
	}
}

// writeFrame writes one frame under the package write deadline.
func (c *Client) writeFrame(kind int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(kind, data)
}

// writePump moves hub messages onto the wire and keeps the connection
// alive with periodic pings. A closed send channel means the hub let the
// client go, in which case a close frame is the last thing written.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.writeFrame(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeFrame(websocket.TextMessage, message); err != nil {
				c.logger.Error("websocket write failed",
					slog.String("error", err.Error()))
				return
			}

			// Send whatever queued up behind this message as separate
			// frames before going back to sleep.
		drain:
			for {
				select {
				case queued, ok := <-c.send:
					if !ok {
						c.writeFrame(websocket.CloseMessage, []byte{})
						return
					}
					if err := c.writeFrame(websocket.TextMessage, queued); err != nil {
						c.logger.Error("websocket write failed",
							slog.String("error", err.Error()))
						return
					}
				default:
					break drain
				}
			}

		case <-ticker.C:
			if err := c.writeFrame(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("ping failed, dropping connection",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

// ServeWS registers an upgraded connection with the hub and starts its
// pumps.
func ServeWS(hub *Hub, conn *websocket.Conn, logger *slog.Logger) {
	client := newClient(hub, gorillaConn{conn}, logger)
	hub.Register(client)

	go client.writePump()
	go client.readPump()
}
