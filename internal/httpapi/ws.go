package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hay-kot/shoppulse/internal/core/feed"
)

const (
	// pongWait is how long a client may stay silent before it is dropped.
	pongWait = 60 * time.Second
	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize caps frames read from clients, which only send control frames.
	maxMessageSize = 4 * 1024
	// sendBuffer is the number of snapshots queued per client before drops.
	sendBuffer = 16
)

// wsClient is one WebSocket connection holding one aggregator subscription.
type wsClient struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	writeWait time.Duration
	onDrop    func(string)
	log       zerolog.Logger
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	id := uuid.NewString()
	c := &wsClient{
		id:        id,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		writeWait: s.writeWait,
		onDrop:    s.opts.OnDrop,
		log:       s.log.With().Str("client", id).Str("transport", "ws").Logger(),
	}

	sub := s.feed.Connect(c.enqueue)
	c.log.Info().Str("remote", r.RemoteAddr).Msg("websocket client connected")

	go c.writePump()
	c.readPump()

	// Disconnect returns only after any in-flight broadcast, so send can be closed.
	sub.Close()
	close(c.send)
	c.log.Info().Msg("websocket client disconnected")
}

// enqueue is the aggregator callback. It never blocks: a client that cannot keep
// up loses snapshots rather than stalling the broadcast.
func (c *wsClient) enqueue(snap feed.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		c.log.Error().Err(err).Msg("marshal snapshot")
		return
	}

	select {
	case c.send <- data:
	default:
		c.onDrop("ws")
		c.log.Warn().Msg("send buffer full, dropping snapshot")
	}
}

// readPump consumes control frames until the connection fails or closes.
func (c *wsClient) readPump() {
	defer c.conn.Close() //nolint:errcheck

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("websocket read")
			}
			return
		}
	}
}

// writePump writes queued snapshots and keepalive pings. Each snapshot is its own
// text frame.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug().Err(err).Msg("websocket write")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
