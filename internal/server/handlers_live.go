package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bobmcallan/chartsage/internal/common"
	"github.com/bobmcallan/chartsage/internal/interfaces"
	"github.com/bobmcallan/chartsage/internal/models"
)

const (
	liveWriteWait   = 10 * time.Second
	livePongWait    = 60 * time.Second
	livePingPeriod  = 30 * time.Second
	liveMaxFrame    = 4 << 20
	liveSendBacklog = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// liveFrameMessage is one client message on the live socket. Data is base64
// in JSON. Screen frames are the common case, so kind defaults to video.
type liveFrameMessage struct {
	Kind     string `json:"kind" default:"video" validate:"required,oneof=audio video"`
	MIMEType string `json:"mime_type" validate:"required"`
	Data     []byte `json:"data" validate:"required"`
}

func (m *liveFrameMessage) Normalize() {
	m.Kind = strings.ToLower(strings.TrimSpace(m.Kind))
	m.MIMEType = strings.TrimSpace(m.MIMEType)
}

// liveRelay bridges one WebSocket client and one live session. Session
// events are queued to the write pump; the read pump forwards frames.
type liveRelay struct {
	conn    *websocket.Conn
	session interfaces.LiveSession
	logger  *common.Logger

	mu       sync.Mutex
	send     chan []byte
	finished bool
}

func newLiveRelay(logger *common.Logger) *liveRelay {
	return &liveRelay{
		logger: logger,
		send:   make(chan []byte, liveSendBacklog),
	}
}

// enqueue queues an event for the client, dropping it when the backlog is full.
func (c *liveRelay) enqueue(event models.LiveEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to marshal live event")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn().Str("type", string(event.Type)).Msg("Live relay backlog full, dropping event")
	}
}

// finish closes the send queue; the write pump then closes the socket.
func (c *liveRelay) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finished {
		c.finished = true
		close(c.send)
	}
}

func (c *liveRelay) callbacks() models.LiveCallbacks {
	return models.LiveCallbacks{
		OnOpen: func() {
			c.enqueue(models.LiveEvent{Type: models.LiveEventOpen})
		},
		OnMessage: c.enqueue,
		OnError: func(err error) {
			c.enqueue(models.LiveEvent{Type: models.LiveEventError, Error: err.Error()})
		},
		OnClose: func() {
			c.enqueue(models.LiveEvent{Type: models.LiveEventClose})
			c.finish()
		},
	}
}

// handleLive handles GET /api/live. The session is opened before the
// upgrade so refusals are ordinary JSON errors.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	access, ok := requireTrader(w, r)
	if !ok {
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		WriteError(w, http.StatusBadRequest, "WebSocket upgrade required")
		return
	}

	relay := newLiveRelay(s.logger)
	session, err := s.app.AnalysisService.StartLive(r.Context(), access, relay.callbacks())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	relay.session = session

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("trader_id", access.TraderID).Msg("WebSocket upgrade failed")
		session.Close()
		return
	}
	relay.conn = conn

	s.logger.Info().Str("trader_id", access.TraderID).Msg("Live relay connected")

	go relay.writePump()
	go relay.readPump()
}

// writePump sends queued events to the WebSocket connection.
func (c *liveRelay) writePump() {
	ticker := time.NewTicker(livePingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "live session closed"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump forwards client frames to the session. Any read error ends the
// session, which in turn closes the queue and the socket.
func (c *liveRelay) readPump() {
	defer func() {
		c.session.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(liveMaxFrame)
	c.conn.SetReadDeadline(time.Now().Add(livePongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(livePongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug().Err(err).Msg("Live relay read ended")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(livePongWait))

		var msg liveFrameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(models.LiveEvent{Type: models.LiveEventError, Error: "invalid frame: " + err.Error()})
			continue
		}
		if errs := bindDefaultsAndValidate(context.Background(), &msg); len(errs) > 0 {
			c.enqueue(models.LiveEvent{Type: models.LiveEventError, Error: "invalid frame: " + errs[0].Message})
			continue
		}

		err = c.session.SendFrame(models.LiveFrame{Kind: msg.Kind, MIMEType: msg.MIMEType, Data: msg.Data})
		if err != nil {
			select {
			case <-c.session.Done():
				return
			default:
			}
			c.enqueue(models.LiveEvent{Type: models.LiveEventError, Error: err.Error()})
		}
	}
}
