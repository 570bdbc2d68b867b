package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wricardo/tiny-battle-run/game/engine"
	"github.com/wricardo/tiny-battle-run/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Time allowed for an input handler to apply a pointer report.
	inputTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		return true
	},
}

// InputHandler applies a pointer report to a session
type InputHandler func(ctx context.Context, sessionID string, x, viewportWidth float64) error

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	format    string
}

// Hub maintains the set of active clients and fans each session's view
// commands and events out to them. It mirrors every session's visuals so a
// client that connects mid-game starts from a snapshot.
type Hub struct {
	// Registered clients by session ID
	sessions map[string]map[*Client]bool

	// View state by session ID
	mirrors map[string]*mirror

	// Outbound messages from sessions
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Functions run on the hub goroutine
	inspect chan func()

	quit     chan struct{}
	stopOnce sync.Once

	inputMu sync.RWMutex
	input   InputHandler

	logger zerolog.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		mirrors:    make(map[string]*mirror),
		broadcast:  make(chan *Message, 1024),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inspect:    make(chan func()),
		quit:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			for _, clients := range h.sessions {
				for client := range clients {
					close(client.send)
				}
			}
			h.sessions = make(map[string]map[*Client]bool)
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case fn := <-h.inspect:
			// Messages queued before the request are applied first
			for n := len(h.broadcast); n > 0; n-- {
				h.broadcastMessage(<-h.broadcast)
			}
			fn()
		}
	}
}

// Stop ends the event loop and closes every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// SetInputHandler installs the handler for pointer reports from clients
func (h *Hub) SetInputHandler(handler InputHandler) {
	h.inputMu.Lock()
	defer h.inputMu.Unlock()
	h.input = handler
}

func (h *Hub) inputHandler() InputHandler {
	h.inputMu.RLock()
	defer h.inputMu.RUnlock()
	return h.input
}

// ServeWS handles WebSocket requests from clients. format is FormatJSON or
// FormatMsgpack.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID, format string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	if format != FormatMsgpack {
		format = FormatJSON
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
		format:    format,
	}

	select {
	case h.register <- client:
	case <-h.quit:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// ViewFor returns the view collaborator for a session's engine. Every call
// on it becomes a message to the session's clients.
func (h *Hub) ViewFor(sessionID string) service.SessionView {
	return &sessionView{hub: h, sessionID: sessionID}
}

// PublishEvents sends game events to all clients in a session
func (h *Hub) PublishEvents(sessionID string, events []engine.GameEvent) {
	for i := range events {
		event := events[i]
		h.send(&Message{Type: event.Type, SessionID: sessionID, Event: &event})
	}
}

// CloseSession tells a session's clients the session is gone, disconnects
// them and forgets the session's view state
func (h *Hub) CloseSession(sessionID string) {
	h.send(&Message{Type: OpSessionClosed, SessionID: sessionID})
}

// ClientCount returns the number of clients connected to a session
func (h *Hub) ClientCount(sessionID string) int {
	count := make(chan int, 1)
	select {
	case h.inspect <- func() { count <- len(h.sessions[sessionID]) }:
		return <-count
	case <-h.quit:
		return 0
	}
}

// Snapshot returns the mirrored view state of a session, or nil if the hub
// has never seen a view command for it
func (h *Hub) Snapshot(sessionID string) *Snapshot {
	snap := make(chan *Snapshot, 1)
	lookup := func() {
		if m, ok := h.mirrors[sessionID]; ok {
			snap <- m.snapshot()
			return
		}
		snap <- nil
	}
	select {
	case h.inspect <- lookup:
		return <-snap
	case <-h.quit:
		return nil
	}
}

func (h *Hub) send(message *Message) {
	select {
	case h.broadcast <- message:
	case <-h.quit:
	}
}

func (h *Hub) mirrorFor(sessionID string) *mirror {
	m, ok := h.mirrors[sessionID]
	if !ok {
		m = newMirror()
		h.mirrors[sessionID] = m
	}
	return m
}

// registerClient adds a client to a session and sends it the current view
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	snapshot := &Message{
		Type:      OpSnapshot,
		SessionID: client.sessionID,
		Snapshot:  h.mirrorFor(client.sessionID).snapshot(),
	}
	if data, err := Encode(client.format, snapshot); err == nil {
		client.send <- data
	} else {
		h.logger.Error().Err(err).Msg("failed to encode snapshot")
	}

	h.logger.Debug().
		Str("session", client.sessionID).
		Int("clients", len(h.sessions[client.sessionID])).
		Msg("client registered")
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.sessions[client.sessionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			// Clean up empty sessions
			if len(clients) == 0 {
				delete(h.sessions, client.sessionID)
			}

			h.logger.Debug().
				Str("session", client.sessionID).
				Int("clients", len(clients)).
				Msg("client unregistered")
		}
	}
}

// broadcastMessage records a message in the session mirror and sends it to
// all clients in the session
func (h *Hub) broadcastMessage(message *Message) {
	if message.Type == OpSessionClosed {
		defer h.closeSession(message.SessionID)
	} else {
		h.mirrorFor(message.SessionID).apply(message)
	}

	clients, ok := h.sessions[message.SessionID]
	if !ok {
		return
	}

	encoded := make(map[string][]byte, 2)
	for client := range clients {
		data, ok := encoded[client.format]
		if !ok {
			var err error
			data, err = Encode(client.format, message)
			if err != nil {
				h.logger.Error().Err(err).Str("type", message.Type).Msg("failed to encode message")
				return
			}
			encoded[client.format] = data
		}

		select {
		case client.send <- data:
		default:
			// Client's send channel is full, close it
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) closeSession(sessionID string) {
	for client := range h.sessions[sessionID] {
		h.unregisterClient(client)
	}
	delete(h.mirrors, sessionID)
}

// readPump pumps pointer reports from the WebSocket connection to the input handler
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn().Err(err).Str("session", c.sessionID).Msg("websocket read failed")
			}
			break
		}

		msg, err := DecodeClientMessage(messageType == websocket.BinaryMessage, data)
		if err != nil {
			c.hub.logger.Debug().Err(err).Str("session", c.sessionID).Msg("ignoring client message")
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg *ClientMessage) {
	switch msg.Type {
	case ClientPointer:
		handler := c.hub.inputHandler()
		if handler == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), inputTimeout)
		defer cancel()
		if err := handler(ctx, c.sessionID, msg.X, msg.ViewportWidth); err != nil {
			c.hub.logger.Debug().Err(err).Str("session", c.sessionID).Msg("pointer report rejected")
		}
	default:
		c.hub.logger.Debug().Str("type", msg.Type).Msg("unknown client message type")
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if c.format == FormatMsgpack {
				if err := c.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
					return
				}
				continue
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sessionView implements service.SessionView on top of the hub
type sessionView struct {
	hub       *Hub
	sessionID string
}

func (v *sessionView) CreateVisual(kind string) engine.VisualHandle {
	handle := engine.VisualHandle(uuid.NewString())
	v.hub.send(&Message{Type: OpCreateVisual, SessionID: v.sessionID, Handle: handle, Kind: kind})
	return handle
}

func (v *sessionView) SetPosition(handle engine.VisualHandle, xVW, yVH float64) {
	v.hub.send(&Message{Type: OpSetPosition, SessionID: v.sessionID, Handle: handle, Position: &Point{X: xVW, Y: yVH}})
}

func (v *sessionView) ReleaseVisual(handle engine.VisualHandle) {
	v.hub.send(&Message{Type: OpReleaseVisual, SessionID: v.sessionID, Handle: handle})
}

func (v *sessionView) SetLevelVisible(level engine.Level, visible bool) {
	v.hub.send(&Message{Type: OpSetLevelVisible, SessionID: v.sessionID, Level: level, Visible: &visible})
}

func (v *sessionView) SetEntityLayerVisible(visible bool) {
	v.hub.send(&Message{Type: OpSetEntityLayerVisible, SessionID: v.sessionID, Visible: &visible})
}

func (v *sessionView) SetCurrency(value int) {
	v.hub.send(&Message{Type: OpSetCurrency, SessionID: v.sessionID, Currency: &value})
}
