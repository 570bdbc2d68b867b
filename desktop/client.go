package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"desktop/scene"
)

// Client talks to one game session: REST for session setup, a msgpack
// WebSocket for view commands and pointer reports
type Client struct {
	baseURL   string
	sessionID string

	mu    sync.Mutex
	scene *scene.Scene
	err   error

	connMu sync.Mutex
	conn   *websocket.Conn
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		scene:   scene.New(),
	}
}

// CreateSession starts a new session on the server. An empty configID uses
// the server default.
func (c *Client) CreateSession(configID string) (string, error) {
	payload, err := json.Marshal(map[string]string{"config_id": configID})
	if err != nil {
		return "", err
	}

	resp, err := http.Post(c.baseURL+"/api/sessions", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create session: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse session response: %v (body: %s)", err, string(body))
	}

	log.Printf("Created new session: %s", result.ID)
	return result.ID, nil
}

// wsURL returns the WebSocket URL of a session with msgpack framing
func (c *Client) wsURL(sessionID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	q := u.Query()
	q.Set("session", sessionID)
	q.Set("format", "msgpack")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect attaches to a session and starts applying its view commands
func (c *Client) Connect(sessionID string) error {
	wsURL, err := c.wsURL(sessionID)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	c.sessionID = sessionID

	log.Printf("WebSocket connected for session %s", sessionID)
	go c.listen(conn)
	return nil
}

func (c *Client) listen(conn *websocket.Conn) {
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("WebSocket read error for %s: %v", c.sessionID, err)
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}

		var msg scene.Message
		if err := msgpack.Unmarshal(data, &msg); err != nil {
			log.Printf("WebSocket decode error: %v", err)
			continue
		}

		c.mu.Lock()
		c.scene.Apply(&msg)
		c.mu.Unlock()
	}
}

// SendPointer reports the cursor x in a window width pixels wide
func (c *Client) SendPointer(x, width float64) error {
	data, err := msgpack.Marshal(scene.NewPointer(x, width))
	if err != nil {
		return err
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Reset asks the server to send the session back to the meadow
func (c *Client) Reset() error {
	resp, err := http.Post(fmt.Sprintf("%s/api/sessions/%s/reset", c.baseURL, url.PathEscape(c.sessionID)), "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reset: %s", resp.Status)
	}
	return nil
}

// View calls fn with the scene locked
func (c *Client) View(fn func(s *scene.Scene, err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.scene, c.err)
}

// Close drops the WebSocket connection
func (c *Client) Close() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
