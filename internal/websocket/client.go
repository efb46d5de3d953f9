package websocket

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"chat-relay/internal/models"
	"chat-relay/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client is one live transport session for an authenticated identity. It
// satisfies presence.Connection and rooms.Subscriber.
type Client struct {
	gateway   *Gateway
	conn      *websocket.Conn
	send      chan []byte
	userID    int
	username  string
	sessionID string

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(gateway *Gateway, conn *websocket.Conn, user *models.User) (*Client, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	return &Client{
		gateway:   gateway,
		conn:      conn,
		send:      make(chan []byte, gateway.cfg.SendBufferSize),
		userID:    user.ID,
		username:  user.Username,
		sessionID: sessionID,
		done:      make(chan struct{}),
	}, nil
}

func (c *Client) ID() string       { return c.sessionID }
func (c *Client) UserID() int      { return c.userID }
func (c *Client) Username() string { return c.username }

// Enqueue hands payload to the write pump without blocking. A full queue
// drops the payload for this connection only; the client catches up from
// history on its next fetch.
func (c *Client) Enqueue(payload []byte) bool {
	if payload == nil {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *Client) ReadPump() {
	defer func() {
		c.gateway.HandleDisconnect(c)
		c.Close()
	}()

	cfg := c.gateway.cfg
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error: %v", err)
			}
			return
		}
		c.gateway.router.Dispatch(c, raw)
	}
}

func (c *Client) WritePump() {
	cfg := c.gateway.cfg
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.send:
			if msg == nil {
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("write error for session %s: %v", c.sessionID, err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func generateSessionID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", bytes), nil
}
