package speech

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"peerprep/interview/internal/models"
)

const writeWait = 10 * time.Second

var errNoConn = errors.New("speech: no connection")

// Client writes frames to one browser connection.
type Client struct {
	Conn *websocket.Conn
	mu   sync.Mutex
	hook func(models.WSFrame)
}

func NewClient(conn *websocket.Conn) *Client { return &Client{Conn: conn} }

// SetSendHook replaces the default WebSocket sender (used in tests).
func (c *Client) SetSendHook(fn func(models.WSFrame)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

func (c *Client) Send(frame models.WSFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hook != nil {
		c.hook(frame)
		return nil
	}
	if c.Conn == nil {
		return errNoConn
	}
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteJSON(frame)
}
