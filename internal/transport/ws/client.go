package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	jww "github.com/spf13/jwalterweatherman"
	"go.uber.org/ratelimit"
	"github.com/vedran77/parley/internal/service"
	"nhooyr.io/websocket"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 64 * 1024
	defaultSendBuf = 256
)

// Client represents a single WebSocket connection of an authenticated user.
type Client struct {
	hub    *Hub
	router *Router
	conn   *websocket.Conn
	userID uuid.UUID

	limiter ratelimit.Limiter

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// Set once, before done is closed.
	closeCode   websocket.StatusCode
	closeReason string
}

func NewClient(hub *Hub, router *Router, conn *websocket.Conn, userID uuid.UUID, limiter ratelimit.Limiter, sendBuf int) *Client {
	if limiter == nil {
		limiter = ratelimit.NewUnlimited()
	}
	if sendBuf <= 0 {
		sendBuf = defaultSendBuf
	}
	return &Client{
		hub:     hub,
		router:  router,
		conn:    conn,
		userID:  userID,
		limiter: limiter,
		send:    make(chan []byte, sendBuf),
		done:    make(chan struct{}),
	}
}

// Send queues data for the write pump. It never blocks: frames for a closed
// client or a full buffer are dropped.
func (c *Client) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

func (c *Client) sendEvent(evt *Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		jww.ERROR.Printf("[WS] marshal %s: %v", evt.Type, err)
		return
	}
	c.Send(data)
}

// close stops the write pump. The send channel is never closed so late
// senders cannot panic.
func (c *Client) close() {
	c.closeWith(websocket.StatusNormalClosure, "")
}

// closeWith stops the write pump, which then closes the socket with code.
func (c *Client) closeWith(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode, c.closeReason = code, reason
		close(c.done)
	})
}

// evict ends a connection that was replaced by a newer one of the same user.
func (c *Client) evict() {
	c.closeWith(websocket.StatusPolicyViolation, "replaced by a newer connection")
}

// ReadPump reads events and dispatches them in arrival order. It returns when
// the connection fails; cleanup runs before it returns.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Disconnect(context.Background(), c)
		c.close()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				jww.DEBUG.Printf("[WS] client %s closed the connection", c.userID)
			} else {
				jww.INFO.Printf("[WS] read error from %s: %v", c.userID, err)
			}
			return
		}

		c.limiter.Take()

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			jww.DEBUG.Printf("[WS] malformed frame from %s: %v", c.userID, err)
			c.router.sendError(c, malformedFrame(data), errMalformedFrame)
			continue
		}
		c.router.Dispatch(ctx, c, &event)
	}
}

var errMalformedFrame = &service.PolicyError{
	Code:    service.CodeInvalidPayload,
	Message: "Frame is not a valid event envelope",
}

// malformedFrame recovers what it can of a frame that failed to decode, so
// the error still carries the sender's id when one was readable.
func malformedFrame(data []byte) *Event {
	var partial struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(data, &partial)
	return &Event{ID: partial.ID}
}

// WritePump writes messages from the send channel to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		<-c.done
		c.conn.Close(c.closeCode, c.closeReason)
	}()

	for {
		select {
		case message := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				jww.INFO.Printf("[WS] write error to %s: %v", c.userID, err)
				c.close()
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				jww.INFO.Printf("[WS] ping error to %s: %v", c.userID, err)
				c.close()
				return
			}

		case <-c.done:
			return
		}
	}
}
