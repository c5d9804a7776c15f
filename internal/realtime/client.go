package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yukikurage/noel-en-famille/internal/services"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	maxFrameBytes     = 4096
	messageBufferSize = 16
)

// Frame is the JSON envelope exchanged with browsers.
type Frame struct {
	Type    string      `json:"type"`
	EventID uint64      `json:"eventId,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// clientFrame is what browsers send: join-event and leave-event.
type clientFrame struct {
	Type    string `json:"type"`
	EventID uint64 `json:"eventId"`
}

// client is one websocket connection. rooms is guarded by the hub mutex.
type client struct {
	conn     *websocket.Conn
	actor    services.Actor
	sendCh   chan []byte
	doneCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	rooms    map[uint64]struct{}
}

func newClient(conn *websocket.Conn, actor services.Actor) *client {
	c := &client{
		conn:   conn,
		actor:  actor,
		sendCh: make(chan []byte, messageBufferSize),
		doneCh: make(chan struct{}),
		rooms:  make(map[uint64]struct{}),
	}
	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongDeadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongDeadline))
	})
	c.wg.Add(1)
	go c.writeLoop()
	return c
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.wg.Done()

	for {
		select {
		case msg := <-c.sendCh:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-c.doneCh:
			return
		}
	}
}

// enqueue hands a frame to the writer without blocking. It reports false when
// the buffer is full.
func (c *client) enqueue(data []byte) bool {
	select {
	case c.sendCh <- data:
		return true
	default:
		return false
	}
}

func (c *client) sendFrame(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *client) stop() {
	c.stopOnce.Do(func() {
		close(c.doneCh)
		_ = c.conn.Close()
	})
	c.wg.Wait()
}
