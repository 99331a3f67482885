package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"chatserver/internal/apperror"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is the middleman between one websocket connection and the hub. Each
// connection gets a reader and a writer goroutine; frames are handled
// sequentially per connection, so one slow credential check or DB write never
// blocks another connection's frames.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	gate  *AccessGate
	chats *Service
	relay Publisher

	// Send is the buffered outbound queue drained by WritePump. It is never
	// closed; teardown is signalled through ctx instead, so a reply racing a
	// hub-side drop lands in the buffer or is discarded, never panics.
	Send chan []byte

	// ctx spans the connection's lifetime. Either pump cancels it on exit,
	// and the hub cancels it when it drops the client. Frame handling runs
	// under it, so in-flight storage and publish calls stop with the socket.
	ctx    context.Context
	cancel context.CancelFunc

	// Set once the OPEN frame passes the gate.
	email  string
	opened bool
}

func NewClient(hub *Hub, conn *websocket.Conn, gate *AccessGate, chats *Service, relay Publisher) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:    hub,
		conn:   conn,
		gate:   gate,
		chats:  chats,
		relay:  relay,
		Send:   make(chan []byte, 256),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ReadPump pumps frames from the websocket through the gate and into the
// application. Closing the connection unregisters the client, which removes
// all of its topic subscriptions; no other cleanup handshake exists.
func (c *Client) ReadPump() {
	defer func() {
		c.cancel()
		c.hub.Unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Msg("websocket read")
			}
			break
		}
		if !c.HandleFrame(c.ctx, data) {
			break
		}
	}
}

// HandleFrame processes one inbound frame. It reports false when the
// connection must terminate: a failed OPEN, a frame before OPEN, or CLOSE.
func (c *Client) HandleFrame(ctx context.Context, data []byte) bool {
	frame, err := ParseFrame(data)
	if err != nil {
		c.sendFrame(errorFrame(err))
		return c.opened
	}

	// The gate sees every frame before it is routed anywhere.
	claims, err := c.gate.Check(ctx, frame)
	if err != nil {
		c.sendFrame(errorFrame(err))
		// A rejected OPEN never completes the connection. A rejected
		// SUBSCRIBE aborts only the subscription attempt.
		return frame.Kind != FrameOpen && c.opened
	}

	switch frame.Kind {
	case FrameOpen:
		c.email = claims.Email()
		c.opened = true
		c.sendFrame(&Frame{Kind: FrameOpened})
		return true

	case FrameClose:
		return false
	}

	if !c.opened {
		c.sendFrame(errorFrame(apperror.Authentication("connection not opened")))
		return false
	}

	switch frame.Kind {
	case FrameSubscribe:
		// Destination already validated by the gate.
		roomID, err := TopicRoomID(frame.Destination())
		if err != nil {
			c.sendFrame(errorFrame(err))
			return true
		}
		c.hub.Subscribe(c, roomID)

	case FrameUnsubscribe:
		roomID, err := TopicRoomID(frame.Destination())
		if err != nil {
			c.sendFrame(errorFrame(err))
			return true
		}
		c.hub.Unsubscribe(c, roomID)

	case FrameSend:
		c.handleSend(ctx, frame)

	default:
		c.sendFrame(errorFrame(apperror.InvalidState("unsupported frame kind: " + string(frame.Kind))))
	}
	return true
}

func (c *Client) handleSend(ctx context.Context, frame *Frame) {
	roomID, err := PublishRoomID(frame.Destination())
	if err != nil {
		c.sendFrame(errorFrame(err))
		return
	}

	var in InboundMessage
	if err := json.Unmarshal(frame.Body, &in); err != nil {
		c.sendFrame(errorFrame(apperror.InvalidState("malformed message body")))
		return
	}

	// Persist first: the message and its read-status rows commit as one unit
	// before anything is published.
	msg, err := c.chats.SendMessage(ctx, roomID, &in)
	if err != nil {
		c.sendFrame(errorFrame(err))
		return
	}

	// Publish failure does not roll back persistence; live delivery for this
	// message is simply not attempted on any instance.
	if err := c.relay.Publish(ctx, msg); err != nil {
		log.Error().Err(err).Int64("room_id", roomID).Str("email", c.email).
			Msg("broadcast publish failed, message persisted but not delivered")
		c.sendFrame(errorFrame(err))
	}
}

func (c *Client) sendFrame(f *Frame) {
	select {
	case <-c.ctx.Done():
	case c.Send <- f.Marshal():
	default:
	}
}

// WritePump pumps queued payloads to the websocket and keeps the connection
// alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.cancel()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case payload := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
