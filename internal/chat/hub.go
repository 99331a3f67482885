package chat

import (
	"github.com/rs/zerolog/log"
)

type subscription struct {
	client *Client
	roomID int64
}

type delivery struct {
	roomID  int64
	payload []byte
}

// Hub is the local registry of connections and their topic subscriptions.
// A single goroutine owns the maps; channels are the only way in, so the
// state is thread-safe by construction. The hub never talks to Redis or the
// database: messages reach it only through Deliver, which the bridge calls
// for every published message, including our own.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	subscribe   chan subscription
	unsubscribe chan subscription
	deliver     chan delivery

	clients map[*Client]bool
	rooms   map[int64]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		deliver:     make(chan delivery),
		clients:     make(map[*Client]bool),
		rooms:       make(map[int64]map[*Client]bool),
	}
}

// Subscribe attaches c to the room topic. Callers must have passed the access
// gate already; the hub does no authorization.
func (h *Hub) Subscribe(c *Client, roomID int64) {
	h.subscribe <- subscription{client: c, roomID: roomID}
}

func (h *Hub) Unsubscribe(c *Client, roomID int64) {
	h.unsubscribe <- subscription{client: c, roomID: roomID}
}

// Deliver fans payload out to every local subscriber of the room topic.
func (h *Hub) Deliver(roomID int64, payload []byte) {
	h.deliver <- delivery{roomID: roomID, payload: payload}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			// Connect/disconnect bookkeeping is observational only; the
			// authorization decision never lives here.
			log.Info().Int("sessions", len(h.clients)).Msg("session connected")

		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.dropClient(client)
				log.Info().Int("sessions", len(h.clients)).Msg("session disconnected")
			}

		case sub := <-h.subscribe:
			room := h.rooms[sub.roomID]
			if room == nil {
				room = make(map[*Client]bool)
				h.rooms[sub.roomID] = room
			}
			room[sub.client] = true

		case sub := <-h.unsubscribe:
			if room, ok := h.rooms[sub.roomID]; ok {
				delete(room, sub.client)
				if len(room) == 0 {
					delete(h.rooms, sub.roomID)
				}
			}

		case d := <-h.deliver:
			for client := range h.rooms[d.roomID] {
				select {
				case client.Send <- d.payload:
				default:
					// Slow consumer: drop it rather than block delivery to
					// the rest of the room.
					h.dropClient(client)
				}
			}
		}
	}
}

// dropClient removes every trace of the client. Closing a connection removes
// all of its subscriptions; there is no unsubscribe handshake. Teardown is
// signalled by cancelling the client's context rather than closing Send: the
// client's own reader may still be replying to a frame, and cancel is safe
// against that where a close is not.
func (h *Hub) dropClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for roomID, room := range h.rooms {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
	client.cancel()
}
