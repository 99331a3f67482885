package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func startHub() *Hub {
	hub := NewHub()
	go hub.Run()
	return hub
}

func newHubClient(buffer int) *Client {
	c := NewClient(nil, nil, nil, nil, nil)
	c.Send = make(chan []byte, buffer)
	return c
}

func recvPayload(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case payload := <-c.Send:
		return payload
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
		return nil
	}
}

func assertDropped(t *testing.T, c *Client) {
	t.Helper()
	select {
	case <-c.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("client not torn down")
	}
}

func assertNoPayload(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.Send:
		t.Fatalf("unexpected delivery: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDeliversToRoomSubscribersOnly(t *testing.T) {
	hub := startHub()

	inRoom := newHubClient(8)
	alsoInRoom := newHubClient(8)
	otherRoom := newHubClient(8)
	connectedOnly := newHubClient(8)

	hub.Register <- inRoom
	hub.Register <- alsoInRoom
	hub.Register <- otherRoom
	hub.Register <- connectedOnly

	hub.Subscribe(inRoom, 7)
	hub.Subscribe(alsoInRoom, 7)
	hub.Subscribe(otherRoom, 8)

	hub.Deliver(7, []byte("room seven"))

	assert.Equal(t, "room seven", string(recvPayload(t, inRoom)))
	assert.Equal(t, "room seven", string(recvPayload(t, alsoInRoom)))
	assertNoPayload(t, otherRoom)
	assertNoPayload(t, connectedOnly)
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := startHub()

	c := newHubClient(8)
	hub.Register <- c
	hub.Subscribe(c, 7)

	hub.Deliver(7, []byte("first"))
	assert.Equal(t, "first", string(recvPayload(t, c)))

	hub.Unsubscribe(c, 7)
	hub.Deliver(7, []byte("second"))
	assertNoPayload(t, c)
}

func TestHubUnregisterRemovesAllSubscriptions(t *testing.T) {
	hub := startHub()

	leaving := newHubClient(8)
	staying := newHubClient(8)
	hub.Register <- leaving
	hub.Register <- staying
	hub.Subscribe(leaving, 1)
	hub.Subscribe(leaving, 2)
	hub.Subscribe(staying, 1)

	hub.Unregister <- leaving

	// The leaver's context is cancelled, no unsubscribe handshake needed.
	assertDropped(t, leaving)

	hub.Deliver(1, []byte("still flowing"))
	assert.Equal(t, "still flowing", string(recvPayload(t, staying)))
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := startHub()

	slow := newHubClient(0) // nothing draining, zero buffer
	healthy := newHubClient(8)
	hub.Register <- slow
	hub.Register <- healthy
	hub.Subscribe(slow, 7)
	hub.Subscribe(healthy, 7)

	hub.Deliver(7, []byte("payload"))

	// Delivery to the rest of the room is unaffected.
	assert.Equal(t, "payload", string(recvPayload(t, healthy)))

	assertDropped(t, slow)
}

func TestReplyAfterSlowDropDoesNotPanic(t *testing.T) {
	hub := startHub()

	c := newHubClient(1)
	hub.Register <- c
	hub.Subscribe(c, 7)

	// Fill the outbound queue so the next delivery trips the slow-consumer
	// drop while the reader side is still alive.
	c.Send <- []byte("stuck")
	hub.Deliver(7, []byte("overflow"))
	assertDropped(t, c)

	// The reader may still be answering a frame it already accepted; the
	// reply is discarded, never sent into torn-down plumbing.
	assert.NotPanics(t, func() {
		c.sendFrame(&Frame{Kind: FrameError})
	})
}
