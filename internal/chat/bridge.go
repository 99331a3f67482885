package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// BroadcastChannel is the single shared Redis channel all instances publish
// to. Routing happens on the roomId inside the payload, so per-channel publish
// order bounds delivery order globally.
const BroadcastChannel = "chat"

// Publisher is the sending half of the bridge, as seen by the frame loop.
type Publisher interface {
	Publish(ctx context.Context, msg *ChatMessage) error
}

// Bridge relays messages between instances over Redis pub/sub. A message
// accepted on any instance is published to the shared channel; every
// instance's listener (the publisher's included) re-delivers it to local
// subscribers of the target room topic. Local delivery always takes this
// two-hop path so every subscriber, wherever attached, sees one consistent
// ordering and format.
type Bridge struct {
	rdb *redis.Client
	hub *Hub
}

func NewBridge(rdb *redis.Client, hub *Hub) *Bridge {
	return &Bridge{rdb: rdb, hub: hub}
}

// Publish sends msg to the shared channel. On failure the message is already
// durably persisted, so callers log loudly and skip live delivery rather than
// roll anything back.
func (b *Bridge) Publish(ctx context.Context, msg *ChatMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, BroadcastChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Listen consumes the shared channel until ctx is done. Run one per instance.
func (b *Bridge) Listen(ctx context.Context) {
	pubsub := b.rdb.Subscribe(ctx, BroadcastChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := b.Relay([]byte(msg.Payload)); err != nil {
				log.Error().Err(err).Msg("dropping undeliverable broadcast payload")
			}
		}
	}
}

// Relay decodes one published payload and hands it to the local hub as a
// MESSAGE frame addressed to the room topic.
func (b *Bridge) Relay(payload []byte) error {
	var msg ChatMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decode broadcast payload: %w", err)
	}
	if msg.RoomID == 0 {
		return fmt.Errorf("broadcast payload has no room id")
	}

	frame := &Frame{
		Kind:    FrameMessage,
		Headers: map[string]string{HeaderDestination: topicDestination(msg.RoomID)},
		Body:    json.RawMessage(payload),
	}
	b.hub.Deliver(msg.RoomID, frame.Marshal())
	return nil
}
