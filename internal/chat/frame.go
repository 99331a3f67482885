package chat

import (
	"encoding/json"
	"strconv"
	"strings"

	"chatserver/internal/apperror"
)

// The connection speaks a small framed protocol over the websocket. Clients
// send OPEN first (with a bearer credential), then SUBSCRIBE/UNSUBSCRIBE/SEND
// as they please, and CLOSE when done. The server answers with OPENED, MESSAGE
// and ERROR frames. Credentials travel only on OPEN and SUBSCRIBE; data frames
// carry none, so all authorization happens at those two moments.
type FrameKind string

const (
	FrameOpen        FrameKind = "OPEN"
	FrameSubscribe   FrameKind = "SUBSCRIBE"
	FrameUnsubscribe FrameKind = "UNSUBSCRIBE"
	FrameSend        FrameKind = "SEND"
	FrameClose       FrameKind = "CLOSE"

	FrameOpened  FrameKind = "OPENED"
	FrameMessage FrameKind = "MESSAGE"
	FrameError   FrameKind = "ERROR"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderDestination   = "destination"
)

type Frame struct {
	Kind    FrameKind         `json:"kind"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

func ParseFrame(data []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, apperror.InvalidState("malformed frame")
	}
	if f.Kind == "" {
		return nil, apperror.InvalidState("frame kind missing")
	}
	return f, nil
}

func (f *Frame) Marshal() []byte {
	data, _ := json.Marshal(f)
	return data
}

// BearerToken extracts the credential from the Authorization header.
func (f *Frame) BearerToken() (string, error) {
	raw := f.Headers[HeaderAuthorization]
	if raw == "" {
		return "", apperror.Authentication("missing Authorization header")
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperror.Authentication("malformed Authorization header")
	}
	return parts[1], nil
}

func (f *Frame) Destination() string {
	return f.Headers[HeaderDestination]
}

// TopicRoomID parses a subscription destination of the form /topic/{roomId}.
func TopicRoomID(destination string) (int64, error) {
	return destinationRoomID(destination, "topic")
}

// PublishRoomID parses a send destination of the form /publish/{roomId}.
func PublishRoomID(destination string) (int64, error) {
	return destinationRoomID(destination, "publish")
}

func destinationRoomID(destination, prefix string) (int64, error) {
	parts := strings.Split(destination, "/")
	if len(parts) != 3 || parts[0] != "" || parts[1] != prefix {
		return 0, apperror.InvalidState("invalid destination: " + destination)
	}
	roomID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, apperror.InvalidState("invalid room id in destination: " + destination)
	}
	return roomID, nil
}

func topicDestination(roomID int64) string {
	return "/topic/" + strconv.FormatInt(roomID, 10)
}

func errorFrame(err error) *Frame {
	body, _ := json.Marshal(map[string]string{"message": err.Error()})
	return &Frame{Kind: FrameError, Body: body}
}
