package chat

import "time"

type Room struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsGroup   bool      `json:"is_group"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"room_id"`
	MemberID  int64     `json:"member_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomSummary is one row of "my rooms": the room plus the caller's unread count.
type RoomSummary struct {
	RoomID      int64  `json:"roomId"`
	RoomName    string `json:"roomName"`
	IsGroup     bool   `json:"isGroupChat"`
	UnreadCount int64  `json:"unReadCount"`
}

// InboundMessage is the SEND frame body a client produces.
type InboundMessage struct {
	Message     string `json:"message"`
	SenderEmail string `json:"senderEmail"`
}

// ChatMessage is the wire shape delivered to subscribers and published on the
// shared Redis channel. RoomID must always be populated: the receiving
// instance routes on it.
type ChatMessage struct {
	Message     string    `json:"message"`
	SenderEmail string    `json:"senderEmail"`
	CreatedTime time.Time `json:"createdTime"`
	RoomID      int64     `json:"roomId"`
}
