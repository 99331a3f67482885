package chat

import (
	"context"

	"chatserver/internal/apperror"
	"chatserver/internal/member"
)

// Store is what the service needs from room/message/read-status persistence.
// The SQL repository implements it; tests use an in-memory fake.
type Store interface {
	GetRoom(ctx context.Context, roomID int64) (*Room, error)
	CreateRoom(ctx context.Context, name string, isGroup bool, memberIDs ...int64) (*Room, error)
	DeleteRoom(ctx context.Context, roomID int64) error
	ListGroupRooms(ctx context.Context) ([]Room, error)
	RoomSummaries(ctx context.Context, memberID int64) ([]RoomSummary, error)

	AddParticipant(ctx context.Context, roomID, memberID int64) error
	RemoveParticipant(ctx context.Context, roomID, memberID int64) (remaining int64, err error)
	IsParticipant(ctx context.Context, roomID, memberID int64) (bool, error)
	FindOrCreatePrivateRoom(ctx context.Context, name string, a, b int64) (int64, error)

	SaveMessage(ctx context.Context, roomID, senderID int64, content string) (*Message, error)
	MarkRead(ctx context.Context, roomID, memberID int64) error
	UnreadCount(ctx context.Context, roomID, memberID int64) (int64, error)
	MessagesWithSenders(ctx context.Context, roomID int64) ([]ChatMessage, error)
}

// MemberDirectory resolves identities; the member repository implements it.
type MemberDirectory interface {
	GetByEmail(ctx context.Context, email string) (*member.Member, error)
	GetByID(ctx context.Context, id int64) (*member.Member, error)
}

// Service owns the room directory and the message write path.
type Service struct {
	store   Store
	members MemberDirectory
}

func NewService(store Store, members MemberDirectory) *Service {
	return &Service{store: store, members: members}
}

// SendMessage persists the message together with its per-participant read
// rows (sender read, everyone else unread) and returns the payload to hand to
// the broadcast bridge. Publication is the caller's job so that a failed
// publish never rolls back a committed message.
func (s *Service) SendMessage(ctx context.Context, roomID int64, in *InboundMessage) (*ChatMessage, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	sender, err := s.members.GetByEmail(ctx, in.SenderEmail)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.IsParticipant(ctx, room.ID, sender.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.InvalidState("sender is not a participant of this chat room")
	}

	msg, err := s.store.SaveMessage(ctx, room.ID, sender.ID, in.Message)
	if err != nil {
		return nil, err
	}

	return &ChatMessage{
		Message:     msg.Content,
		SenderEmail: sender.Email,
		CreatedTime: msg.CreatedAt,
		RoomID:      room.ID,
	}, nil
}

// MarkRoomRead flips every unread row for (room, member) to read. Idempotent.
// This is the only read-confirmation mechanism: clients call it when leaving
// the room screen or disconnecting, not per delivered message, so a client
// that never disconnects accumulates unread rows until it does.
func (s *Service) MarkRoomRead(ctx context.Context, roomID int64, email string) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	m, err := s.members.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.store.MarkRead(ctx, room.ID, m.ID)
}

func (s *Service) UnreadCount(ctx context.Context, roomID int64, email string) (int64, error) {
	m, err := s.members.GetByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	return s.store.UnreadCount(ctx, roomID, m.ID)
}

func (s *Service) CreateGroupRoom(ctx context.Context, name, creatorEmail string) (*Room, error) {
	creator, err := s.members.GetByEmail(ctx, creatorEmail)
	if err != nil {
		return nil, err
	}
	return s.store.CreateRoom(ctx, name, true, creator.ID)
}

func (s *Service) ListGroupRooms(ctx context.Context) ([]Room, error) {
	return s.store.ListGroupRooms(ctx)
}

func (s *Service) JoinGroupRoom(ctx context.Context, roomID int64, email string) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsGroup {
		return apperror.InvalidState("chat room is not a group type")
	}

	m, err := s.members.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	// Joining twice is a no-op.
	return s.store.AddParticipant(ctx, room.ID, m.ID)
}

// LeaveGroupRoom removes the caller's participant row; messages and read rows
// stay. When the last participant leaves, the room and everything it owns is
// deleted.
func (s *Service) LeaveGroupRoom(ctx context.Context, roomID int64, email string) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsGroup {
		return apperror.InvalidState("chat room is not a group type")
	}

	m, err := s.members.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	remaining, err := s.store.RemoveParticipant(ctx, room.ID, m.ID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		return s.store.DeleteRoom(ctx, room.ID)
	}
	return nil
}

// GetOrCreatePrivateRoom returns the private room for {caller, partner},
// creating it with exactly those two participants if it does not exist.
func (s *Service) GetOrCreatePrivateRoom(ctx context.Context, callerEmail string, partnerID int64) (int64, error) {
	caller, err := s.members.GetByEmail(ctx, callerEmail)
	if err != nil {
		return 0, err
	}
	partner, err := s.members.GetByID(ctx, partnerID)
	if err != nil {
		return 0, err
	}
	if caller.ID == partner.ID {
		return 0, apperror.InvalidState("cannot open a private room with yourself")
	}

	name := caller.Name + " & " + partner.Name
	return s.store.FindOrCreatePrivateRoom(ctx, name, caller.ID, partner.ID)
}

// History returns the room's messages in chronological order. Participants only.
func (s *Service) History(ctx context.Context, roomID int64, email string) ([]ChatMessage, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	m, err := s.members.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.IsParticipant(ctx, room.ID, m.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Authorization("you are not a participant of this chat room")
	}

	return s.store.MessagesWithSenders(ctx, room.ID)
}

func (s *Service) MyRooms(ctx context.Context, email string) ([]RoomSummary, error) {
	m, err := s.members.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.store.RoomSummaries(ctx, m.ID)
}

// IsRoomParticipant is the check the access gate runs on SUBSCRIBE frames.
func (s *Service) IsRoomParticipant(ctx context.Context, email string, roomID int64) (bool, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	m, err := s.members.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return s.store.IsParticipant(ctx, room.ID, m.ID)
}
