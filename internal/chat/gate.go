package chat

import (
	"context"

	"chatserver/internal/apperror"
	"chatserver/internal/auth"
)

// TokenParser is the slice of the auth provider the gate needs.
type TokenParser interface {
	Parse(tokenString string) (*auth.Claims, error)
}

// ParticipantChecker answers whether an identity currently belongs to a room.
type ParticipantChecker interface {
	IsRoomParticipant(ctx context.Context, email string, roomID int64) (bool, error)
}

// AccessGate is the security boundary of the frame protocol. It is invoked
// once per inbound frame, before routing:
//
//   - OPEN must carry a valid bearer credential or the connection never
//     completes.
//   - SUBSCRIBE re-verifies the credential and additionally checks that the
//     token subject is a current participant of the destination room.
//   - Every other kind passes through untouched. Data frames carry no
//     credential, so once a subscription is accepted the subscriber receives
//     room traffic until disconnect or unsubscribe.
//
// The gate keeps no session state; the transport owns connection and
// subscription bookkeeping.
type AccessGate struct {
	tokens TokenParser
	rooms  ParticipantChecker
}

func NewAccessGate(tokens TokenParser, rooms ParticipantChecker) *AccessGate {
	return &AccessGate{tokens: tokens, rooms: rooms}
}

// Check validates f and returns the verified claims for OPEN and SUBSCRIBE
// frames, nil claims for everything else.
func (g *AccessGate) Check(ctx context.Context, f *Frame) (*auth.Claims, error) {
	switch f.Kind {
	case FrameOpen:
		return g.verify(f)

	case FrameSubscribe:
		claims, err := g.verify(f)
		if err != nil {
			return nil, err
		}

		roomID, err := TopicRoomID(f.Destination())
		if err != nil {
			return nil, err
		}

		ok, err := g.rooms.IsRoomParticipant(ctx, claims.Email(), roomID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperror.Authorization("you do not have permission to access this room")
		}
		return claims, nil

	default:
		return nil, nil
	}
}

func (g *AccessGate) verify(f *Frame) (*auth.Claims, error) {
	token, err := f.BearerToken()
	if err != nil {
		return nil, err
	}
	return g.tokens.Parse(token)
}
