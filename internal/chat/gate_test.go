package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatserver/internal/apperror"
	"chatserver/internal/auth"
)

type fakeChecker struct {
	participants map[string][]int64
}

func (f *fakeChecker) IsRoomParticipant(_ context.Context, email string, roomID int64) (bool, error) {
	for _, id := range f.participants[email] {
		if id == roomID {
			return true, nil
		}
	}
	return false, nil
}

func newTestGate() (*AccessGate, *auth.TokenProvider) {
	tokens := auth.NewTokenProvider("gate-test-secret", 60)
	checker := &fakeChecker{participants: map[string][]int64{
		"alice@test.local": {1, 2},
		"bob@test.local":   {1},
	}}
	return NewAccessGate(tokens, checker), tokens
}

func bearerHeaders(token string) map[string]string {
	return map[string]string{HeaderAuthorization: "Bearer " + token}
}

func TestGateOpen(t *testing.T) {
	gate, tokens := newTestGate()
	expired := auth.NewTokenProvider("gate-test-secret", -60)

	validToken, err := tokens.CreateToken("alice@test.local", "USER")
	require.NoError(t, err)
	expiredToken, err := expired.CreateToken("alice@test.local", "USER")
	require.NoError(t, err)

	tests := []struct {
		name     string
		headers  map[string]string
		wantKind apperror.Kind
	}{
		{"valid credential", bearerHeaders(validToken), 0},
		{"missing credential", nil, apperror.KindAuthentication},
		{"malformed credential", bearerHeaders("garbage"), apperror.KindAuthentication},
		{"expired credential", bearerHeaders(expiredToken), apperror.KindAuthentication},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := gate.Check(context.Background(), &Frame{Kind: FrameOpen, Headers: tt.headers})
			if tt.wantKind != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperror.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice@test.local", claims.Email())
		})
	}
}

func TestGateSubscribe(t *testing.T) {
	gate, tokens := newTestGate()

	aliceToken, err := tokens.CreateToken("alice@test.local", "USER")
	require.NoError(t, err)
	bobToken, err := tokens.CreateToken("bob@test.local", "USER")
	require.NoError(t, err)

	subscribe := func(token, destination string) *Frame {
		headers := bearerHeaders(token)
		headers[HeaderDestination] = destination
		return &Frame{Kind: FrameSubscribe, Headers: headers}
	}

	// Participant is allowed in.
	claims, err := gate.Check(context.Background(), subscribe(aliceToken, "/topic/2"))
	require.NoError(t, err)
	assert.Equal(t, "alice@test.local", claims.Email())

	// Valid credential, but not a participant of room 2.
	_, err = gate.Check(context.Background(), subscribe(bobToken, "/topic/2"))
	require.Error(t, err)
	assert.Equal(t, apperror.KindAuthorization, apperror.KindOf(err))

	// Credential is re-verified on subscribe, independent of any prior OPEN.
	_, err = gate.Check(context.Background(), subscribe("garbage", "/topic/1"))
	require.Error(t, err)
	assert.Equal(t, apperror.KindAuthentication, apperror.KindOf(err))

	// Bad destination never reaches the participant check.
	_, err = gate.Check(context.Background(), subscribe(aliceToken, "/publish/1"))
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
}

func TestGatePassesDataFramesUnchecked(t *testing.T) {
	gate, _ := newTestGate()

	// SEND and the rest carry no credential; the gate waves them through.
	for _, kind := range []FrameKind{FrameSend, FrameUnsubscribe, FrameClose} {
		claims, err := gate.Check(context.Background(), &Frame{Kind: kind})
		require.NoError(t, err, "kind %s", kind)
		assert.Nil(t, claims)
	}
}
