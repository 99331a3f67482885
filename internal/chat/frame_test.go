package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		kind    FrameKind
	}{
		{
			name: "open frame",
			data: `{"kind":"OPEN","headers":{"Authorization":"Bearer abc"}}`,
			kind: FrameOpen,
		},
		{
			name: "send frame with body",
			data: `{"kind":"SEND","headers":{"destination":"/publish/7"},"body":{"message":"hi","senderEmail":"a@b.c"}}`,
			kind: FrameSend,
		},
		{
			name:    "not json",
			data:    `SUBSCRIBE /topic/1`,
			wantErr: true,
		},
		{
			name:    "missing kind",
			data:    `{"headers":{}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFrame([]byte(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, f.Kind)
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
		wantErr bool
	}{
		{
			name:    "valid bearer",
			headers: map[string]string{HeaderAuthorization: "Bearer tok-123"},
			want:    "tok-123",
		},
		{
			name:    "lowercase scheme",
			headers: map[string]string{HeaderAuthorization: "bearer tok-123"},
			want:    "tok-123",
		},
		{
			name:    "missing header",
			headers: nil,
			wantErr: true,
		},
		{
			name:    "wrong scheme",
			headers: map[string]string{HeaderAuthorization: "Basic dXNlcg=="},
			wantErr: true,
		},
		{
			name:    "no token part",
			headers: map[string]string{HeaderAuthorization: "Bearer"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Frame{Kind: FrameOpen, Headers: tt.headers}
			token, err := f.BearerToken()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestDestinationParsing(t *testing.T) {
	roomID, err := TopicRoomID("/topic/42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), roomID)

	roomID, err = PublishRoomID("/publish/7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), roomID)

	for _, dest := range []string{"", "/topic", "/topic/", "/topic/abc", "/publish/42", "topic/42", "/topic/42/extra"} {
		_, err := TopicRoomID(dest)
		assert.Error(t, err, "destination %q", dest)
	}
	// A topic destination is not a publish destination.
	_, err = PublishRoomID("/topic/42")
	assert.Error(t, err)
}
