package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatserver/internal/apperror"
)

func TestTokenRoundTrip(t *testing.T) {
	p := NewTokenProvider("test-secret", 60)

	token, err := p.CreateToken("alice@test.local", "USER")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := p.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@test.local", claims.Email())
	assert.Equal(t, "USER", claims.Role)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	p := NewTokenProvider("test-secret", -60)

	token, err := p.CreateToken("alice@test.local", "USER")
	require.NoError(t, err)

	_, err = p.Parse(token)
	require.Error(t, err)
	assert.Equal(t, apperror.KindAuthentication, apperror.KindOf(err))
}

func TestParseRejectsWrongKey(t *testing.T) {
	minted := NewTokenProvider("secret-one", 60)
	verifier := NewTokenProvider("secret-two", 60)

	token, err := minted.CreateToken("alice@test.local", "USER")
	require.NoError(t, err)

	_, err = verifier.Parse(token)
	require.Error(t, err)
	assert.Equal(t, apperror.KindAuthentication, apperror.KindOf(err))
}

func TestParseRejectsGarbage(t *testing.T) {
	p := NewTokenProvider("test-secret", 60)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, err := p.Parse(token)
		assert.Error(t, err, "token %q", token)
	}
}
