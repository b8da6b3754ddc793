package signaling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoomTokenRoundTrip(t *testing.T) {
	token, err := MintRoomToken("secret", "sess-1", "publisher", time.Hour)
	assert.NoError(t, err)

	claims, err := ParseRoomToken("secret", token)
	assert.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "exam-sess-1", claims.Room)
	assert.Equal(t, "publisher", claims.Role)
}

func TestRoomTokenWrongSecret(t *testing.T) {
	token, err := MintRoomToken("secret", "sess-1", "subscriber", time.Hour)
	assert.NoError(t, err)

	_, err = ParseRoomToken("other-secret", token)
	assert.Error(t, err)
}

func TestRoomTokenExpired(t *testing.T) {
	token, err := MintRoomToken("secret", "sess-1", "subscriber", -time.Minute)
	assert.NoError(t, err)

	_, err = ParseRoomToken("secret", token)
	assert.Error(t, err)
}

func TestRoomTokenGarbage(t *testing.T) {
	_, err := ParseRoomToken("secret", "not-a-token")
	assert.Error(t, err)
}
