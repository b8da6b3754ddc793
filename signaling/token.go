package signaling

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoomClaims authorizes one peer to join one signaling room for the lifetime
// of a session. Tokens are minted at session start and verified on join_room.
type RoomClaims struct {
	SessionID string `json:"session_id"`
	Room      string `json:"room"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// MintRoomToken issues a signed join token for the session's room.
func MintRoomToken(secret, sessionID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := RoomClaims{
		SessionID: sessionID,
		Room:      RoomID(sessionID),
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseRoomToken verifies a join token and returns its claims.
func ParseRoomToken(secret, tokenString string) (*RoomClaims, error) {
	claims := &RoomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid room token")
	}
	return claims, nil
}
