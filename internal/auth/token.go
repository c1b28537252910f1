package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/clinical-records/internal"
)

// Claims bind a bearer token to a server-side session entry. The token
// is transport convenience only: validation is always authoritative on
// the in-memory session store, so revocation and idle expiry hold even
// for a structurally valid token.
type Claims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

type SessionTokenCodec struct {
	Secret []byte
	// TTL bounds the token itself; the session's idle timeout is enforced
	// separately and is usually the tighter limit.
	TTL time.Duration
}

func NewSessionTokenCodec(secret string, ttl time.Duration) *SessionTokenCodec {
	return &SessionTokenCodec{
		Secret: []byte(secret),
		TTL:    ttl,
	}
}

func (c *SessionTokenCodec) Encode(sessionID string, username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.Secret)
}

func (c *SessionTokenCodec) Decode(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrSessionExpired
		}
		return nil, internal.ErrSessionExpired.WithCause(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, internal.ErrSessionExpired
	}
	return claims, nil
}
