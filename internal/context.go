package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextSessionKey ctxKey = "session"

// SessionInfo is the authenticated identity carried through request
// contexts: the session token plus a snapshot of who holds it.
type SessionInfo struct {
	Token    string
	UserID   int64
	Username string
	Role     string
}

func SessionFromContext(ctx context.Context) (*SessionInfo, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(ContextSessionKey).(*SessionInfo)
	return s, ok
}

func ContextWithSession(ctx context.Context, s *SessionInfo) context.Context {
	return context.WithValue(ctx, ContextSessionKey, s)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
