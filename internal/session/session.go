package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is the per-connection authentication state established at login.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores active sessions. Get returns (nil, nil) for an
// unknown or expired id.
type Repository interface {
	Get(ctx context.Context, id string) (*Session, error)
	Set(ctx context.Context, session *Session) error
	Clear(ctx context.Context, id string) error
}

// New mints a session for a freshly authenticated user.
func New(username, role string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Username:  username,
		Role:      role,
		CreatedAt: time.Now(),
	}
}
