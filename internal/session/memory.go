package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	session   *Session
	expiresAt time.Time
}

// MemoryRepository keeps sessions in process memory. It is the fallback
// when redis is absent or down; sessions then survive only as long as the
// process.
type MemoryRepository struct {
	sessions sync.Map
	ttl      time.Duration
}

func NewMemoryRepository(ttl time.Duration) *MemoryRepository {
	return &MemoryRepository{ttl: ttl}
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*Session, error) {
	val, ok := r.sessions.Load(id)
	if !ok {
		return nil, nil
	}
	entry := val.(memoryEntry)
	if time.Now().After(entry.expiresAt) {
		r.sessions.Delete(id)
		return nil, nil
	}
	return entry.session, nil
}

func (r *MemoryRepository) Set(ctx context.Context, session *Session) error {
	r.sessions.Store(session.ID, memoryEntry{
		session:   session,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryRepository) Clear(ctx context.Context, id string) error {
	r.sessions.Delete(id)
	return nil
}
