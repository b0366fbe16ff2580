package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// FailoverRepository serves sessions from the primary repository and
// falls back to the secondary when the primary errors, probing the
// primary again after a recovery interval.
type FailoverRepository struct {
	primary   Repository
	fallback  Repository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64

	recoveryInterval time.Duration
}

func NewFailoverRepository(primary, fallback Repository, logger *zerolog.Logger) *FailoverRepository {
	return &FailoverRepository{
		primary:          primary,
		fallback:         fallback,
		logger:           logger,
		recoveryInterval: time.Minute,
	}
}

func (r *FailoverRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary session repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverRepository) shouldProbe() bool {
	last := time.Unix(0, r.lastCheck.Load())
	return time.Since(last) > r.recoveryInterval
}

func (r *FailoverRepository) Get(ctx context.Context, id string) (*Session, error) {
	if !r.isDown.Load() {
		session, err := r.primary.Get(ctx, id)
		if err == nil {
			return session, nil
		}
		r.markDown(err)
	} else if r.shouldProbe() {
		session, err := r.primary.Get(ctx, id)
		if err == nil {
			r.isDown.Store(false)
			return session, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.Get(ctx, id)
}

func (r *FailoverRepository) Set(ctx context.Context, session *Session) error {
	if !r.isDown.Load() {
		err := r.primary.Set(ctx, session)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.Set(ctx, session)
}

func (r *FailoverRepository) Clear(ctx context.Context, id string) error {
	if !r.isDown.Load() {
		err := r.primary.Clear(ctx, id)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.Clear(ctx, id)
}
