package session

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	a := New("admin", "admin")
	b := New("admin", "admin")

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "admin", a.Username)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository(time.Hour)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		s := New("staff", "user")
		require.NoError(t, repo.Set(ctx, s))

		got, err := repo.Get(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "staff", got.Username)
		assert.Equal(t, "user", got.Role)
	})

	t.Run("GetUnknown", func(t *testing.T) {
		got, err := repo.Get(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Clear", func(t *testing.T) {
		s := New("staff", "user")
		require.NoError(t, repo.Set(ctx, s))
		require.NoError(t, repo.Clear(ctx, s.ID))

		got, err := repo.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Expiry", func(t *testing.T) {
		short := NewMemoryRepository(time.Millisecond)
		s := New("staff", "user")
		require.NoError(t, short.Set(ctx, s))

		time.Sleep(5 * time.Millisecond)
		got, err := short.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestRedisRepository(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := NewRedisRepository(client, time.Hour)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		s := New("admin", "admin")
		require.NoError(t, repo.Set(ctx, s))

		got, err := repo.Get(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, s.Username, got.Username)
		assert.Equal(t, s.Role, got.Role)
	})

	t.Run("GetUnknown", func(t *testing.T) {
		got, err := repo.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Clear", func(t *testing.T) {
		s := New("admin", "admin")
		require.NoError(t, repo.Set(ctx, s))
		require.NoError(t, repo.Clear(ctx, s.ID))

		got, err := repo.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("TTL", func(t *testing.T) {
		s := New("admin", "admin")
		require.NoError(t, repo.Set(ctx, s))

		mr.FastForward(2 * time.Hour)

		got, err := repo.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

type failingRepository struct {
	err error
}

func (f *failingRepository) Get(ctx context.Context, id string) (*Session, error) {
	return nil, f.err
}

func (f *failingRepository) Set(ctx context.Context, session *Session) error {
	return f.err
}

func (f *failingRepository) Clear(ctx context.Context, id string) error {
	return f.err
}

func TestFailoverRepository(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	t.Run("PrimaryHealthy", func(t *testing.T) {
		primary := NewMemoryRepository(time.Hour)
		fallback := NewMemoryRepository(time.Hour)
		repo := NewFailoverRepository(primary, fallback, &logger)

		s := New("admin", "admin")
		require.NoError(t, repo.Set(ctx, s))

		got, err := primary.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.NotNil(t, got, "healthy primary must receive writes")
	})

	t.Run("FallbackOnPrimaryFailure", func(t *testing.T) {
		primary := &failingRepository{err: errors.New("redis down")}
		fallback := NewMemoryRepository(time.Hour)
		repo := NewFailoverRepository(primary, fallback, &logger)

		s := New("staff", "user")
		require.NoError(t, repo.Set(ctx, s))

		got, err := repo.Get(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "staff", got.Username)
	})
}
