package backup

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	mu       sync.Mutex
	object   *RemoteObject
	fetchErr error
	pushErr  error
	fetches  int
	pushes   int
	lastPrev string
}

func (f *fakeRemote) Fetch(ctx context.Context) (*RemoteObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.object == nil {
		return nil, ErrObjectNotFound
	}
	return f.object, nil
}

func (f *fakeRemote) Push(ctx context.Context, content []byte, prevRevision string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes++
	f.lastPrev = prevRevision
	if f.pushErr != nil {
		return "", f.pushErr
	}
	f.object = &RemoteObject{Content: content, Revision: "rev-new"}
	return "rev-new", nil
}

func (f *fakeRemote) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushes
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func writeLocalFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bookings.db")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTriggerDebounceCollapsesBurst(t *testing.T) {
	remote := &fakeRemote{}
	path := writeLocalFile(t, "not a real sqlite file")
	s := NewSynchronizer(path, remote, time.Minute, testLogger())

	// Burst of mutations inside one window.
	s.Trigger()
	s.Trigger()
	s.Trigger()
	s.Wait()

	assert.Equal(t, 1, remote.pushCount(), "burst must collapse into one push")
}

func TestTriggerPushesAgainAfterWindow(t *testing.T) {
	remote := &fakeRemote{}
	path := writeLocalFile(t, "payload")
	s := NewSynchronizer(path, remote, 10*time.Millisecond, testLogger())

	s.Trigger()
	s.Wait()
	time.Sleep(20 * time.Millisecond)
	s.Trigger()
	s.Wait()

	assert.Equal(t, 2, remote.pushCount())
}

func TestPushCarriesPriorRevision(t *testing.T) {
	remote := &fakeRemote{object: &RemoteObject{Content: []byte("old"), Revision: "rev-1"}}
	path := writeLocalFile(t, "payload")
	s := NewSynchronizer(path, remote, time.Minute, testLogger())

	s.Trigger()
	s.Wait()

	assert.Equal(t, 1, remote.pushCount())
	assert.Equal(t, "rev-1", remote.lastPrev, "push must carry the last-known revision token")
}

func TestPushConflictIsDropped(t *testing.T) {
	remote := &fakeRemote{pushErr: ErrRevisionConflict}
	path := writeLocalFile(t, "payload")
	s := NewSynchronizer(path, remote, time.Minute, testLogger())

	s.Trigger()
	s.Wait()

	// Exactly one attempt, no retry.
	assert.Equal(t, 1, remote.pushCount())
}

func TestHydrateOverwritesLocalFile(t *testing.T) {
	remote := &fakeRemote{object: &RemoteObject{Content: []byte("remote copy"), Revision: "rev-9"}}
	path := filepath.Join(t.TempDir(), "data", "bookings.db")
	s := NewSynchronizer(path, remote, time.Minute, testLogger())

	s.Hydrate(context.Background())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "remote copy", string(data))
}

func TestHydrateMissingRemoteKeepsLocal(t *testing.T) {
	remote := &fakeRemote{}
	path := writeLocalFile(t, "local copy")
	s := NewSynchronizer(path, remote, time.Minute, testLogger())

	s.Hydrate(context.Background())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "local copy", string(data))
}

func TestDisabledSynchronizerIsNoOp(t *testing.T) {
	s := NewSynchronizer("unused.db", nil, time.Minute, testLogger())

	s.Hydrate(context.Background())
	s.Trigger()
	s.Wait()

	var nilSync *Synchronizer
	nilSync.Trigger()
	nilSync.Hydrate(context.Background())
	nilSync.Wait()
}
