package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"demobook/internal/metrics"

	"github.com/rs/zerolog"

	_ "github.com/mattn/go-sqlite3"
)

// Synchronizer mirrors the local store file to a remote content store.
// Every mutation calls Trigger; pushes inside the debounce window are
// skipped, and the push itself runs on a detached goroutine with no
// cancellation path. All remote failures are logged and dropped.
type Synchronizer struct {
	dbPath   string
	remote   RemoteStore
	debounce time.Duration
	logger   *zerolog.Logger

	// mu guards only the lastPush read-modify-write; the push runs
	// unlocked.
	mu       sync.Mutex
	lastPush time.Time

	wg sync.WaitGroup
}

// NewSynchronizer returns a disabled no-op synchronizer when remote is nil.
func NewSynchronizer(dbPath string, remote RemoteStore, debounce time.Duration, logger *zerolog.Logger) *Synchronizer {
	if remote == nil {
		logger.Info().Msg("backup disabled: no remote store configured")
	}
	if debounce <= 0 {
		debounce = 10 * time.Second
	}
	return &Synchronizer{
		dbPath:   dbPath,
		remote:   remote,
		debounce: debounce,
		logger:   logger,
	}
}

// Hydrate fetches the remote object once, before the store opens, and
// overwrites the local file with it. Absence of a remote object or any
// fetch failure is non-fatal: the local file stays the source of truth.
func (s *Synchronizer) Hydrate(ctx context.Context) {
	if s == nil || s.remote == nil {
		return
	}

	obj, err := s.remote.Fetch(ctx)
	if errors.Is(err, ErrObjectNotFound) {
		s.logger.Info().Msg("no remote backup yet, starting from local file")
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("remote backup fetch failed, starting from local file")
		return
	}

	if dir := filepath.Dir(s.dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.logger.Warn().Err(err).Msg("create database directory for hydration failed")
			return
		}
	}
	if err := os.WriteFile(s.dbPath, obj.Content, 0o644); err != nil {
		s.logger.Warn().Err(err).Msg("write hydrated database file failed")
		return
	}

	s.logger.Info().Str("revision", obj.Revision).Int("bytes", len(obj.Content)).Msg("local store hydrated from remote backup")
}

// Trigger requests a push after a mutation. Calls within the debounce
// window of the previous push collapse into nothing.
func (s *Synchronizer) Trigger() {
	if s == nil || s.remote == nil {
		return
	}

	s.mu.Lock()
	if time.Since(s.lastPush) < s.debounce {
		s.mu.Unlock()
		metrics.IncBackupPush("skipped")
		s.logger.Debug().Msg("backup push skipped inside debounce window")
		return
	}
	s.lastPush = time.Now()
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.push(context.Background())
	}()
}

// Wait blocks until in-flight pushes finish. Test hook; the server never
// cancels or awaits a push.
func (s *Synchronizer) Wait() {
	if s == nil {
		return
	}
	s.wg.Wait()
}

func (s *Synchronizer) push(ctx context.Context) {
	data, err := s.snapshot(ctx)
	if err != nil {
		metrics.IncBackupPush("failed")
		s.logger.Error().Err(err).Msg("backup snapshot failed")
		return
	}

	var prevRevision string
	if obj, err := s.remote.Fetch(ctx); err == nil {
		prevRevision = obj.Revision
	} else if !errors.Is(err, ErrObjectNotFound) {
		metrics.IncBackupPush("failed")
		s.logger.Error().Err(err).Msg("backup revision lookup failed")
		return
	}

	revision, err := s.remote.Push(ctx, data, prevRevision)
	if errors.Is(err, ErrRevisionConflict) {
		// Lost the race to a concurrent writer; no retry within the event.
		metrics.IncBackupPush("conflict")
		s.logger.Warn().Msg("backup push rejected: stale revision token")
		return
	}
	if err != nil {
		metrics.IncBackupPush("failed")
		s.logger.Error().Err(err).Msg("backup push failed")
		return
	}

	metrics.IncBackupPush("ok")
	s.logger.Info().Str("revision", revision).Int("bytes", len(data)).Msg("backup pushed")
}

// snapshot produces a consistent copy of the store file. VACUUM INTO gives
// a safe online snapshot; a plain file read is the fallback.
func (s *Synchronizer) snapshot(ctx context.Context) ([]byte, error) {
	snapPath := s.dbPath + ".snapshot"
	_ = os.Remove(snapPath)

	db, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open source database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", snapPath)); err != nil {
		s.logger.Warn().Err(err).Msg("VACUUM INTO failed, falling back to file copy")
		return os.ReadFile(s.dbPath)
	}
	defer os.Remove(snapPath)

	return os.ReadFile(snapPath)
}
