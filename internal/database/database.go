package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	_ "github.com/mattn/go-sqlite3"
)

var ErrBookingNotFound = errors.New("booking not found")

// DB is the booking record store backed by a single SQLite file.
// The embedded *sql.DB pool is safe for use from concurrent request
// handlers; each statement here is a single atomic operation unless it
// opens its own transaction.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: sqlDB, path: path, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	query := `CREATE TABLE IF NOT EXISTS bookings (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        customer_name TEXT,
        country TEXT,
        product_name TEXT,
        requested_by TEXT,
        purpose TEXT,
        date_of_event TEXT,
        user TEXT,
        competitor_name TEXT,
        submitted_by TEXT,
        submitted_on TEXT
    )`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("error executing query %s: %w", query, err)
	}
	return nil
}

// Path returns the location of the backing file.
func (db *DB) Path() string {
	return db.path
}

// Vacuum compacts the backing file. Failures are logged only; a skipped
// VACUUM never affects record state.
func (db *DB) Vacuum(ctx context.Context) {
	if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
		db.logger.Warn().Err(err).Msg("vacuum failed")
	}
}
