package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"demobook/internal/models"
)

const bookingColumns = `id, customer_name, country, product_name, requested_by,
       purpose, date_of_event, user, competitor_name, submitted_by, submitted_on`

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (
				customer_name, country, product_name, requested_by, purpose,
				date_of_event, user, competitor_name, submitted_by, submitted_on
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		booking.CustomerName,
		booking.Country,
		booking.ProductName,
		booking.RequestedBy,
		booking.Purpose,
		booking.DateOfEvent,
		booking.User,
		booking.CompetitorName,
		booking.SubmittedBy,
		booking.SubmittedOn,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id

	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`

	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// ListBookings returns the full ordered scan, ascending by id unless desc
// is set.
func (db *DB) ListBookings(ctx context.Context, desc bool) ([]*models.Booking, error) {
	order := "ASC"
	if desc {
		order = "DESC"
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY id ` + order

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// UpdateBookingFields overwrites the eight editable columns. submitted_by
// and submitted_on are never part of the statement.
func (db *DB) UpdateBookingFields(ctx context.Context, id int64, fields models.BookingFields) error {
	query := `UPDATE bookings
	          SET customer_name = ?, country = ?, product_name = ?, requested_by = ?,
	              purpose = ?, date_of_event = ?, user = ?, competitor_name = ?
	          WHERE id = ?`
	result, err := db.ExecContext(ctx, query,
		fields.CustomerName,
		fields.Country,
		fields.ProductName,
		fields.RequestedBy,
		fields.Purpose,
		fields.DateOfEvent,
		fields.User,
		fields.CompetitorName,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// DeleteBooking removes a record by id. Deleting an absent id is a no-op.
func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	return nil
}

// ClearBookings deletes every record and resets the id counter so the next
// insert starts at 1. Both statements commit as one transaction.
func (db *DB) ClearBookings(ctx context.Context) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings`); err != nil {
		return fmt.Errorf("failed to clear bookings: %w", err)
	}
	if err := resetSequence(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}

	db.Vacuum(ctx)
	return nil
}

// Resequence reassigns ids densely starting at 1, preserving insertion
// order and creation metadata. The read, delete, counter reset and
// reinserts commit as one transaction so a crash mid-way loses nothing.
func (db *DB) Resequence(ctx context.Context) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `SELECT customer_name, country, product_name, requested_by,
	       purpose, date_of_event, user, competitor_name, submitted_by, submitted_on
	       FROM bookings ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("failed to read bookings for resequence: %w", err)
	}

	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		err := rows.Scan(
			&b.CustomerName, &b.Country, &b.ProductName, &b.RequestedBy,
			&b.Purpose, &b.DateOfEvent, &b.User, &b.CompetitorName,
			&b.SubmittedBy, &b.SubmittedOn,
		)
		if err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to read bookings for resequence: %w", err)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings`); err != nil {
		return fmt.Errorf("failed to clear bookings: %w", err)
	}
	if err := resetSequence(ctx, tx); err != nil {
		return err
	}

	insert := `INSERT INTO bookings (
				customer_name, country, product_name, requested_by, purpose,
				date_of_event, user, competitor_name, submitted_by, submitted_on
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, b := range bookings {
		_, err := tx.ExecContext(ctx, insert,
			b.CustomerName, b.Country, b.ProductName, b.RequestedBy,
			b.Purpose, b.DateOfEvent, b.User, b.CompetitorName,
			b.SubmittedBy, b.SubmittedOn,
		)
		if err != nil {
			return fmt.Errorf("failed to reinsert booking: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit resequence: %w", err)
	}

	db.Vacuum(ctx)
	return nil
}

func (db *DB) CountBookings(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (db *DB) CountBookingsByCountry(ctx context.Context, country string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE country = ?`, country).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings by country: %w", err)
	}
	return count, nil
}

// resetSequence clears the AUTOINCREMENT counter. SQLite creates the
// sqlite_sequence table lazily on the first insert, so a missing table
// means the counter is already at zero.
func resetSequence(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'bookings'`); err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return nil
		}
		return fmt.Errorf("failed to reset id sequence: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	err := row.Scan(
		&b.ID, &b.CustomerName, &b.Country, &b.ProductName, &b.RequestedBy,
		&b.Purpose, &b.DateOfEvent, &b.User, &b.CompetitorName,
		&b.SubmittedBy, &b.SubmittedOn,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}
