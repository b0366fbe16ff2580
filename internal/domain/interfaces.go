package domain

import (
	"context"

	"demobook/internal/models"
)

// Store is the booking record store consumed by the lifecycle service.
type Store interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context, desc bool) ([]*models.Booking, error)
	UpdateBookingFields(ctx context.Context, id int64, fields models.BookingFields) error
	DeleteBooking(ctx context.Context, id int64) error
	ClearBookings(ctx context.Context) error
	Resequence(ctx context.Context) error
	CountBookings(ctx context.Context) (int, error)
	CountBookingsByCountry(ctx context.Context, country string) (int, error)
}

// EventPublisher fans domain events out to in-process consumers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// BackupTrigger requests an asynchronous push of the store file to the
// remote mirror.
type BackupTrigger interface {
	Trigger()
}
