package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"demobook/internal/domain"
	"demobook/internal/events"
	"demobook/internal/metrics"
	"demobook/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrUnauthorized    = errors.New("unauthorized")
)

const (
	countryMalaysia  = "Malaysia"
	countrySingapore = "Singapore"
)

// BookingService validates and applies lifecycle operations against the
// record store. Authorization is checked before any store access, so a
// rejected caller never observes a modified store.
type BookingService struct {
	store    domain.Store
	eventBus domain.EventPublisher
	backup   domain.BackupTrigger
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBookingService(store domain.Store, eventBus domain.EventPublisher, backup domain.BackupTrigger, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		store:    store,
		eventBus: eventBus,
		backup:   backup,
		logger:   logger,
		now:      time.Now,
	}
}

// Create inserts a new record. submitted_by is copied from requested_by
// and submitted_on is stamped with the current wall clock; neither is
// editable afterwards.
func (s *BookingService) Create(ctx context.Context, identity models.Identity, fields models.BookingFields) (*models.Booking, error) {
	if !identity.Authenticated() {
		return nil, ErrUnauthenticated
	}

	fields = trimFields(fields)
	booking := &models.Booking{
		CustomerName:   fields.CustomerName,
		Country:        fields.Country,
		ProductName:    fields.ProductName,
		RequestedBy:    fields.RequestedBy,
		Purpose:        fields.Purpose,
		DateOfEvent:    fields.DateOfEvent,
		User:           fields.User,
		CompetitorName: fields.CompetitorName,
		SubmittedBy:    fields.RequestedBy,
		SubmittedOn:    s.now().Format(models.SubmittedOnLayout),
	}

	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	metrics.IncBookingCreated()
	s.logger.Info().Int64("booking_id", booking.ID).Str("by", identity.Username).Msg("booking created")

	s.publishCreated(booking)
	s.backup.Trigger()

	return booking, nil
}

// Update overwrites the eight editable fields of an existing record.
func (s *BookingService) Update(ctx context.Context, identity models.Identity, bookingID int64, fields models.BookingFields) error {
	if err := requireAdmin(identity); err != nil {
		return err
	}

	if err := s.store.UpdateBookingFields(ctx, bookingID, trimFields(fields)); err != nil {
		return err
	}

	s.logger.Info().Int64("booking_id", bookingID).Str("by", identity.Username).Msg("booking updated")
	s.backup.Trigger()
	return nil
}

// Delete removes a record. A second delete of the same id is a no-op.
func (s *BookingService) Delete(ctx context.Context, identity models.Identity, bookingID int64) error {
	if err := requireAdmin(identity); err != nil {
		return err
	}

	if err := s.store.DeleteBooking(ctx, bookingID); err != nil {
		return err
	}

	s.logger.Info().Int64("booking_id", bookingID).Str("by", identity.Username).Msg("booking deleted")
	s.backup.Trigger()
	return nil
}

// ClearAll deletes every record and resets the id counter to 1.
func (s *BookingService) ClearAll(ctx context.Context, identity models.Identity) error {
	if err := requireAdmin(identity); err != nil {
		return err
	}

	if err := s.store.ClearBookings(ctx); err != nil {
		return err
	}

	s.logger.Info().Str("by", identity.Username).Msg("all bookings cleared")
	s.backup.Trigger()
	return nil
}

// Resequence renumbers all records densely from 1 preserving order and
// creation metadata.
func (s *BookingService) Resequence(ctx context.Context, identity models.Identity) error {
	if err := requireAdmin(identity); err != nil {
		return err
	}

	if err := s.store.Resequence(ctx); err != nil {
		return err
	}

	s.logger.Info().Str("by", identity.Username).Msg("bookings resequenced")
	s.backup.Trigger()
	return nil
}

// List returns the ordered full scan for any authenticated caller.
func (s *BookingService) List(ctx context.Context, identity models.Identity, desc bool) ([]*models.Booking, error) {
	if !identity.Authenticated() {
		return nil, ErrUnauthenticated
	}
	return s.store.ListBookings(ctx, desc)
}

// Get returns a single record for any authenticated caller.
func (s *BookingService) Get(ctx context.Context, identity models.Identity, bookingID int64) (*models.Booking, error) {
	if !identity.Authenticated() {
		return nil, ErrUnauthenticated
	}
	return s.store.GetBooking(ctx, bookingID)
}

// Dashboard returns the aggregate counts shown after login.
func (s *BookingService) Dashboard(ctx context.Context, identity models.Identity) (*models.DashboardCounts, error) {
	if !identity.Authenticated() {
		return nil, ErrUnauthenticated
	}

	total, err := s.store.CountBookings(ctx)
	if err != nil {
		return nil, err
	}
	malaysia, err := s.store.CountBookingsByCountry(ctx, countryMalaysia)
	if err != nil {
		return nil, err
	}
	singapore, err := s.store.CountBookingsByCountry(ctx, countrySingapore)
	if err != nil {
		return nil, err
	}

	return &models.DashboardCounts{Total: total, Malaysia: malaysia, Singapore: singapore}, nil
}

func (s *BookingService) publishCreated(booking *models.Booking) {
	err := s.eventBus.PublishJSON(events.EventBookingCreated, events.BookingEventPayload{
		BookingID:      booking.ID,
		CustomerName:   booking.CustomerName,
		Country:        booking.Country,
		ProductName:    booking.ProductName,
		Purpose:        booking.Purpose,
		DateOfEvent:    booking.DateOfEvent,
		User:           booking.User,
		CompetitorName: booking.CompetitorName,
		SubmittedBy:    booking.SubmittedBy,
		SubmittedOn:    booking.SubmittedOn,
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("publish booking_created failed")
	}
}

func requireAdmin(identity models.Identity) error {
	if !identity.Authenticated() {
		return ErrUnauthenticated
	}
	if !identity.IsAdmin() {
		return ErrUnauthorized
	}
	return nil
}

func trimFields(f models.BookingFields) models.BookingFields {
	return models.BookingFields{
		CustomerName:   strings.TrimSpace(f.CustomerName),
		Country:        strings.TrimSpace(f.Country),
		ProductName:    strings.TrimSpace(f.ProductName),
		RequestedBy:    strings.TrimSpace(f.RequestedBy),
		Purpose:        strings.TrimSpace(f.Purpose),
		DateOfEvent:    strings.TrimSpace(f.DateOfEvent),
		User:           strings.TrimSpace(f.User),
		CompetitorName: strings.TrimSpace(f.CompetitorName),
	}
}
