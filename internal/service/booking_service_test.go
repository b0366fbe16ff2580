package service

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"demobook/internal/database"
	"demobook/internal/events"
	"demobook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	adminIdentity = models.Identity{Username: "admin", Role: models.RoleAdmin}
	staffIdentity = models.Identity{Username: "staff", Role: models.RoleUser}
	anonIdentity  = models.Identity{}
)

type countingBackup struct {
	triggers atomic.Int64
}

func (b *countingBackup) Trigger() {
	b.triggers.Add(1)
}

func setupService(t *testing.T) (*BookingService, *database.DB, *countingBackup, *events.EventBus) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bus := events.NewEventBus()
	backup := &countingBackup{}
	svc := NewBookingService(db, bus, backup, &logger)
	return svc, db, backup, bus
}

func demoFields() models.BookingFields {
	return models.BookingFields{
		CustomerName: "Acme",
		Country:      "Malaysia",
		ProductName:  "Total Station",
		RequestedBy:  "Alice",
		Purpose:      "Demo",
		DateOfEvent:  "2026-09-15",
		User:         "Field Engineer",
	}
}

func TestCreateStampsMetadata(t *testing.T) {
	svc, _, backup, _ := setupService(t)
	svc.now = func() time.Time { return time.Date(2026, 8, 30, 10, 30, 0, 0, time.UTC) }

	booking, err := svc.Create(context.Background(), staffIdentity, demoFields())
	require.NoError(t, err)

	assert.Equal(t, int64(1), booking.ID)
	assert.Equal(t, "Alice", booking.SubmittedBy, "submitted_by is copied from requested_by")
	assert.Equal(t, "2026-08-30 10:30:00", booking.SubmittedOn)
	assert.Equal(t, int64(1), backup.triggers.Load(), "create must trigger a backup push")
}

func TestCreateTrimsInputs(t *testing.T) {
	svc, _, _, _ := setupService(t)

	fields := models.BookingFields{
		CustomerName: "  Acme  ",
		Country:      "\tMalaysia\n",
		RequestedBy:  " Alice ",
	}
	booking, err := svc.Create(context.Background(), staffIdentity, fields)
	require.NoError(t, err)

	assert.Equal(t, "Acme", booking.CustomerName)
	assert.Equal(t, "Malaysia", booking.Country)
	assert.Equal(t, "Alice", booking.RequestedBy)
	assert.Equal(t, "Alice", booking.SubmittedBy, "submitted_by is copied after trimming")
}

func TestCreatePublishesEvent(t *testing.T) {
	svc, _, _, bus := setupService(t)

	var got []*events.Event
	bus.Subscribe(events.EventBookingCreated, func(e *events.Event) error {
		got = append(got, e)
		return nil
	})

	_, err := svc.Create(context.Background(), staffIdentity, demoFields())
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestCreateRequiresAuthentication(t *testing.T) {
	svc, db, backup, _ := setupService(t)

	_, err := svc.Create(context.Background(), anonIdentity, demoFields())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	count, err := db.CountBookings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count, "store must stay unmodified")
	assert.Equal(t, int64(0), backup.triggers.Load())
}

func TestUpdatePreservesCreationMetadata(t *testing.T) {
	svc, _, backup, _ := setupService(t)
	ctx := context.Background()

	booking, err := svc.Create(ctx, staffIdentity, demoFields())
	require.NoError(t, err)

	fields := demoFields()
	fields.RequestedBy = "Bob"
	fields.Country = "Singapore"
	require.NoError(t, svc.Update(ctx, adminIdentity, booking.ID, fields))

	got, err := svc.Get(ctx, adminIdentity, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.RequestedBy)
	assert.Equal(t, "Singapore", got.Country)
	assert.Equal(t, "Alice", got.SubmittedBy)
	assert.Equal(t, booking.SubmittedOn, got.SubmittedOn)
	assert.Equal(t, int64(2), backup.triggers.Load())
}

func TestUpdateNotFound(t *testing.T) {
	svc, _, _, _ := setupService(t)

	err := svc.Update(context.Background(), adminIdentity, 99, demoFields())
	assert.ErrorIs(t, err, database.ErrBookingNotFound)
}

func TestPrivilegedOpsRejectNonAdmin(t *testing.T) {
	svc, db, backup, _ := setupService(t)
	ctx := context.Background()

	booking, err := svc.Create(ctx, staffIdentity, demoFields())
	require.NoError(t, err)
	triggersAfterCreate := backup.triggers.Load()

	ops := map[string]func() error{
		"update":     func() error { return svc.Update(ctx, staffIdentity, booking.ID, demoFields()) },
		"delete":     func() error { return svc.Delete(ctx, staffIdentity, booking.ID) },
		"clearAll":   func() error { return svc.ClearAll(ctx, staffIdentity) },
		"resequence": func() error { return svc.Resequence(ctx, staffIdentity) },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, op(), ErrUnauthorized)
		})
	}

	// Store left unmodified, no backup pushes from rejected calls.
	count, err := db.CountBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, triggersAfterCreate, backup.triggers.Load())
}

func TestPrivilegedOpsRejectAnonymous(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Update(ctx, anonIdentity, 1, demoFields()), ErrUnauthenticated)
	assert.ErrorIs(t, svc.Delete(ctx, anonIdentity, 1), ErrUnauthenticated)
	assert.ErrorIs(t, svc.ClearAll(ctx, anonIdentity), ErrUnauthenticated)
	assert.ErrorIs(t, svc.Resequence(ctx, anonIdentity), ErrUnauthenticated)
	_, err := svc.List(ctx, anonIdentity, false)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Dashboard(ctx, anonIdentity)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestDeleteIdempotent(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	booking, err := svc.Create(ctx, staffIdentity, demoFields())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, adminIdentity, booking.ID))
	require.NoError(t, svc.Delete(ctx, adminIdentity, booking.ID))
}

func TestClearAllThenCreateStartsAtOne(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, staffIdentity, demoFields())
		require.NoError(t, err)
	}

	require.NoError(t, svc.ClearAll(ctx, adminIdentity))

	booking, err := svc.Create(ctx, staffIdentity, demoFields())
	require.NoError(t, err)
	assert.Equal(t, int64(1), booking.ID)
}

func TestDashboardCounts(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	// Record A: Acme in Malaysia requested by Alice.
	a := demoFields()
	_, err := svc.Create(ctx, staffIdentity, a)
	require.NoError(t, err)

	// Record B: Singapore.
	b := demoFields()
	b.Country = "Singapore"
	_, err = svc.Create(ctx, staffIdentity, b)
	require.NoError(t, err)

	counts, err := svc.Dashboard(ctx, staffIdentity)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Total)
	assert.Equal(t, 1, counts.Malaysia)
	assert.Equal(t, 1, counts.Singapore)
}

func TestResequencePreservesRecords(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, staffIdentity, demoFields())
	require.NoError(t, err)

	secondFields := demoFields()
	secondFields.CustomerName = "Globex"
	second, err := svc.Create(ctx, staffIdentity, secondFields)
	require.NoError(t, err)

	// Punch a hole so the resequence has work to do.
	third, err := svc.Create(ctx, staffIdentity, demoFields())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, adminIdentity, first.ID))
	require.NoError(t, svc.Resequence(ctx, adminIdentity))

	bookings, err := svc.List(ctx, staffIdentity, false)
	require.NoError(t, err)
	require.Len(t, bookings, 2)

	assert.Equal(t, int64(1), bookings[0].ID)
	assert.Equal(t, "Globex", bookings[0].CustomerName)
	assert.Equal(t, second.SubmittedOn, bookings[0].SubmittedOn)
	assert.Equal(t, int64(2), bookings[1].ID)
	assert.Equal(t, third.SubmittedBy, bookings[1].SubmittedBy)
}
