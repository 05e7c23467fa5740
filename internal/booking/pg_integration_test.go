package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/booking"
	"github.com/hackgods/clinic-scheduling/internal/db/dbtest"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/notification"
)

func TestPgBookingLifecycle(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()

	doctor := directory.Doctor{ID: dbtest.InsertDoctor(t, pool, "Gregory House"), Name: "Gregory House"}
	alice := directory.Patient{ID: dbtest.InsertPatient(t, pool, "Alice"), Name: "Alice"}

	reads := booking.PgRepos(pool)
	slots := availability.NewManager(reads.Slots, reads.Directory, zap.NewNop())
	engine := booking.NewEngine(booking.Deps{
		UnitOfWork: booking.NewPgUnitOfWork(pool),
		Reads:      reads,
		Clock:      identity.FixedClock{T: now},
		Logger:     zap.NewNop(),
	})

	first := rng("2025-01-10", "09:00", "09:30")
	_, err := slots.AddAvailability(ctx, doctorCaller(doctor), first)
	require.NoError(t, err)

	booked, err := engine.BookAppointment(ctx, patientCaller(alice), booking.Request{DoctorID: doctor.ID, Range: first})
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusPending, booked.Appointment.Status)
	assert.Equal(t, "Gregory House", booked.Doctor.Name)

	// a stale version must not overwrite the stored row
	_, err = reads.Appointments.UpdateStatus(ctx, booked.Appointment.ID, booked.Appointment.Version+1, appointment.StatusConfirmed)
	assert.ErrorIs(t, err, appointment.ErrConcurrentUpdate)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	confirmed, err := engine.ConfirmAppointment(ctx, doctorCaller(doctor), booked.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusConfirmed, confirmed.Appointment.Status)
	assert.Greater(t, confirmed.Appointment.Version, booked.Appointment.Version)

	inbox, err := notification.NewService(reads.Notifications).List(ctx, doctorCaller(doctor))
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "New appointment request", inbox[0].Title)
	assert.Nil(t, inbox[0].PublishedAt)

	err = notification.NewPgOutbox(pool).Do(ctx, func(ctx context.Context, repo notification.Repository) error {
		return repo.MarkPublished(ctx, []uuid.UUID{inbox[0].ID}, time.Now())
	})
	require.NoError(t, err)
	published, err := reads.Notifications.GetByID(ctx, inbox[0].ID)
	require.NoError(t, err)
	assert.NotNil(t, published.PublishedAt)
}

func TestPgConcurrentBookingOneWinner(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()

	doctor := directory.Doctor{ID: dbtest.InsertDoctor(t, pool, "Lisa Cuddy"), Name: "Lisa Cuddy"}
	reads := booking.PgRepos(pool)
	slots := availability.NewManager(reads.Slots, reads.Directory, zap.NewNop())
	engine := booking.NewEngine(booking.Deps{
		UnitOfWork: booking.NewPgUnitOfWork(pool),
		Reads:      reads,
		Clock:      identity.FixedClock{T: now},
		Logger:     zap.NewNop(),
	})

	slot := rng("2025-01-10", "11:00", "11:30")
	_, err := slots.AddAvailability(ctx, doctorCaller(doctor), slot)
	require.NoError(t, err)

	const n = 8
	patients := make([]directory.Patient, n)
	for i := range patients {
		patients[i] = directory.Patient{ID: dbtest.InsertPatient(t, pool, "patient"), Name: "patient"}
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		booked int
		taken  int
	)
	for _, p := range patients {
		wg.Add(1)
		go func(p directory.Patient) {
			defer wg.Done()
			_, err := engine.BookAppointment(ctx, patientCaller(p), booking.Request{DoctorID: doctor.ID, Range: slot})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				booked++
			case apperr.Kind(err) == apperr.ErrSlotAlreadyBooked:
				taken++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(p)
	}
	wg.Wait()

	assert.Equal(t, 1, booked)
	assert.Equal(t, n-1, taken)
}
