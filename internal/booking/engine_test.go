package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/booking"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/memstore"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/notification"
	"github.com/hackgods/clinic-scheduling/internal/record"
	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

var now = time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

type fixture struct {
	store   *memstore.Store
	engine  *booking.Engine
	slots   *availability.Manager
	inbox   *notification.Service
	records *record.Service
	metrics *metrics.Collector

	doctor      directory.Doctor
	otherDoctor directory.Doctor
	p1, p2      directory.Patient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	store.SetNow(func() time.Time { return now })
	m := metrics.NewCollector("test")

	f := &fixture{
		store:   store,
		metrics: m,
		slots:   availability.NewManager(store.Slots(), store.Directory(), zap.NewNop()),
		inbox:   notification.NewService(store.Notifications()),
		records: record.NewService(store.Records()),
		engine: booking.NewEngine(booking.Deps{
			UnitOfWork: store,
			Reads:      store.Repos(),
			Clock:      identity.FixedClock{T: now},
			Metrics:    m,
			Logger:     zap.NewNop(),
		}),
	}

	dir := store.Directory()
	f.doctor = dir.AddDoctor(directory.Doctor{Name: "Gregory House"})
	f.otherDoctor = dir.AddDoctor(directory.Doctor{Name: "Lisa Cuddy"})
	f.p1 = dir.AddPatient(directory.Patient{Name: "Alice"})
	f.p2 = dir.AddPatient(directory.Patient{Name: "Bob"})
	return f
}

func doctorCaller(d directory.Doctor) identity.Caller {
	return identity.Caller{Role: identity.RoleDoctor, OwnerID: d.ID}
}

func patientCaller(p directory.Patient) identity.Caller {
	return identity.Caller{Role: identity.RolePatient, OwnerID: p.ID}
}

func rng(date, start, end string) timeslot.Range {
	return timeslot.Range{Date: timeslot.MustDate(date), Start: timeslot.MustTime(start), End: timeslot.MustTime(end)}
}

func (f *fixture) addSlot(t *testing.T, r timeslot.Range) *availability.Slot {
	t.Helper()
	s, err := f.slots.AddAvailability(context.Background(), doctorCaller(f.doctor), r)
	require.NoError(t, err)
	return s
}

func (f *fixture) book(p directory.Patient, r timeslot.Range) (*booking.Detail, error) {
	return f.engine.BookAppointment(context.Background(), patientCaller(p), booking.Request{DoctorID: f.doctor.ID, Range: r})
}

func strp(s string) *string { return &s }

func TestBookingScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := doctorCaller(f.doctor)
	first := rng("2025-01-10", "09:00", "09:30")
	f.addSlot(t, first)

	a1, err := f.engine.BookAppointment(ctx, patientCaller(f.p1), booking.Request{
		DoctorID: f.doctor.ID,
		Range:    first,
		Reason:   strp("headache"),
	})
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusPending, a1.Appointment.Status)
	assert.Equal(t, "Alice", a1.Patient.Name)
	assert.Equal(t, "Gregory House", a1.Doctor.Name)

	inbox, err := f.inbox.List(ctx, doc)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "New appointment request", inbox[0].Title)
	assert.Equal(t, "Patient Alice request an appointment on 2025-01-10 from 09:00 to 09:30", inbox[0].Message)

	_, err = f.book(f.p2, first)
	assert.ErrorIs(t, err, apperr.ErrSlotAlreadyBooked)

	confirmed, err := f.engine.ConfirmAppointment(ctx, doc, a1.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusConfirmed, confirmed.Appointment.Status)

	patientInbox, err := f.inbox.List(ctx, patientCaller(f.p1))
	require.NoError(t, err)
	require.Len(t, patientInbox, 1)
	assert.Equal(t, "Appointment confirmed", patientInbox[0].Title)
	assert.Equal(t, "Your appointment with Dr. Gregory House on 2025-01-10 is confirmed.", patientInbox[0].Message)

	_, err = f.engine.ConfirmAppointment(ctx, doc, a1.Appointment.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	second := rng("2025-01-11", "10:00", "10:30")
	f.addSlot(t, second)
	moved, err := f.engine.RescheduleAppointment(ctx, doc, a1.Appointment.ID, second)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusConfirmed, moved.Appointment.Status)
	assert.Equal(t, second, moved.Appointment.Range())

	done, rec, err := f.engine.CompleteWithRecord(ctx, doc, a1.Appointment.ID, record.ClinicalData{
		Diagnosis:     strp("migraine"),
		Prescriptions: []record.Prescription{{MedicationName: "ibuprofen", Dosage: "400mg"}},
	})
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCompleted, done.Appointment.Status)
	assert.Equal(t, a1.Appointment.ID, rec.AppointmentID)
	assert.Equal(t, "headache", *rec.Reason)

	records, err := f.records.ListForCaller(ctx, patientCaller(f.p1))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ibuprofen", records[0].Prescriptions[0].MedicationName)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BookingsTotal.WithLabelValues("booked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BookingsTotal.WithLabelValues("already_booked")))
}

func TestConcurrentBookingOfSameSlot(t *testing.T) {
	f := newFixture(t)
	slot := rng("2025-01-10", "09:00", "09:30")
	f.addSlot(t, slot)

	const n = 20
	patients := make([]directory.Patient, n)
	for i := range patients {
		patients[i] = f.store.Directory().AddPatient(directory.Patient{Name: "patient"})
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
			_, err := f.book(p, slot)

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

	list, err := f.engine.ListForCaller(context.Background(), doctorCaller(f.doctor))
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBookValidatesBeforeStoreAccess(t *testing.T) {
	f := newFixture(t)

	// the doctor does not exist, but validation is reported first
	_, err := f.engine.BookAppointment(context.Background(), patientCaller(f.p1), booking.Request{
		DoctorID: uuid.New(),
		Range:    rng("2025-01-10", "10:00", "09:00"),
	})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "end_time must be after start_time")

	_, err = f.engine.BookAppointment(context.Background(), patientCaller(f.p1), booking.Request{
		Range: rng("2025-01-10", "09:00", "09:30"),
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestBookRequiresPatient(t *testing.T) {
	f := newFixture(t)
	req := booking.Request{DoctorID: f.doctor.ID, Range: rng("2025-01-10", "09:00", "09:30")}

	_, err := f.engine.BookAppointment(context.Background(), doctorCaller(f.doctor), req)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.engine.BookAppointment(context.Background(), identity.Caller{}, req)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestBookNeedsExactOpenSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.addSlot(t, rng("2025-01-10", "09:00", "09:30"))

	_, err := f.book(f.p1, rng("2025-01-10", "09:00", "09:15"))
	assert.ErrorIs(t, err, apperr.ErrSlotUnavailable)

	closed := false
	_, err = f.slots.UpdateAvailability(ctx, doctorCaller(f.doctor), s.ID, availability.SlotUpdate{Range: s.Range(), IsOpen: &closed})
	require.NoError(t, err)

	_, err = f.book(f.p1, s.Range())
	assert.ErrorIs(t, err, apperr.ErrSlotUnavailable)

	_, err = f.engine.BookAppointment(ctx, patientCaller(f.p1), booking.Request{DoctorID: uuid.New(), Range: s.Range()})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDecisionsRequireOwningDoctor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	slot := rng("2025-01-10", "09:00", "09:30")
	f.addSlot(t, slot)
	a, err := f.book(f.p1, slot)
	require.NoError(t, err)

	_, err = f.engine.ConfirmAppointment(ctx, doctorCaller(f.otherDoctor), a.Appointment.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.engine.ConfirmAppointment(ctx, patientCaller(f.p1), a.Appointment.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.engine.RejectAppointment(ctx, doctorCaller(f.doctor), uuid.New(), nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := f.engine.GetAppointment(ctx, patientCaller(f.p1), a.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusPending, got.Appointment.Status)
}

func TestRejectWithoutReason(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	slot := rng("2025-01-10", "09:00", "09:30")
	f.addSlot(t, slot)
	a, err := f.book(f.p1, slot)
	require.NoError(t, err)

	rejected, err := f.engine.RejectAppointment(ctx, doctorCaller(f.doctor), a.Appointment.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusRejected, rejected.Appointment.Status)

	inbox, err := f.inbox.List(ctx, patientCaller(f.p1))
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "Appointment rejected", inbox[0].Title)
	assert.Equal(t, "Your appointment with Dr. Gregory House on 2025-01-10 was rejected. Reason: N/A", inbox[0].Message)

	// a rejected appointment frees the slot
	_, err = f.book(f.p2, slot)
	assert.NoError(t, err)

	_, err = f.engine.CancelAppointment(ctx, patientCaller(f.p1), a.Appointment.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestRescheduleConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := doctorCaller(f.doctor)
	morning := rng("2025-01-10", "09:00", "09:30")
	later := rng("2025-01-10", "10:00", "10:30")
	f.addSlot(t, morning)
	f.addSlot(t, later)

	a1, err := f.book(f.p1, morning)
	require.NoError(t, err)
	_, err = f.book(f.p2, later)
	require.NoError(t, err)

	_, err = f.engine.RescheduleAppointment(ctx, doc, a1.Appointment.ID, later)
	assert.ErrorIs(t, err, apperr.ErrSlotAlreadyBooked)

	_, err = f.engine.RescheduleAppointment(ctx, doc, a1.Appointment.ID, rng("2025-01-12", "09:00", "09:30"))
	assert.ErrorIs(t, err, apperr.ErrSlotUnavailable)

	// moving onto its own current slot is not a conflict
	same, err := f.engine.RescheduleAppointment(ctx, doc, a1.Appointment.ID, morning)
	require.NoError(t, err)
	assert.Equal(t, morning, same.Appointment.Range())

	_, err = f.engine.RescheduleAppointment(ctx, doctorCaller(f.otherDoctor), a1.Appointment.ID, morning)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.engine.RescheduleAppointment(ctx, doc, a1.Appointment.ID, rng("2025-01-10", "11:00", "10:00"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	slot := rng("2025-01-10", "09:00", "09:30")
	f.addSlot(t, slot)
	a, err := f.book(f.p1, slot)
	require.NoError(t, err)

	_, err = f.engine.CancelAppointment(ctx, patientCaller(f.p2), a.Appointment.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	canceled, err := f.engine.CancelAppointment(ctx, patientCaller(f.p1), a.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCanceled, canceled.Appointment.Status)

	count, err := f.inbox.UnreadCount(ctx, doctorCaller(f.doctor))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = f.engine.CancelAppointment(ctx, doctorCaller(f.doctor), a.Appointment.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	again, err := f.book(f.p2, slot)
	require.NoError(t, err)

	admin := identity.Caller{Role: identity.RoleAdmin}
	_, err = f.engine.CancelAppointment(ctx, admin, again.Appointment.ID)
	require.NoError(t, err)
}

func TestCompleteRequiresConfirmed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	slot := rng("2025-01-10", "09:00", "09:30")
	f.addSlot(t, slot)
	a, err := f.book(f.p1, slot)
	require.NoError(t, err)

	_, _, err = f.engine.CompleteWithRecord(ctx, doctorCaller(f.doctor), a.Appointment.ID, record.ClinicalData{})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	records, err := f.records.ListForCaller(ctx, doctorCaller(f.doctor))
	require.NoError(t, err)
	assert.Empty(t, records)

	got, err := f.engine.GetAppointment(ctx, doctorCaller(f.doctor), a.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusPending, got.Appointment.Status)
}

func TestDeletingSlotKeepsAppointments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.addSlot(t, rng("2025-01-10", "09:00", "09:30"))
	a, err := f.book(f.p1, s.Range())
	require.NoError(t, err)

	require.NoError(t, f.slots.DeleteAvailability(ctx, doctorCaller(f.doctor), s.ID))

	got, err := f.engine.GetAppointment(ctx, patientCaller(f.p1), a.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Appointment, got.Appointment)

	// the doctor can still act on it
	_, err = f.engine.ConfirmAppointment(ctx, doctorCaller(f.doctor), a.Appointment.ID)
	assert.NoError(t, err)
}

func TestListsTodayAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := doctorCaller(f.doctor)

	today1 := rng("2025-01-10", "09:00", "09:30")
	today2 := rng("2025-01-10", "11:00", "11:30")
	tomorrow := rng("2025-01-11", "09:00", "09:30")
	yesterday := rng("2025-01-09", "09:00", "09:30")
	for _, r := range []timeslot.Range{today1, today2, tomorrow, yesterday} {
		f.addSlot(t, r)
	}

	a, err := f.book(f.p1, today2)
	require.NoError(t, err)
	_, err = f.book(f.p1, tomorrow)
	require.NoError(t, err)
	_, err = f.book(f.p2, yesterday)
	require.NoError(t, err)
	b, err := f.book(f.p2, today1)
	require.NoError(t, err)
	_, err = f.engine.RejectAppointment(ctx, doc, b.Appointment.ID, strp("unavailable"))
	require.NoError(t, err)
	_, err = f.engine.ConfirmAppointment(ctx, doc, a.Appointment.ID)
	require.NoError(t, err)

	today, err := f.engine.TodayForDoctor(ctx, doc)
	require.NoError(t, err)
	require.Len(t, today, 2)
	assert.Equal(t, today1, today[0].Appointment.Range())
	assert.Equal(t, today2, today[1].Appointment.Range())

	stats, err := f.engine.DoctorStats(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, booking.Stats{TodayAppointments: 2, TotalPatients: 2, PendingReviews: 1}, *stats)

	mine, err := f.engine.ListForCaller(ctx, patientCaller(f.p1))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, tomorrow, mine[0].Appointment.Range())
	assert.Equal(t, today2, mine[1].Appointment.Range())

	schedule, err := f.engine.ListForCaller(ctx, doc)
	require.NoError(t, err)
	require.Len(t, schedule, 4)
	assert.Equal(t, yesterday, schedule[0].Appointment.Range())

	_, err = f.engine.ListForCaller(ctx, identity.Caller{Role: identity.RoleAdmin})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
