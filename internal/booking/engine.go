package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/notification"
	"github.com/hackgods/clinic-scheduling/internal/record"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

var tracer = otel.Tracer("github.com/hackgods/clinic-scheduling/internal/booking")

var (
	ErrNoOpenSlot  = apperr.New(apperr.ErrSlotUnavailable, "no open availability matches the requested doctor, date and time")
	ErrNoSchedule  = apperr.New(apperr.ErrForbidden, "only patients and doctors have an appointment schedule")
	ErrDoctorEmpty = apperr.Validation("doctor_id is required")
)

type Deps struct {
	UnitOfWork UnitOfWork
	// Reads serves queries outside a unit of work.
	Reads   Repos
	Locker  redisclient.Locker
	Clock   identity.Clock
	Metrics *metrics.Collector
	Logger  *zap.Logger
}

// Engine validates bookings and drives appointments through their lifecycle.
// Every mutation and the notification it triggers commit in one unit of work.
type Engine struct {
	uow     UnitOfWork
	reads   Repos
	locker  redisclient.Locker
	clock   identity.Clock
	metrics *metrics.Collector
	log     *zap.Logger
}

func NewEngine(d Deps) *Engine {
	if d.Locker == nil {
		d.Locker = redisclient.NoopLocker{}
	}
	if d.Clock == nil {
		d.Clock = identity.SystemClock{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewCollector("clinic")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Engine{
		uow:     d.UnitOfWork,
		reads:   d.Reads,
		locker:  d.Locker,
		clock:   d.Clock,
		metrics: d.Metrics,
		log:     d.Logger,
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func bookingResult(err error) string {
	switch {
	case err == nil:
		return "booked"
	case errors.Is(err, apperr.ErrSlotUnavailable):
		return "unavailable"
	case errors.Is(err, apperr.ErrSlotAlreadyBooked):
		return "already_booked"
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	case apperr.Kind(err) != nil:
		return "rejected"
	}
	return "error"
}

func (e *Engine) emitted(recipient notification.RecipientType) {
	e.metrics.NotificationsTotal.WithLabelValues(string(recipient)).Inc()
}

func (e *Engine) transitioned(ev appointment.Event, to appointment.Status) {
	e.metrics.TransitionsTotal.WithLabelValues(string(ev), string(to)).Inc()
}

// requireOpenSlot maps a missing exact open slot to ErrNoOpenSlot.
func requireOpenSlot(ctx context.Context, r Repos, doctorID uuid.UUID, rg timeslot.Range) error {
	if _, err := r.Slots.FindOpenExact(ctx, doctorID, rg); err != nil {
		if errors.Is(err, availability.ErrSlotNotFound) {
			return ErrNoOpenSlot
		}
		return fmt.Errorf("find open slot: %w", err)
	}
	return nil
}

func requireFree(ctx context.Context, r Repos, doctorID uuid.UUID, rg timeslot.Range, excludeID uuid.UUID) error {
	taken, err := r.Appointments.HasActiveAt(ctx, doctorID, rg.Date, rg.Start, excludeID)
	if err != nil {
		return fmt.Errorf("check slot occupancy: %w", err)
	}
	if taken {
		return appointment.ErrSlotTaken
	}
	return nil
}

// BookAppointment creates a PENDING appointment for the calling patient and
// notifies the doctor.
func (e *Engine) BookAppointment(ctx context.Context, caller identity.Caller, req Request) (_ *Detail, err error) {
	ctx, span := tracer.Start(ctx, "booking.BookAppointment")
	defer func() {
		e.metrics.BookingsTotal.WithLabelValues(bookingResult(err)).Inc()
		endSpan(span, err)
	}()

	patientID, err := caller.PatientID()
	if err != nil {
		return nil, err
	}
	if req.DoctorID == uuid.Nil {
		return nil, ErrDoctorEmpty
	}
	if problems := req.Range.Validate(); len(problems) > 0 {
		return nil, apperr.Validation(problems...)
	}
	span.SetAttributes(
		attribute.String("doctor_id", req.DoctorID.String()),
		attribute.String("patient_id", patientID.String()),
		attribute.String("range", req.Range.String()),
	)

	key := redisclient.SlotKey{DoctorID: req.DoctorID, Date: req.Range.Date, Start: req.Range.Start}

	var detail *Detail
	err = e.locker.WithSlotLock(ctx, key, func(ctx context.Context) error {
		return e.uow.Do(ctx, func(ctx context.Context, r Repos) error {
			doc, err := r.Directory.GetDoctorByID(ctx, req.DoctorID)
			if err != nil {
				return err
			}
			pat, err := r.Directory.GetPatientByID(ctx, patientID)
			if err != nil {
				return err
			}

			if err := requireOpenSlot(ctx, r, req.DoctorID, req.Range); err != nil {
				return err
			}
			if err := requireFree(ctx, r, req.DoctorID, req.Range, uuid.Nil); err != nil {
				return err
			}

			created, err := r.Appointments.Create(ctx, appointment.Appointment{
				DoctorID:  req.DoctorID,
				PatientID: patientID,
				Date:      req.Range.Date,
				StartTime: req.Range.Start,
				EndTime:   req.Range.End,
				Reason:    req.Reason,
				Status:    appointment.StatusPending,
			})
			if err != nil {
				return err
			}

			detail = &Detail{Appointment: *created, Doctor: *doc, Patient: *pat}
			if _, err := notification.NewNotifier(r.Notifications).NotifyDoctorOnRequest(ctx, detail.subject()); err != nil {
				return err
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	e.emitted(notification.RecipientDoctor)
	e.log.Info("appointment booked",
		zap.String("appointment_id", detail.Appointment.ID.String()),
		zap.String("doctor_id", req.DoctorID.String()),
		zap.String("patient_id", patientID.String()),
		zap.Stringer("range", req.Range),
	)
	return detail, nil
}

// loadForDoctor returns the appointment if the calling doctor owns it.
func loadForDoctor(ctx context.Context, r Repos, doctorID, id uuid.UUID) (*appointment.Appointment, error) {
	a, err := r.Appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.DoctorID != doctorID {
		return nil, appointment.ErrNotOwner
	}
	return a, nil
}

// ConfirmAppointment moves a PENDING appointment to CONFIRMED.
func (e *Engine) ConfirmAppointment(ctx context.Context, caller identity.Caller, id uuid.UUID) (*Detail, error) {
	return e.decide(ctx, caller, id, appointment.EventConfirm, nil)
}

// RejectAppointment moves a PENDING appointment to REJECTED. reason may be nil.
func (e *Engine) RejectAppointment(ctx context.Context, caller identity.Caller, id uuid.UUID, reason *string) (*Detail, error) {
	return e.decide(ctx, caller, id, appointment.EventReject, reason)
}

func (e *Engine) decide(ctx context.Context, caller identity.Caller, id uuid.UUID, ev appointment.Event, reason *string) (_ *Detail, err error) {
	ctx, span := tracer.Start(ctx, "booking.Decide", trace.WithAttributes(
		attribute.String("appointment_id", id.String()),
		attribute.String("event", string(ev)),
	))
	defer func() { endSpan(span, err) }()

	doctorID, err := caller.DoctorID()
	if err != nil {
		return nil, err
	}

	var detail *Detail
	err = e.uow.Do(ctx, func(ctx context.Context, r Repos) error {
		a, err := loadForDoctor(ctx, r, doctorID, id)
		if err != nil {
			return err
		}
		to, err := a.Status.Next(ev)
		if err != nil {
			return err
		}

		updated, err := r.Appointments.UpdateStatus(ctx, a.ID, a.Version, to)
		if err != nil {
			return err
		}
		if detail, err = hydrate(ctx, r.Directory, *updated); err != nil {
			return err
		}

		_, err = notification.NewNotifier(r.Notifications).
			NotifyPatientOnDecision(ctx, detail.subject(), ev == appointment.EventConfirm, reason)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.transitioned(ev, detail.Appointment.Status)
	e.emitted(notification.RecipientPatient)
	e.log.Info("appointment decided",
		zap.String("appointment_id", id.String()),
		zap.String("doctor_id", doctorID.String()),
		zap.String("status", string(detail.Appointment.Status)),
	)
	return detail, nil
}

// RescheduleAppointment moves a PENDING or CONFIRMED appointment to another
// open slot of the same doctor. The status is kept.
func (e *Engine) RescheduleAppointment(ctx context.Context, caller identity.Caller, id uuid.UUID, rg timeslot.Range) (_ *Detail, err error) {
	ctx, span := tracer.Start(ctx, "booking.RescheduleAppointment", trace.WithAttributes(
		attribute.String("appointment_id", id.String()),
		attribute.String("range", rg.String()),
	))
	defer func() { endSpan(span, err) }()

	doctorID, err := caller.DoctorID()
	if err != nil {
		return nil, err
	}
	if problems := rg.Validate(); len(problems) > 0 {
		return nil, apperr.Validation(problems...)
	}

	key := redisclient.SlotKey{DoctorID: doctorID, Date: rg.Date, Start: rg.Start}

	var detail *Detail
	err = e.locker.WithSlotLock(ctx, key, func(ctx context.Context) error {
		return e.uow.Do(ctx, func(ctx context.Context, r Repos) error {
			a, err := loadForDoctor(ctx, r, doctorID, id)
			if err != nil {
				return err
			}
			if _, err := a.Status.Next(appointment.EventReschedule); err != nil {
				return err
			}
			from := a.Range()

			if err := requireOpenSlot(ctx, r, doctorID, rg); err != nil {
				return err
			}
			if err := requireFree(ctx, r, doctorID, rg, a.ID); err != nil {
				return err
			}

			updated, err := r.Appointments.Reschedule(ctx, a.ID, a.Version, rg)
			if err != nil {
				return err
			}
			if detail, err = hydrate(ctx, r.Directory, *updated); err != nil {
				return err
			}

			_, err = notification.NewNotifier(r.Notifications).NotifyPatientOnReschedule(ctx, detail.subject(), from)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	e.transitioned(appointment.EventReschedule, detail.Appointment.Status)
	e.emitted(notification.RecipientPatient)
	e.log.Info("appointment rescheduled",
		zap.String("appointment_id", id.String()),
		zap.String("doctor_id", doctorID.String()),
		zap.Stringer("range", rg),
	)
	return detail, nil
}

// CancelAppointment is open to the owning patient, the owning doctor and
// admins. The other party is notified.
func (e *Engine) CancelAppointment(ctx context.Context, caller identity.Caller, id uuid.UUID) (_ *Detail, err error) {
	ctx, span := tracer.Start(ctx, "booking.CancelAppointment", trace.WithAttributes(
		attribute.String("appointment_id", id.String()),
	))
	defer func() { endSpan(span, err) }()

	if caller.IsZero() {
		return nil, identity.ErrUnauthenticated
	}

	canceledBy := notification.RecipientDoctor
	if caller.Role == identity.RolePatient {
		canceledBy = notification.RecipientPatient
	}

	var detail *Detail
	err = e.uow.Do(ctx, func(ctx context.Context, r Repos) error {
		a, err := r.Appointments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !canView(caller, *a) {
			return appointment.ErrNotOwner
		}
		to, err := a.Status.Next(appointment.EventCancel)
		if err != nil {
			return err
		}

		updated, err := r.Appointments.UpdateStatus(ctx, a.ID, a.Version, to)
		if err != nil {
			return err
		}
		if detail, err = hydrate(ctx, r.Directory, *updated); err != nil {
			return err
		}

		_, err = notification.NewNotifier(r.Notifications).NotifyOnCancel(ctx, detail.subject(), canceledBy)
		return err
	})
	if err != nil {
		return nil, err
	}

	notified := notification.RecipientPatient
	if canceledBy == notification.RecipientPatient {
		notified = notification.RecipientDoctor
	}
	e.transitioned(appointment.EventCancel, detail.Appointment.Status)
	e.emitted(notified)
	e.log.Info("appointment canceled",
		zap.String("appointment_id", id.String()),
		zap.String("role", string(caller.Role)),
	)
	return detail, nil
}

// CompleteWithRecord writes the medical record and marks the appointment
// COMPLETED together. Only CONFIRMED appointments can complete.
func (e *Engine) CompleteWithRecord(ctx context.Context, caller identity.Caller, id uuid.UUID, data record.ClinicalData) (_ *Detail, _ *record.MedicalRecord, err error) {
	ctx, span := tracer.Start(ctx, "booking.CompleteWithRecord", trace.WithAttributes(
		attribute.String("appointment_id", id.String()),
	))
	defer func() { endSpan(span, err) }()

	doctorID, err := caller.DoctorID()
	if err != nil {
		return nil, nil, err
	}

	var (
		detail  *Detail
		created *record.MedicalRecord
	)
	err = e.uow.Do(ctx, func(ctx context.Context, r Repos) error {
		a, err := loadForDoctor(ctx, r, doctorID, id)
		if err != nil {
			return err
		}
		to, err := a.Status.Next(appointment.EventComplete)
		if err != nil {
			return err
		}

		updated, err := r.Appointments.UpdateStatus(ctx, a.ID, a.Version, to)
		if err != nil {
			return err
		}

		created, err = r.Records.Create(ctx, record.MedicalRecord{
			AppointmentID: a.ID,
			DoctorID:      a.DoctorID,
			PatientID:     a.PatientID,
			Reason:        a.Reason,
			Diagnosis:     data.Diagnosis,
			Notes:         data.Notes,
			Prescriptions: data.Prescriptions,
		})
		if err != nil {
			return fmt.Errorf("create medical record: %w", err)
		}

		detail, err = hydrate(ctx, r.Directory, *updated)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	e.transitioned(appointment.EventComplete, detail.Appointment.Status)
	e.log.Info("appointment completed",
		zap.String("appointment_id", id.String()),
		zap.String("record_id", created.ID.String()),
	)
	return detail, created, nil
}

func canView(caller identity.Caller, a appointment.Appointment) bool {
	switch caller.Role {
	case identity.RoleAdmin:
		return true
	case identity.RolePatient:
		return a.PatientID == caller.OwnerID
	case identity.RoleDoctor:
		return a.DoctorID == caller.OwnerID
	}
	return false
}

func (e *Engine) GetAppointment(ctx context.Context, caller identity.Caller, id uuid.UUID) (*Detail, error) {
	if caller.IsZero() {
		return nil, identity.ErrUnauthenticated
	}

	a, err := e.reads.Appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(caller, *a) {
		return nil, appointment.ErrNotOwner
	}
	return hydrate(ctx, e.reads.Directory, *a)
}

// ListForCaller returns a patient's appointments latest first, or a doctor's
// schedule earliest first.
func (e *Engine) ListForCaller(ctx context.Context, caller identity.Caller) ([]Detail, error) {
	var (
		list []appointment.Appointment
		err  error
	)
	switch caller.Role {
	case identity.RolePatient:
		list, err = e.reads.Appointments.ListByPatient(ctx, caller.OwnerID)
	case identity.RoleDoctor:
		list, err = e.reads.Appointments.ListByDoctor(ctx, caller.OwnerID, nil)
	case "":
		return nil, identity.ErrUnauthenticated
	default:
		return nil, ErrNoSchedule
	}
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return e.details(ctx, list)
}

func (e *Engine) today() timeslot.Date {
	return timeslot.DateOf(e.clock.Now())
}

// TodayForDoctor lists the calling doctor's appointments for today in every status.
func (e *Engine) TodayForDoctor(ctx context.Context, caller identity.Caller) ([]Detail, error) {
	doctorID, err := caller.DoctorID()
	if err != nil {
		return nil, err
	}
	today := e.today()
	list, err := e.reads.Appointments.ListByDoctor(ctx, doctorID, &today)
	if err != nil {
		return nil, fmt.Errorf("list today's appointments: %w", err)
	}
	return e.details(ctx, list)
}

func (e *Engine) details(ctx context.Context, list []appointment.Appointment) ([]Detail, error) {
	p := newParties(e.reads.Directory)
	out := make([]Detail, 0, len(list))
	for _, a := range list {
		d, err := p.detail(ctx, a)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

// DoctorStats counts today's appointments in any status, distinct patients
// across active statuses and PENDING requests from today on.
func (e *Engine) DoctorStats(ctx context.Context, caller identity.Caller) (*Stats, error) {
	doctorID, err := caller.DoctorID()
	if err != nil {
		return nil, err
	}
	today := e.today()

	var s Stats
	if s.TodayAppointments, err = e.reads.Appointments.CountByDoctorOnDate(ctx, doctorID, today); err != nil {
		return nil, fmt.Errorf("count today's appointments: %w", err)
	}
	if s.TotalPatients, err = e.reads.Appointments.CountDistinctPatients(ctx, doctorID); err != nil {
		return nil, fmt.Errorf("count patients: %w", err)
	}
	if s.PendingReviews, err = e.reads.Appointments.CountPendingFrom(ctx, doctorID, today); err != nil {
		return nil, fmt.Errorf("count pending reviews: %w", err)
	}
	return &s, nil
}
