package availability

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

var tracer = otel.Tracer("github.com/hackgods/clinic-scheduling/internal/availability")

// Manager owns a doctor's slot set. Every mutation is scoped to the calling
// doctor; the admin override is a separate operation.
type Manager struct {
	repo    Repository
	dir     directory.Repository
	log     *zap.Logger
	metrics *metrics.Collector
}

type Option func(*Manager)

// WithMetrics counts successful slot mutations by operation.
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Manager) { m.metrics = c }
}

func NewManager(repo Repository, dir directory.Repository, log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{repo: repo, dir: dir, log: log}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) changed(operation string) {
	if m.metrics != nil {
		m.metrics.SlotChangesTotal.WithLabelValues(operation).Inc()
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func validateRange(r timeslot.Range) error {
	if problems := r.Validate(); len(problems) > 0 {
		return apperr.Validation(problems...)
	}
	return nil
}

// AddAvailability creates an open slot for the calling doctor.
func (m *Manager) AddAvailability(ctx context.Context, caller identity.Caller, r timeslot.Range) (_ *Slot, err error) {
	ctx, span := tracer.Start(ctx, "availability.Add")
	defer func() { endSpan(span, err) }()

	doctorID, err := caller.DoctorID()
	if err != nil {
		return nil, err
	}
	if err := validateRange(r); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("doctor_id", doctorID.String()), attribute.String("range", r.String()))

	// A token can outlive its doctor row.
	if _, err := m.dir.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}
	if err := m.checkCollisions(ctx, doctorID, r, uuid.Nil); err != nil {
		return nil, err
	}

	created, err := m.repo.Create(ctx, Slot{
		DoctorID:  doctorID,
		Date:      r.Date,
		StartTime: r.Start,
		EndTime:   r.End,
		IsOpen:    true,
	})
	if err != nil {
		return nil, err
	}

	m.changed("add")
	m.log.Info("availability slot added",
		zap.String("slot_id", created.ID.String()),
		zap.String("doctor_id", doctorID.String()),
		zap.Stringer("range", r),
	)
	return created, nil
}

// UpdateAvailability replaces the range and optionally the open flag of one
// of the calling doctor's slots.
func (m *Manager) UpdateAvailability(ctx context.Context, caller identity.Caller, slotID uuid.UUID, upd SlotUpdate) (_ *Slot, err error) {
	ctx, span := tracer.Start(ctx, "availability.Update")
	defer func() { endSpan(span, err) }()

	doctorID, err := caller.DoctorID()
	if err != nil {
		return nil, err
	}
	if err := validateRange(upd.Range); err != nil {
		return nil, err
	}

	existing, err := m.repo.GetByID(ctx, slotID)
	if err != nil {
		return nil, apperr.Wrapf(err, "load slot")
	}
	if existing.DoctorID != doctorID {
		return nil, ErrNotSlotOwner
	}

	updated, err := m.apply(ctx, existing, upd)
	if err != nil {
		return nil, err
	}
	m.changed("update")
	return updated, nil
}

// AdminUpdateAvailability lets an admin update any doctor's slot. doctorID
// must own the slot.
func (m *Manager) AdminUpdateAvailability(ctx context.Context, caller identity.Caller, doctorID, slotID uuid.UUID, upd SlotUpdate) (_ *Slot, err error) {
	ctx, span := tracer.Start(ctx, "availability.AdminUpdate")
	defer func() { endSpan(span, err) }()

	if err := caller.RequireAdmin(); err != nil {
		return nil, err
	}
	if err := validateRange(upd.Range); err != nil {
		return nil, err
	}

	existing, err := m.repo.GetByID(ctx, slotID)
	if err != nil {
		return nil, apperr.Wrapf(err, "load slot")
	}
	if existing.DoctorID != doctorID {
		return nil, ErrSlotDoctorMismatch
	}

	updated, err := m.apply(ctx, existing, upd)
	if err != nil {
		return nil, err
	}
	m.changed("admin_update")
	m.log.Info("availability slot updated by admin",
		zap.String("slot_id", slotID.String()),
		zap.String("doctor_id", doctorID.String()),
	)
	return updated, nil
}

func (m *Manager) apply(ctx context.Context, existing *Slot, upd SlotUpdate) (*Slot, error) {
	next := *existing
	next.Date = upd.Range.Date
	next.StartTime = upd.Range.Start
	next.EndTime = upd.Range.End
	if upd.IsOpen != nil {
		next.IsOpen = *upd.IsOpen
	}

	if next.Range() != existing.Range() {
		if err := m.checkCollisions(ctx, existing.DoctorID, next.Range(), existing.ID); err != nil {
			return nil, err
		}
	}

	return m.repo.Update(ctx, next)
}

// checkCollisions gives a precise error before the write; the store
// constraints still decide under concurrent writers.
func (m *Manager) checkCollisions(ctx context.Context, doctorID uuid.UUID, r timeslot.Range, excludeID uuid.UUID) error {
	exists, err := m.repo.ExistsAtStart(ctx, doctorID, r.Date, r.Start, excludeID)
	if err != nil {
		return apperr.Wrapf(err, "check slot start")
	}
	if exists {
		return ErrSlotExists
	}

	overlapping, err := m.repo.FindOverlapping(ctx, doctorID, r, excludeID)
	if err != nil {
		return apperr.Wrapf(err, "check slot overlap")
	}
	if len(overlapping) > 0 {
		return ErrSlotOverlap
	}
	return nil
}

// DeleteAvailability removes one of the calling doctor's slots. Appointments
// booked against its date and time are left untouched.
func (m *Manager) DeleteAvailability(ctx context.Context, caller identity.Caller, slotID uuid.UUID) (err error) {
	ctx, span := tracer.Start(ctx, "availability.Delete")
	defer func() { endSpan(span, err) }()

	doctorID, err := caller.DoctorID()
	if err != nil {
		return err
	}

	existing, err := m.repo.GetByID(ctx, slotID)
	if err != nil {
		return apperr.Wrapf(err, "load slot")
	}
	if existing.DoctorID != doctorID {
		return ErrNotSlotOwner
	}

	if err := m.repo.Delete(ctx, slotID); err != nil {
		return apperr.Wrapf(err, "delete slot")
	}

	m.changed("delete")
	m.log.Info("availability slot deleted",
		zap.String("slot_id", slotID.String()),
		zap.String("doctor_id", doctorID.String()),
	)
	return nil
}

// ListAvailability returns the calling doctor's slots, optionally for one date.
func (m *Manager) ListAvailability(ctx context.Context, caller identity.Caller, date *timeslot.Date) ([]Slot, error) {
	doctorID, err := caller.DoctorID()
	if err != nil {
		return nil, err
	}
	return m.ListForDoctor(ctx, doctorID, date)
}

// ListForDoctor is the public read of one doctor's slots.
func (m *Manager) ListForDoctor(ctx context.Context, doctorID uuid.UUID, date *timeslot.Date) ([]Slot, error) {
	slots, err := m.repo.ListByDoctor(ctx, doctorID, date)
	if err != nil {
		return nil, apperr.Wrapf(err, "list slots")
	}
	sort.SliceStable(slots, func(i, j int) bool { return Less(slots[i], slots[j]) })
	return slots, nil
}

// FindAvailableDoctors is safe for unauthenticated callers.
func (m *Manager) FindAvailableDoctors(ctx context.Context, nameQuery string) (_ []DoctorSlot, err error) {
	ctx, span := tracer.Start(ctx, "availability.FindAvailableDoctors")
	defer func() { endSpan(span, err) }()

	result, err := m.repo.SearchOpenByDoctorName(ctx, nameQuery)
	if err != nil {
		return nil, apperr.Wrapf(err, "search available doctors")
	}
	filtered := result[:0]
	for _, ds := range result {
		if ds.Slot.IsOpen {
			filtered = append(filtered, ds)
		}
	}
	return filtered, nil
}

