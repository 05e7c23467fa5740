package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

// Repository contains all appointment persistence needed by the booking engine.
// Create and Reschedule must fail with ErrSlotTaken when another active
// appointment holds the same (doctor, date, start), including under concurrent
// writers. Writes taking an expected version fail with ErrConcurrentUpdate
// when the stored version differs.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// For conflict checks; excludeID is ignored when uuid.Nil.
	HasActiveAt(ctx context.Context, doctorID uuid.UUID, date timeslot.Date, start timeslot.TimeOfDay, excludeID uuid.UUID) (bool, error)

	// Creation and updates
	Create(ctx context.Context, a Appointment) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, version int, to Status) (*Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, version int, r timeslot.Range) (*Appointment, error)

	// Queries
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, date *timeslot.Date) ([]Appointment, error)
	CountByDoctorOnDate(ctx context.Context, doctorID uuid.UUID, date timeslot.Date) (int64, error)
	CountDistinctPatients(ctx context.Context, doctorID uuid.UUID) (int64, error)
	CountPendingFrom(ctx context.Context, doctorID uuid.UUID, from timeslot.Date) (int64, error)
}
